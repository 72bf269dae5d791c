package main

import (
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/r3e-network/sgx-attest-verifier/internal/attestation"
)

var (
	verifyCertPath   string
	verifyRootCAPath string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a single attestation certificate offline, without starting a server",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCertPath, "cert", "", "path to the DER or PEM attestation certificate")
	verifyCmd.Flags().StringVar(&verifyRootCAPath, "root-ca", "", "path to the DER or PEM pinned IAS root CA")
	_ = verifyCmd.MarkFlagRequired("cert")
	_ = verifyCmd.MarkFlagRequired("root-ca")
}

// kindExitCode assigns each VerifyError Kind a distinct process exit code,
// so callers can branch on $? without parsing stderr.
func kindExitCode(kind attestation.Kind) int {
	switch kind {
	case attestation.KindParse:
		return 10
	case attestation.KindCert:
		return 11
	case attestation.KindCrypto:
		return 12
	case attestation.KindReport:
		return 13
	case attestation.KindTime:
		return 14
	default:
		return 1
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	certDER, err := readCertOrDER(verifyCertPath)
	if err != nil {
		return fmt.Errorf("failed to read --cert: %w", err)
	}
	rootCADER, err := readCertOrDER(verifyRootCAPath)
	if err != nil {
		return fmt.Errorf("failed to read --root-ca: %w", err)
	}

	report, verr := attestation.Verify(certDER, rootCADER, attestation.SystemClock{})
	if verr != nil {
		var ve *attestation.VerifyError
		code := 1
		if errors.As(verr, &ve) {
			code = kindExitCode(ve.Kind)
		}
		fmt.Fprintln(os.Stderr, verr)
		os.Exit(code)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		FreshnessSeconds float64 `json:"freshness_seconds"`
		QuoteStatus      string  `json:"quote_status"`
		QuoteStatusRaw   string  `json:"quote_status_raw"`
		QuoteVersion     string  `json:"quote_version"`
	}{
		FreshnessSeconds: report.Freshness.Seconds(),
		QuoteStatus:      report.SGXQuoteStatus.Variant().String(),
		QuoteStatusRaw:   report.SGXQuoteStatus.Raw(),
		QuoteVersion:     report.SGXQuoteBody.Version.Variant(),
	})
}

func readCertOrDER(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(raw); block != nil {
		return block.Bytes, nil
	}
	return raw, nil
}

package attestation

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"time"
)

// iasReportJSON is the subset of IAS's attestation-report JSON body (spec
// §4.E step 6) this package reads. Unrecognized fields are ignored.
type iasReportJSON struct {
	Timestamp             string `json:"timestamp"`
	ISVEnclaveQuoteStatus string `json:"isvEnclaveQuoteStatus"`
	ISVEnclaveQuoteBody   string `json:"isvEnclaveQuoteBody"`
}

// iasTimestampLayout matches IAS's report timestamp, which carries
// fractional seconds but no zone offset; it is UTC by convention.
const iasTimestampLayout = "2006-01-02T15:04:05.999999"

// verifyEndorsedReport implements spec §4.E: it validates the IAS signing
// certificate against the pinned root, checks the report signature, then
// parses and returns the report fields. now is supplied by the caller's
// Clock so the chain-validity check and the freshness computation below
// are pinned to the same instant.
func verifyEndorsedReport(endorsed EndorsedReport, rootCA *x509.Certificate, now time.Time) (AttestationReport, error) {
	signingCert, err := x509.ParseCertificate(endorsed.SigningCert)
	if err != nil {
		return AttestationReport{}, certErr("failed to parse IAS signing certificate", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(rootCA)
	opts := x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if _, err := signingCert.Verify(opts); err != nil {
		return AttestationReport{}, cryptoErr("IAS signing certificate failed chain validation against the pinned root", err)
	}

	rsaPub, ok := signingCert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return AttestationReport{}, cryptoErr("IAS signing certificate key is not RSA", nil)
	}

	hash := sha256.Sum256(endorsed.Report)
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, hash[:], endorsed.Signature); err != nil {
		return AttestationReport{}, cryptoErr("IAS report signature verification failed", err)
	}

	var report iasReportJSON
	if err := json.Unmarshal(endorsed.Report, &report); err != nil {
		return AttestationReport{}, reportErr("failed to parse IAS report JSON", err)
	}

	if report.Timestamp == "" {
		return AttestationReport{}, reportErr("IAS report is missing timestamp", nil)
	}
	ts, err := time.Parse(iasTimestampLayout, report.Timestamp)
	if err != nil {
		return AttestationReport{}, reportErr("failed to parse IAS report timestamp", err)
	}

	freshness := now.Sub(ts.UTC())
	if freshness < 0 {
		return AttestationReport{}, reportErr("IAS report timestamp is in the future", nil)
	}

	if report.ISVEnclaveQuoteStatus == "" {
		return AttestationReport{}, reportErr("IAS report is missing isvEnclaveQuoteStatus", nil)
	}
	status := statusOf(report.ISVEnclaveQuoteStatus)

	if report.ISVEnclaveQuoteBody == "" {
		return AttestationReport{}, reportErr("IAS report is missing isvEnclaveQuoteBody", nil)
	}
	quoteRaw, err := base64.StdEncoding.DecodeString(report.ISVEnclaveQuoteBody)
	if err != nil {
		return AttestationReport{}, parseErr("failed to base64-decode isvEnclaveQuoteBody", err)
	}

	quote, err := decodeQuote(quoteRaw)
	if err != nil {
		return AttestationReport{}, err
	}

	return AttestationReport{
		Freshness:      freshness,
		SGXQuoteStatus: status,
		SGXQuoteBody:   quote,
	}, nil
}

// bindPublicKey enforces spec §4.E step 8: the certificate's subject public
// key must be an uncompressed SEC1 point (0x04 || X || Y per RFC 5480 §2.2)
// and its 64-byte coordinate pair must equal the quote's report_data
// exactly.
func bindPublicKey(pubKey []byte, report EnclaveReport) error {
	if len(pubKey) != 65 || pubKey[0] != 0x04 {
		return reportErr("certificate public key is not an uncompressed SEC1 point", nil)
	}
	if !bytes.Equal(pubKey[1:], report.ReportData[:]) {
		return reportErr("certificate public key does not match quote report_data", nil)
	}
	return nil
}

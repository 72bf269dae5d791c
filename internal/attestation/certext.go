package attestation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
)

// sgxRACommentOID is the Netscape-Comment arc (2.16.840.1.113730.1.13),
// repurposed by the SGX remote-attestation TLS handshake to carry the
// JSON-serialized EndorsedReport instead of a human comment. The certificate
// is self-signed and never presented for ordinary TLS validation, so
// reusing this arc causes no collision with its original purpose.
var sgxRACommentOID = asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 1, 13}

// endorsedReportJSON is the snake_case wire shape of EndorsedReport's JSON
// serialization inside the certificate extension (spec §6: "typical
// producers use snake_case for these three"). []byte fields decode
// standard-alphabet base64 automatically via encoding/json.
type endorsedReportJSON struct {
	Report      []byte `json:"report"`
	Signature   []byte `json:"signature"`
	SigningCert []byte `json:"signing_cert"`
}

// extractCertMaterial recovers the subject's raw SEC1 public-key point and
// the SGX-RA extension payload from a DER-encoded certificate, per spec
// §4.D. It does not verify the certificate's own signature; the caller is
// responsible for any prior syntactic/chain check on certDER.
func extractCertMaterial(certDER []byte) (pubKey []byte, endorsed EndorsedReport, err error) {
	cert, rawErr := x509.ParseCertificate(certDER)
	if rawErr != nil {
		return nil, EndorsedReport{}, certErr("failed to parse certificate", rawErr)
	}

	pubKey, err = sec1PublicKey(cert)
	if err != nil {
		return nil, EndorsedReport{}, err
	}

	payload, err := findCommentExtension(cert)
	if err != nil {
		return nil, EndorsedReport{}, err
	}

	endorsed, err = parseEndorsedReport(payload)
	if err != nil {
		return nil, EndorsedReport{}, err
	}

	return pubKey, endorsed, nil
}

// sec1PublicKey returns the certificate's subject public key in SEC1
// uncompressed point form (0x04 || X || Y), per RFC 5480 §2.2. Only EC
// keys are accepted; any other key type is a CertError.
func sec1PublicKey(cert *x509.Certificate) ([]byte, error) {
	ecKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, certErr("certificate subject public key is not an EC key", nil)
	}
	return elliptic.Marshal(ecKey.Curve, ecKey.X, ecKey.Y), nil
}

// findCommentExtension locates the SGX-RA comment extension among the
// certificate's extensions and returns its raw OCTET STRING value.
func findCommentExtension(cert *x509.Certificate) ([]byte, error) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(sgxRACommentOID) {
			return ext.Value, nil
		}
	}
	return nil, certErr("certificate is missing the SGX-RA extension", nil)
}

// parseEndorsedReport decodes the extension's UTF-8 JSON document into an
// EndorsedReport. Per spec §6 a producer may use snake_case or camelCase
// field names; both are accepted.
func parseEndorsedReport(payload []byte) (EndorsedReport, error) {
	var snake endorsedReportJSON
	if err := json.Unmarshal(payload, &snake); err != nil {
		return EndorsedReport{}, certErr("SGX-RA extension payload is not valid JSON", err)
	}
	if len(snake.Report) > 0 && len(snake.Signature) > 0 && len(snake.SigningCert) > 0 {
		return EndorsedReport{Report: snake.Report, Signature: snake.Signature, SigningCert: snake.SigningCert}, nil
	}

	// Fall back to a camelCase producer convention.
	var camel struct {
		Report      []byte `json:"report"`
		Signature   []byte `json:"signature"`
		SigningCert []byte `json:"signingCert"`
	}
	if err := json.Unmarshal(payload, &camel); err != nil {
		return EndorsedReport{}, certErr("SGX-RA extension payload is not valid JSON", err)
	}
	if len(camel.Report) == 0 || len(camel.Signature) == 0 || len(camel.SigningCert) == 0 {
		return EndorsedReport{}, certErr("SGX-RA extension payload is missing report, signature, or signing_cert", nil)
	}

	return EndorsedReport{Report: camel.Report, Signature: camel.Signature, SigningCert: camel.SigningCert}, nil
}

// decodeBase64Field decodes a standard-alphabet, padded base64 string.
// Nothing in this package currently calls it.
func decodeBase64Field(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

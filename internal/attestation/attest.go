package attestation

import "crypto/x509"

// Verify decodes and verifies a complete SGX remote-attestation handshake,
// per spec §4.F. certDER is the self-signed certificate presented during
// the TLS handshake; iasRootCADER is the pinned Intel IAS root CA the
// report's signing certificate must chain to. clock supplies "now" for
// both the signing-certificate validity check and the report freshness
// computation, so callers can pin both to the same instant in tests.
//
// Verify does not check the outer certificate's own signature or the quote
// status against any policy: those are the caller's responsibility, since
// a self-signed attestation certificate has no signer to validate against
// and "which quote statuses are acceptable" is a deployment decision, not
// a parsing one.
func Verify(certDER, iasRootCADER []byte, clock Clock) (AttestationReport, error) {
	rootCA, err := x509.ParseCertificate(iasRootCADER)
	if err != nil {
		return AttestationReport{}, certErr("failed to parse IAS root CA certificate", err)
	}

	pubKey, endorsed, err := extractCertMaterial(certDER)
	if err != nil {
		return AttestationReport{}, err
	}

	now, err := clock.Now()
	if err != nil {
		return AttestationReport{}, timeErr("clock failed to produce the current time", err)
	}

	report, err := verifyEndorsedReport(endorsed, rootCA, now)
	if err != nil {
		return AttestationReport{}, err
	}

	if err := bindPublicKey(pubKey, report.SGXQuoteBody.ISVEnclaveReport); err != nil {
		return AttestationReport{}, err
	}

	return report, nil
}

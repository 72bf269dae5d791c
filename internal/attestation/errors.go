package attestation

import "fmt"

// Kind identifies one of the disjoint failure categories a verification can
// abort with. Callers must branch on Kind, never on the error's message text.
type Kind int

const (
	// KindParse indicates malformed bytes: slice underrun, unexpected length,
	// bad version/signature-type discriminant, UUID length mismatch, or a
	// base64 decode failure.
	KindParse Kind = iota
	// KindCert indicates X.509 extraction failed: wrong structure, missing
	// SGX-RA extension, or a subject public key that is not an EC key.
	KindCert
	// KindCrypto indicates trust-anchor validation failed: the signing-cert
	// chain is invalid/expired, or the report signature doesn't verify.
	KindCrypto
	// KindReport indicates a JSON field was missing or wrong-typed, the
	// timestamp was unparseable or in the future, the certificate public key
	// was not an uncompressed SEC1 point, or the report_data/pubkey binding
	// did not match.
	KindReport
	// KindTime indicates the current instant is not representable.
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindCert:
		return "CertError"
	case KindCrypto:
		return "CryptoError"
	case KindReport:
		return "ReportError"
	case KindTime:
		return "TimeError"
	default:
		return "UnknownError"
	}
}

// VerifyError is the single error type Verify ever returns. It carries a
// Kind for programmatic dispatch and wraps an underlying cause for
// errors.Is/errors.As and human-readable diagnostics.
type VerifyError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *VerifyError) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *VerifyError {
	return &VerifyError{Kind: kind, Msg: msg, Err: cause}
}

func parseErr(msg string, cause error) *VerifyError  { return newErr(KindParse, msg, cause) }
func certErr(msg string, cause error) *VerifyError   { return newErr(KindCert, msg, cause) }
func cryptoErr(msg string, cause error) *VerifyError { return newErr(KindCrypto, msg, cause) }
func reportErr(msg string, cause error) *VerifyError { return newErr(KindReport, msg, cause) }
func timeErr(msg string, cause error) *VerifyError   { return newErr(KindTime, msg, cause) }

package attestation

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math/big"
	"time"
)

// testChain bundles a pinned root CA plus an IAS signing certificate
// (and its private key) issued underneath it, and the DER encoding of
// the root, for use across test scenarios.
type testChain struct {
	rootDER    []byte
	signingKey *rsa.PrivateKey
	signingDER []byte
}

var validityStart = mustParseRFC3339("2010-01-01T00:00:00Z")
var validityEnd = mustParseRFC3339("2040-01-01T00:00:00Z")

func mustParseRFC3339(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// newTestChain builds a fresh self-signed RSA root CA and an RSA end-entity
// "IAS signing certificate" issued by it, mimicking the real IAS report
// signing CA / signing-cert relationship this package verifies against.
func newTestChain() testChain {
	rootKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test IAS Root CA"},
		NotBefore:             validityStart,
		NotAfter:              validityEnd,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	if err != nil {
		panic(err)
	}
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		panic(err)
	}

	signingKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "Test IAS Report Signing Cert"},
		NotBefore:    validityStart,
		NotAfter:     validityEnd,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	signingDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, rootCert, &signingKey.PublicKey, rootKey)
	if err != nil {
		panic(err)
	}

	return testChain{rootDER: rootDER, signingKey: signingKey, signingDER: signingDER}
}

// enclaveReportBytes lays out a 384-byte SGX enclave report per spec §4.B.
func enclaveReportBytes(mrEnclave, mrSigner [32]byte, reportData [64]byte) []byte {
	r := make([]byte, enclaveReportSize)
	// cpu_svn, misc_select, attributes, and all reserved ranges are left
	// zero; this package never inspects them.
	copy(r[64:96], mrEnclave[:])
	copy(r[128:160], mrSigner[:])
	copy(r[320:384], reportData[:])
	return r
}

// quoteBytes lays out a 432-byte SGX quote per spec §4.C.
func quoteBytes(version, sigOrAK uint16, mrEnclave, mrSigner [32]byte, reportData [64]byte) []byte {
	q := make([]byte, quoteSize)
	binary.LittleEndian.PutUint16(q[0:2], version)
	binary.LittleEndian.PutUint16(q[2:4], sigOrAK)
	binary.LittleEndian.PutUint32(q[4:8], 0x1234)
	binary.LittleEndian.PutUint16(q[8:10], 1)
	binary.LittleEndian.PutUint16(q[10:12], 1)
	// qe_vendor_id (16 bytes) and user_data (20 bytes) left zero.
	copy(q[48:432], enclaveReportBytes(mrEnclave, mrSigner, reportData))
	return q
}

// iasReportJSONBytes builds the IAS attestation-report JSON body.
func iasReportJSONBytes(timestamp, status string, quote []byte) []byte {
	body := map[string]string{
		"timestamp":             timestamp,
		"isvEnclaveQuoteStatus": status,
		"isvEnclaveQuoteBody":   base64.StdEncoding.EncodeToString(quote),
	}
	b, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return b
}

// signReport signs report with chain's signing key using RSA-PKCS1-v1.5
// SHA-256, the fixed algorithm spec §4.E step 3 requires.
func signReport(chain testChain, report []byte) []byte {
	hash := sha256.Sum256(report)
	sig, err := rsa.SignPKCS1v15(rand.Reader, chain.signingKey, crypto.SHA256, hash[:])
	if err != nil {
		panic(err)
	}
	return sig
}

// endorsedReportExtensionValue builds the UTF-8 JSON OCTET STRING payload
// the SGX-RA certificate extension carries, per spec §4.D/§6.
func endorsedReportExtensionValue(report, signature, signingCertDER []byte) []byte {
	payload := endorsedReportJSON{
		Report:      report,
		Signature:   signature,
		SigningCert: signingCertDER,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return b
}

// newEnclaveCert builds a self-signed EC certificate whose subject public
// key is pub and whose SGX-RA extension carries extValue.
func newEnclaveCert(pub *ecdsa.PublicKey, priv *ecdsa.PrivateKey, extValue []byte) []byte {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "Test Enclave Certificate"},
		NotBefore:    validityStart,
		NotAfter:     validityEnd,
		ExtraExtensions: []pkix.Extension{
			{Id: sgxRACommentOID, Value: extValue},
		},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		panic(err)
	}
	return der
}

// newEnclaveCertNoExtension builds a self-signed EC certificate carrying no
// SGX-RA extension at all, for testing the missing-extension failure path.
func newEnclaveCertNoExtension(pub *ecdsa.PublicKey, priv *ecdsa.PrivateKey) []byte {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(4),
		Subject:      pkix.Name{CommonName: "Test Enclave Certificate (no extension)"},
		NotBefore:    validityStart,
		NotAfter:     validityEnd,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		panic(err)
	}
	return der
}

func base64StdEncode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// sec1Uncompressed returns the 0x04||X||Y encoding of an EC public key.
func sec1Uncompressed(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(pub.Curve, pub.X, pub.Y)
}

// newEnclaveKey generates a fresh P-256 key pair for a test enclave
// certificate's subject key and report_data binding.
func newEnclaveKey() *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}
	return key
}

// reportDataFromKey returns the 64-byte X||Y coordinate pair a conforming
// enclave would embed as report_data for this public key.
func reportDataFromKey(pub *ecdsa.PublicKey) [64]byte {
	raw := sec1Uncompressed(pub)
	var out [64]byte
	copy(out[:], raw[1:])
	return out
}

// scenario bundles every input Verify needs, built from a shared test
// chain and enclave key, so individual tests can tweak one field at a time.
type scenario struct {
	chain      testChain
	enclaveKey *ecdsa.PrivateKey
	mrEnclave  [32]byte
	mrSigner   [32]byte
}

func newScenario() scenario {
	var mrEnclave, mrSigner [32]byte
	mrEnclave[0] = 0xAA
	mrSigner[0] = 0xBB
	return scenario{
		chain:      newTestChain(),
		enclaveKey: newEnclaveKey(),
		mrEnclave:  mrEnclave,
		mrSigner:   mrSigner,
	}
}

// build assembles a complete enclave certificate DER for the given IAS
// report fields, returning the cert and the IAS root CA DER to verify
// against.
func (s scenario) build(timestamp, status string, version, sigOrAK uint16, reportData [64]byte) (certDER, rootDER []byte) {
	quote := quoteBytes(version, sigOrAK, s.mrEnclave, s.mrSigner, reportData)
	report := iasReportJSONBytes(timestamp, status, quote)
	sig := signReport(s.chain, report)
	extValue := endorsedReportExtensionValue(report, sig, s.chain.signingDER)
	cert := newEnclaveCert(&s.enclaveKey.PublicKey, s.enclaveKey, extValue)
	return cert, s.chain.rootDER
}

package attestserver

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/r3e-network/sgx-attest-verifier/internal/attestation"
	"github.com/r3e-network/sgx-attest-verifier/internal/attestcache"
)

type verifyRequest struct {
	// CertificateDER is the base64-standard-encoding of the DER-encoded
	// self-signed attestation certificate.
	CertificateDER string `json:"certificate_der"`
}

type verifyResponse struct {
	VerificationID   string  `json:"verification_id"`
	FreshnessSeconds float64 `json:"freshness_seconds"`
	QuoteStatus      string  `json:"quote_status"`
	QuoteStatusRaw   string  `json:"quote_status_raw"`
	QuoteVersion     string  `json:"quote_version"`
	MREnclave        string  `json:"mr_enclave"`
	MRSigner         string  `json:"mr_signer"`
	ISVProdID        uint16  `json:"isv_prod_id"`
	ISVSVN           uint16  `json:"isv_svn"`
	Cached           bool    `json:"cached"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toVerifyResponse(report attestation.AttestationReport, cached bool) verifyResponse {
	er := report.SGXQuoteBody.ISVEnclaveReport
	return verifyResponse{
		VerificationID:   uuid.New().String(),
		FreshnessSeconds: report.Freshness.Seconds(),
		QuoteStatus:      report.SGXQuoteStatus.Variant().String(),
		QuoteStatusRaw:   report.SGXQuoteStatus.Raw(),
		QuoteVersion:     report.SGXQuoteBody.Version.Variant(),
		MREnclave:        hex.EncodeToString(er.MREnclave[:]),
		MRSigner:         hex.EncodeToString(er.MRSigner[:]),
		ISVProdID:        er.ISVProdID,
		ISVSVN:           er.ISVSVN,
		Cached:           cached,
	}
}

// kindStatus maps a VerifyError's Kind to the HTTP status it surfaces as,
// per the client-vs-server fault split in the service's error taxonomy:
// malformed or untrusted input is a 4xx, an unrepresentable clock is a 5xx.
func kindStatus(kind attestation.Kind) int {
	switch kind {
	case attestation.KindParse, attestation.KindCert:
		return http.StatusBadRequest
	case attestation.KindCrypto:
		return http.StatusUnauthorized
	case attestation.KindReport:
		return http.StatusUnprocessableEntity
	case attestation.KindTime:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVerify decodes a submitted attestation certificate, consults the
// result cache, and falls through to internal/attestation.Verify on a miss.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ParseError", "request body is not valid JSON")
		return
	}
	if req.CertificateDER == "" {
		writeError(w, http.StatusBadRequest, "ParseError", "certificate_der is required")
		return
	}
	certDER, err := base64.StdEncoding.DecodeString(req.CertificateDER)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ParseError", "certificate_der is not valid base64")
		return
	}

	key := attestcache.Key(certDER)
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			s.mx.ObserveCache("hit")
			writeJSON(w, http.StatusOK, toVerifyResponse(report, true))
			return
		}
		s.mx.ObserveCache("miss")
	}

	if s.cache != nil {
		if err := s.cache.Wait(r.Context()); err != nil {
			writeError(w, http.StatusTooManyRequests, "RateLimited", "verification rate limit exceeded")
			return
		}
	}

	rootCA := s.rootCA.Load()
	if rootCA == nil {
		writeError(w, http.StatusInternalServerError, "ConfigError", "no IAS root CA configured")
		return
	}

	start := time.Now()
	report, verr := attestation.Verify(certDER, rootCA.Raw, attestation.SystemClock{})
	elapsed := time.Since(start).Seconds()

	if verr != nil {
		var ve *attestation.VerifyError
		kind := attestation.KindParse
		msg := verr.Error()
		if errors.As(verr, &ve) {
			kind = ve.Kind
		}
		s.mx.ObserveVerify(kind.String(), elapsed)
		s.log.Info("attestation verification failed", zap.String("kind", kind.String()), zap.Error(verr))
		writeError(w, kindStatus(kind), kind.String(), msg)
		return
	}

	if s.cfg.MaxFreshness > 0 && report.Freshness > s.cfg.MaxFreshness {
		s.mx.ObserveVerify("stale", elapsed)
		writeError(w, http.StatusUnprocessableEntity, "ReportError", "report exceeds configured maximum freshness")
		return
	}

	s.mx.ObserveVerify("ok", elapsed)
	if s.cache != nil {
		s.cache.Put(key, report)
	}
	writeJSON(w, http.StatusOK, toVerifyResponse(report, false))
}

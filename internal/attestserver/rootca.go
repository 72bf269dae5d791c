package attestserver

import (
	"crypto/x509"
	"sync/atomic"
)

// rootCAHolder lets the scheduler hot-swap the pinned IAS root CA
// certificate without a lock in the request path.
type rootCAHolder struct {
	v atomic.Pointer[x509.Certificate]
}

func newRootCAHolder(cert *x509.Certificate) *rootCAHolder {
	h := &rootCAHolder{}
	h.v.Store(cert)
	return h
}

func (h *rootCAHolder) Load() *x509.Certificate { return h.v.Load() }

func (h *rootCAHolder) Store(cert *x509.Certificate) { h.v.Store(cert) }

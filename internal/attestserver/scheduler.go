package attestserver

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the periodic maintenance jobs a running attestation server
// needs: purging expired cache entries and hot-reloading the pinned IAS
// root CA from disk, without a restart.
type Scheduler struct {
	cron       *cron.Cron
	server     *Server
	rootCAPath string
	log        *zap.Logger
	mu         sync.Mutex
	stopOnce   sync.Once
}

// NewScheduler builds a Scheduler for server. rootCAPath may be empty, in
// which case the root-CA-reload job is never scheduled.
func NewScheduler(server *Server, rootCAPath string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:       cron.New(),
		server:     server,
		rootCAPath: rootCAPath,
		log:        log,
	}
}

// Start schedules the maintenance jobs and starts the underlying cron
// runner. spec is a robfig/cron schedule expression, e.g. "@every 10m".
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.cron.AddFunc(spec, s.purgeExpiredCache); err != nil {
		return fmt.Errorf("failed to schedule cache purge job: %w", err)
	}
	if s.rootCAPath != "" {
		if _, err := s.cron.AddFunc(spec, s.reloadRootCA); err != nil {
			return fmt.Errorf("failed to schedule root CA reload job: %w", err)
		}
	}

	s.log.Info("starting attestation server scheduler", zap.String("spec", spec))
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping attestation server scheduler")
		ctx := s.cron.Stop()
		<-ctx.Done()
	})
}

func (s *Scheduler) purgeExpiredCache() {
	if s.server.cache == nil {
		return
	}
	before := s.server.cache.Len()
	s.server.cache.PurgeExpired()
	after := s.server.cache.Len()
	if before != after {
		s.log.Info("purged expired cache entries", zap.Int("removed", before-after))
	}
}

func (s *Scheduler) reloadRootCA() {
	der, err := loadRootCAFile(s.rootCAPath)
	if err != nil {
		s.log.Error("failed to reload IAS root CA", zap.String("path", s.rootCAPath), zap.Error(err))
		return
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		s.log.Error("reloaded IAS root CA is not a valid certificate", zap.String("path", s.rootCAPath), zap.Error(err))
		return
	}
	s.server.rootCA.Store(cert)
	s.log.Info("reloaded IAS root CA", zap.String("path", s.rootCAPath))
}

// loadRootCAFile reads a PEM or DER-encoded certificate file and returns
// its DER bytes.
func loadRootCAFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(raw); block != nil {
		return block.Bytes, nil
	}
	return raw, nil
}

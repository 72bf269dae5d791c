package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/r3e-network/sgx-attest-verifier/internal/attestcache"
	"github.com/r3e-network/sgx-attest-verifier/internal/attestconfig"
	"github.com/r3e-network/sgx-attest-verifier/internal/attestserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the attestation verification HTTP server",
	RunE:  runServe,
}

func loadRootCACert(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read root CA file %q: %w", path, err)
	}
	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("root CA file %q is not a valid certificate: %w", path, err)
	}
	return cert, nil
}

func newZapLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}

func runServe(cmd *cobra.Command, args []string) error {
	var cfg attestconfig.Config
	if cfgFile != "" {
		loaded, err := attestconfig.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = attestconfig.Default()
	}

	log, err := newZapLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	rootCA, err := loadRootCACert(cfg.RootCAPath)
	if err != nil {
		return err
	}

	cache, err := attestcache.New(attestcache.Config{
		Size:      cfg.Cache.Size,
		TTL:       cfg.Cache.TTL,
		RateLimit: cfg.Cache.RateLimit,
		Burst:     cfg.Cache.Burst,
	}, logrus.New())
	if err != nil {
		return fmt.Errorf("failed to build verification cache: %w", err)
	}

	srv := attestserver.New(attestserver.Config{
		ListenAddr:   cfg.ListenAddr,
		MaxFreshness: cfg.MaxFreshness,
	}, cache, rootCA, log)

	sched := attestserver.NewScheduler(srv, cfg.RootCAPath, log)
	if err := sched.Start(cfg.Scheduler.Spec); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
		return err
	case sig := <-sigCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Package attestconfig holds the YAML-backed configuration for the
// attestation service and CLI, loaded via viper.
package attestconfig

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// CacheConfig tunes the verification-result cache and its rate limiter.
type CacheConfig struct {
	Size      int           `yaml:"size" mapstructure:"size"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RateLimit float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst     int           `yaml:"burst" mapstructure:"burst"`
}

// SchedulerConfig tunes the periodic maintenance job.
type SchedulerConfig struct {
	// Spec is a robfig/cron schedule expression, e.g. "@every 10m".
	Spec string `yaml:"spec" mapstructure:"spec"`
}

// Config is the root configuration object for attestd.
type Config struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
	RootCAPath string `yaml:"root_ca_path" mapstructure:"root_ca_path"`
	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`

	// MaxFreshness caps how old an IAS report timestamp may be before the
	// server rejects it. Zero means uncapped. This is a caller-side policy
	// decision, never enforced inside internal/attestation.Verify itself.
	MaxFreshness time.Duration `yaml:"max_freshness" mapstructure:"max_freshness"`

	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
}

// Default returns a Config with production-sane defaults, mirroring the
// zero-value-defaulting constructors the rest of this corpus favors.
func Default() Config {
	return Config{
		ListenAddr:   ":8443",
		RootCAPath:   "./ias-root-ca.pem",
		LogLevel:     "info",
		MaxFreshness: 0,
		Cache: CacheConfig{
			Size:      1000,
			TTL:       time.Hour,
			RateLimit: 100,
			Burst:     10,
		},
		Scheduler: SchedulerConfig{
			Spec: "@every 10m",
		},
	}
}

// Load reads YAML configuration from path via viper, falling back to
// Default() for any field the file doesn't set. Environment variables
// prefixed ATTESTD_ (e.g. ATTESTD_LISTEN_ADDR) override file values.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ATTESTD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

package testsupport

import (
	"path/filepath"
	"testing"

	"newsforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Channel.ID = "test-channel"
	cfg.Channel.Topic = "testing"
	cfg.Channel.PresenterAVox = "voice-a"
	cfg.Channel.PresenterBVox = "voice-b"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithChannelID overrides the channel id on the test config.
func WithChannelID(id string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Channel.ID = id
	}
}

// WithProviderURL points the primary provider at a test server.
func WithProviderURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Providers.BaseURL = baseURL
	}
}

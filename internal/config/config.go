package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	MediaDir string `toml:"media_dir"`
	LogDir   string `toml:"log_dir"`
}

// Channel contains per-channel production defaults.
type Channel struct {
	ID            string `toml:"id"`
	Topic         string `toml:"topic"`
	Country       string `toml:"country"`
	PresenterAVox string `toml:"presenter_a_voice"`
	PresenterBVox string `toml:"presenter_b_voice"`
	AspectRatio   string `toml:"aspect_ratio"`
	Resolution    string `toml:"resolution"`
}

// Cache contains content cache tuning.
type Cache struct {
	ScriptTTLHours        int     `toml:"script_ttl_hours"`
	HookTTLHours          int     `toml:"hook_ttl_hours"`
	MetadataTTLHours      int     `toml:"metadata_ttl_hours"`
	FuzzyThreshold        float64 `toml:"fuzzy_threshold"`
	FuzzyReuseThreshold   float64 `toml:"fuzzy_reuse_threshold"`
	DurableCandidateLimit int     `toml:"durable_candidate_limit"`
}

// Assets contains asset similarity tuning.
type Assets struct {
	MinSimilarity float64 `toml:"min_similarity"`
}

// Providers contains generation backend connection settings.
type Providers struct {
	BaseURL          string `toml:"base_url"`
	APIKey           string `toml:"api_key"`
	FallbackBaseURL  string `toml:"fallback_base_url"`
	FallbackAPIKey   string `toml:"fallback_api_key"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	BatchConcurrency int    `toml:"batch_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for newsforge.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Channel   Channel   `toml:"channel"`
	Cache     Cache     `toml:"cache"`
	Assets    Assets    `toml:"assets"`
	Providers Providers `toml:"providers"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/newsforge/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newsforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("expand data_dir: %w", err)
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("expand media_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("expand log_dir: %w", err)
	}
	c.Channel.ID = strings.TrimSpace(c.Channel.ID)
	c.Channel.AspectRatio = strings.TrimSpace(c.Channel.AspectRatio)
	c.Channel.Resolution = strings.TrimSpace(c.Channel.Resolution)
	c.Providers.BaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.BaseURL), "/")
	c.Providers.FallbackBaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.FallbackBaseURL), "/")
	return nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.MediaDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}

package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateChannel(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateChannel() error {
	switch c.Channel.AspectRatio {
	case "16:9", "9:16":
	default:
		return fmt.Errorf("channel.aspect_ratio must be 16:9 or 9:16, got %q", c.Channel.AspectRatio)
	}
	if c.Channel.Resolution == "" {
		return errors.New("channel.resolution must be set")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.ScriptTTLHours <= 0 {
		return errors.New("cache.script_ttl_hours must be positive")
	}
	if c.Cache.HookTTLHours <= 0 {
		return errors.New("cache.hook_ttl_hours must be positive")
	}
	if c.Cache.MetadataTTLHours <= 0 {
		return errors.New("cache.metadata_ttl_hours must be positive")
	}
	if c.Cache.FuzzyThreshold < 0 || c.Cache.FuzzyThreshold > 1 {
		return errors.New("cache.fuzzy_threshold must be between 0 and 1")
	}
	if c.Cache.FuzzyReuseThreshold < 0 || c.Cache.FuzzyReuseThreshold > 1 {
		return errors.New("cache.fuzzy_reuse_threshold must be between 0 and 1")
	}
	if c.Cache.DurableCandidateLimit <= 0 {
		return errors.New("cache.durable_candidate_limit must be positive")
	}
	return nil
}

func (c *Config) validateAssets() error {
	if c.Assets.MinSimilarity < 0 || c.Assets.MinSimilarity > 1 {
		return errors.New("assets.min_similarity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if c.Providers.TimeoutSeconds <= 0 {
		return errors.New("providers.timeout_seconds must be positive")
	}
	if c.Providers.BatchConcurrency <= 0 {
		return errors.New("providers.batch_concurrency must be positive")
	}
	return nil
}

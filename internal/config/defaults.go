package config

const (
	defaultDataDir               = "~/.local/share/newsforge/data"
	defaultMediaDir              = "~/.local/share/newsforge/media"
	defaultLogDir                = "~/.local/share/newsforge/logs"
	defaultAspectRatio           = "16:9"
	defaultResolution            = "720p"
	defaultScriptTTLHours        = 24
	defaultHookTTLHours          = 12
	defaultMetadataTTLHours      = 24
	defaultFuzzyThreshold        = 0.8
	defaultFuzzyReuseThreshold   = 0.85
	defaultDurableCandidateLimit = 100
	defaultMinSimilarity         = 0.6
	defaultProviderTimeout       = 300
	defaultBatchConcurrency      = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
		},
		Channel: Channel{
			AspectRatio: defaultAspectRatio,
			Resolution:  defaultResolution,
		},
		Cache: Cache{
			ScriptTTLHours:        defaultScriptTTLHours,
			HookTTLHours:          defaultHookTTLHours,
			MetadataTTLHours:      defaultMetadataTTLHours,
			FuzzyThreshold:        defaultFuzzyThreshold,
			FuzzyReuseThreshold:   defaultFuzzyReuseThreshold,
			DurableCandidateLimit: defaultDurableCandidateLimit,
		},
		Assets: Assets{
			MinSimilarity: defaultMinSimilarity,
		},
		Providers: Providers{
			TimeoutSeconds:   defaultProviderTimeout,
			BatchConcurrency: defaultBatchConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

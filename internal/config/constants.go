package config

const (
	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Background Defaults
	DefaultBackgroundBaseURL     = "https://api.real-debrid.com/rest/1.0"
	DefaultBackgroundTimeoutSecs = 30
	DefaultBackgroundMaxRetries  = 2
	DefaultBackgroundUserAgent   = "linkscout/1.0"

	// Scanner Defaults
	DefaultPatternTTLSeconds = 300
	DefaultDebounceMs        = 1000

	// Preferences Defaults
	DefaultPreferencesPath          = "preferences.yaml"
	DefaultPreferencesReloadDelayMs = 500

	// Browser Defaults
	DefaultBrowserPageLoadTimeoutSecs = 30
	DefaultBrowserWaitAfterLoadMs     = 500

	// Reporter Defaults
	DefaultReporterCompressionCodec = "zstd"

	// ConfigPathEnv overrides config discovery
	ConfigPathEnv = "LINKSCOUT_CONFIG_PATH"
)

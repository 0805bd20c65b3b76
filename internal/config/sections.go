package config

import "time"

// BackgroundConfig points the background collaborator at a debrid-style REST API
type BackgroundConfig struct {
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"required,url"`
	APIToken    string `json:"api_token,omitempty" yaml:"api_token,omitempty"`
	TimeoutSecs int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
	MaxRetries  int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"omitempty,min=0"`
	UserAgent   string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// NewDefaultBackgroundConfig creates default background configuration
func NewDefaultBackgroundConfig() BackgroundConfig {
	return BackgroundConfig{
		BaseURL:     DefaultBackgroundBaseURL,
		TimeoutSecs: DefaultBackgroundTimeoutSecs,
		MaxRetries:  DefaultBackgroundMaxRetries,
		UserAgent:   DefaultBackgroundUserAgent,
	}
}

// Timeout returns the request timeout as a duration
func (c BackgroundConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ScannerConfig tunes the pattern cache and the rescan debounce
type ScannerConfig struct {
	PatternTTLSeconds int  `json:"pattern_ttl_seconds,omitempty" yaml:"pattern_ttl_seconds,omitempty" validate:"omitempty,min=1"`
	DebounceMs        int  `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty" validate:"omitempty,min=1"`
	StrictPatterns    bool `json:"strict_patterns" yaml:"strict_patterns"`
}

// NewDefaultScannerConfig creates default scanner configuration
func NewDefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		PatternTTLSeconds: DefaultPatternTTLSeconds,
		DebounceMs:        DefaultDebounceMs,
		StrictPatterns:    false,
	}
}

// PatternTTL returns the pattern cache time-to-live
func (c ScannerConfig) PatternTTL() time.Duration {
	if c.PatternTTLSeconds <= 0 {
		return DefaultPatternTTLSeconds * time.Second
	}
	return time.Duration(c.PatternTTLSeconds) * time.Second
}

// Debounce returns the quiet period before a triggered rescan
func (c ScannerConfig) Debounce() time.Duration {
	if c.DebounceMs <= 0 {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// PreferencesConfig locates the preference record
type PreferencesConfig struct {
	Path          string `json:"path,omitempty" yaml:"path,omitempty"`
	HotReload     bool   `json:"hot_reload" yaml:"hot_reload"`
	ReloadDelayMs int    `json:"reload_delay_ms,omitempty" yaml:"reload_delay_ms,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultPreferencesConfig creates default preferences configuration
func NewDefaultPreferencesConfig() PreferencesConfig {
	return PreferencesConfig{
		Path:          DefaultPreferencesPath,
		HotReload:     true,
		ReloadDelayMs: DefaultPreferencesReloadDelayMs,
	}
}

// ReloadDelay returns how long file events are coalesced before a reload
func (c PreferencesConfig) ReloadDelay() time.Duration {
	return time.Duration(c.ReloadDelayMs) * time.Millisecond
}

// BrowserConfig controls the headless browser used for rendered documents
type BrowserConfig struct {
	ChromePath          string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty" validate:"omitempty,fileexists"`
	Headless            bool   `json:"headless" yaml:"headless"`
	PageLoadTimeoutSecs int    `json:"page_load_timeout_secs,omitempty" yaml:"page_load_timeout_secs,omitempty" validate:"omitempty,min=1"`
	WaitAfterLoadMs     int    `json:"wait_after_load_ms,omitempty" yaml:"wait_after_load_ms,omitempty" validate:"omitempty,min=0"`
	UserAgent           string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// NewDefaultBrowserConfig creates default browser configuration
func NewDefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:            true,
		PageLoadTimeoutSecs: DefaultBrowserPageLoadTimeoutSecs,
		WaitAfterLoadMs:     DefaultBrowserWaitAfterLoadMs,
		UserAgent:           DefaultBackgroundUserAgent,
	}
}

// PageLoadTimeout returns the navigation timeout
func (c BrowserConfig) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutSecs) * time.Second
}

// ReporterConfig selects report sinks besides the log
type ReporterConfig struct {
	ParquetPath      string `json:"parquet_path,omitempty" yaml:"parquet_path,omitempty"`
	CompressionCodec string `json:"compression_codec,omitempty" yaml:"compression_codec,omitempty" validate:"omitempty,oneof=zstd gzip snappy none"`
}

// NewDefaultReporterConfig creates default reporter configuration
func NewDefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		CompressionCodec: DefaultReporterCompressionCodec,
	}
}

// MetricsConfig enables the prometheus endpoint
type MetricsConfig struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" validate:"omitempty,listenaddr"`
}

// NewDefaultMetricsConfig creates default metrics configuration
func NewDefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{}
}

package models

// Preferences gates the auto-scan loop. The zero value is not the default; use
// DefaultPreferences.
type Preferences struct {
	AutoScanEnabled bool `json:"autoScanEnabled" yaml:"auto_scan_enabled"`
	AutoUnrestrict  bool `json:"autoUnrestrict" yaml:"auto_unrestrict"`
}

// DefaultPreferences returns the preferences used when no record is stored
func DefaultPreferences() Preferences {
	return Preferences{
		AutoScanEnabled: true,
		AutoUnrestrict:  true,
	}
}

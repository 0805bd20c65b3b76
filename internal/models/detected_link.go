package models

import "encoding/json"

// LinkType classifies a detected link
type LinkType string

const (
	LinkTypeHoster LinkType = "hoster"
	LinkTypeMagnet LinkType = "magnet"
)

const (
	// MagnetHost is the display host of every magnet URI
	MagnetHost = "magnet"
	// UnknownHost is the display host when a URL cannot be parsed
	UnknownHost = "unknown"
)

// DetectedLink is one outbound link found in a document. Identity is URL, compared
// byte for byte.
type DetectedLink struct {
	URL  string   `json:"url"`
	Host string   `json:"host"`
	Type LinkType `json:"type"`
	// UnrestrictedLink is the opaque unrestrict result, nil until one is known.
	UnrestrictedLink json.RawMessage `json:"unrestrictedLink,omitempty"`
}

// IsHoster reports whether the link points at a supported file hoster
func (l DetectedLink) IsHoster() bool {
	return l.Type == LinkTypeHoster
}

// HasUnrestricted reports whether an unrestrict result is attached
func (l DetectedLink) HasUnrestricted() bool {
	return len(l.UnrestrictedLink) > 0
}

// CountByType returns how many hoster and magnet links a list holds
func CountByType(links []DetectedLink) (hosters, magnets int) {
	for _, l := range links {
		switch l.Type {
		case LinkTypeHoster:
			hosters++
		case LinkTypeMagnet:
			magnets++
		}
	}
	return hosters, magnets
}

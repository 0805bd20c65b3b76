package models

// ScanResponse answers an explicit on-demand scan request
type ScanResponse struct {
	Success bool           `json:"success"`
	Links   []DetectedLink `json:"links,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// NewScanSuccess builds a successful response
func NewScanSuccess(links []DetectedLink) ScanResponse {
	if links == nil {
		links = []DetectedLink{}
	}
	return ScanResponse{Success: true, Links: links}
}

// NewScanFailure builds a failed response carrying a readable message
func NewScanFailure(err error) ScanResponse {
	msg := "scan failed"
	if err != nil {
		msg = err.Error()
	}
	return ScanResponse{Success: false, Error: msg}
}

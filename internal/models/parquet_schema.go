package models

import "time"

// LinkRecord is one reported link as stored in Parquet. Timestamps are UnixMilli.
type LinkRecord struct {
	ReportedAt   int64   `parquet:"reported_at"`
	SessionID    string  `parquet:"session_id"`
	URL          string  `parquet:"url"`
	Host         string  `parquet:"host"`
	Type         string  `parquet:"type"`
	Unrestricted *string `parquet:"unrestricted_json,optional"`
}

// NewLinkRecord flattens a DetectedLink for storage
func NewLinkRecord(l DetectedLink, sessionID string, at time.Time) LinkRecord {
	rec := LinkRecord{
		ReportedAt: at.UnixMilli(),
		SessionID:  sessionID,
		URL:        l.URL,
		Host:       l.Host,
		Type:       string(l.Type),
	}
	if l.HasUnrestricted() {
		s := string(l.UnrestrictedLink)
		rec.Unrestricted = &s
	}
	return rec
}

package models

import "time"

// IngestionResult summarizes one end-to-end ingestion batch. Per-line and
// per-claim failures are recovered locally and surface here as counters;
// RawClaimsExtracted = ClaimsSaved + ErrorCount for a partially bad batch.
type IngestionResult struct {
	SourceType               string    `json:"sourceType"`
	SourceID                 string    `json:"sourceId"`
	RawClaimsExtracted       int       `json:"rawClaimsExtracted"`
	ClaimsAfterNormalization int       `json:"claimsAfterNormalization"`
	ClaimsSaved              int       `json:"claimsSaved"`
	ErrorCount               int       `json:"errorCount"`
	ProcessingTimeMs         int64     `json:"processingTimeMs"`
	StartTime                time.Time `json:"startTime"`
}

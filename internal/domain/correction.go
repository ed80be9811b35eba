package domain

import "time"

// DataQualityCorrection is an audit row for every edit the politician
// normalizer makes. Corresponds to data_quality_corrections table.
type DataQualityCorrection struct {
	ID          int64 // BIGSERIAL primary key
	TableName   string
	RecordID    int64
	FieldName   string
	OldValue    string
	NewValue    string
	Confidence  float64 // 1.0 for deterministic rewrites
	CorrectedBy string  // job or operator identifier
	Status      string  // "applied" | "proposed"
	CreatedAt   time.Time
}

// Correction status constants.
const (
	CorrectionApplied  = "applied"
	CorrectionProposed = "proposed"
)

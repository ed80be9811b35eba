package domain

import "time"

// PipelineRunMetric is one stage outcome of one pipeline run, kept as
// append-only history in ClickHouse for throughput analysis.
type PipelineRunMetric struct {
	RunID           string // UUID shared by all stages of one run
	Source          string
	Stage           string // "ingest" | "clean" | "normalize" | "publish"
	Status          string // "success" | "partial_success" | "failed" | "skipped"
	RecordsInput    int64
	RecordsOutput   int64
	RecordsSkipped  int64
	RecordsFailed   int64
	DurationSeconds float64
	StartedAt       time.Time
}

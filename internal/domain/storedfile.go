package domain

import "time"

// ParseStatus tracks whether a stored raw artifact has been parsed yet.
type ParseStatus string

const (
	ParseStatusPending ParseStatus = "pending"
	ParseStatusSuccess ParseStatus = "success"
	ParseStatusFailed  ParseStatus = "failed"
)

// IsValid checks if the parse status is a valid value.
func (p ParseStatus) IsValid() bool {
	return p == ParseStatusPending || p == ParseStatusSuccess || p == ParseStatusFailed
}

// Logical blob buckets.
const (
	BucketRawPDFs      = "raw-pdfs"
	BucketAPIResponses = "api-responses"
	BucketParsedData   = "parsed-data"
)

// StoredFile is metadata for a raw artifact persisted in a blob bucket.
// Corresponds to stored_files table in PostgreSQL.
// (storage_bucket, file_hash_sha256) is unique: re-uploading identical content
// reuses the existing row.
type StoredFile struct {
	ID                int64 // BIGSERIAL primary key
	StorageBucket     string
	StoragePath       string
	FileType          string // "pdf" | "json"
	FileSizeBytes     int64
	FileHashSHA256    string // hex-encoded
	MimeType          string
	SourceURL         string // optional
	SourceType        string
	ParseStatus       ParseStatus
	ParseError        string
	ParsedAt          *time.Time
	TransactionsFound int
	ExpiresAt         time.Time
	DisclosureID      *int64 // weak reference; disclosure deletion does not cascade
	CreatedAt         time.Time
}

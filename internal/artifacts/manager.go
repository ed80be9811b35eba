package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/blob"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/observability"
	"disclosure-lab/internal/storage"
)

// Retention per bucket.
const (
	pdfRetention    = 365 * 24 * time.Hour
	apiRetention    = 90 * 24 * time.Hour
	parsedRetention = 730 * 24 * time.Hour
)

// maxNameLen caps the sanitized politician name in PDF paths.
const maxNameLen = 50

// Manager persists raw artifacts (PDFs, API responses, parsed payloads) in
// blob buckets with content-hash dedup, and tracks them in stored_files.
type Manager struct {
	blobs       blob.Store
	files       storage.StoredFileStore
	disclosures storage.DisclosureStore
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager creates an artifacts manager. disclosures may be nil when PDF
// linkage is not needed (e.g. API-response-only sources).
func NewManager(blobs blob.Store, files storage.StoredFileStore, disclosures storage.DisclosureStore, logger *zap.Logger) *Manager {
	return &Manager{
		blobs:       blobs,
		files:       files,
		disclosures: disclosures,
		metrics:     observability.DefaultMetrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SavePDF stores a raw disclosure PDF. Identical bytes already present in the
// bucket reuse the existing metadata row without re-uploading. On success the
// linked disclosure row gets has_raw_pdf and source_file_id set.
func (m *Manager) SavePDF(ctx context.Context, data []byte, disclosureID int64, politicianName, sourceURL string, transactionDate time.Time, sourceType string) (string, int64, error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("empty pdf payload")
	}

	hash := hashBytes(data)
	if existing, err := m.files.GetByHash(ctx, domain.BucketRawPDFs, hash); err == nil {
		m.metrics.ArtifactDedupHits.Inc()
		m.linkDisclosure(ctx, disclosureID, existing.ID)
		return existing.StoragePath, existing.ID, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", 0, fmt.Errorf("check pdf hash: %w", err)
	}

	path := fmt.Sprintf("%s/%04d/%02d/%d_%s_%s.pdf",
		chamberFromSourceType(sourceType),
		transactionDate.Year(), int(transactionDate.Month()),
		disclosureID,
		sanitizeName(politicianName),
		transactionDate.Format("20060102"),
	)

	if err := m.blobs.Put(ctx, domain.BucketRawPDFs, path, data, "application/pdf"); err != nil {
		return "", 0, fmt.Errorf("upload pdf: %w", err)
	}

	fileID := m.insertMetadata(ctx, &domain.StoredFile{
		StorageBucket:  domain.BucketRawPDFs,
		StoragePath:    path,
		FileType:       "pdf",
		FileSizeBytes:  int64(len(data)),
		FileHashSHA256: hash,
		MimeType:       "application/pdf",
		SourceURL:      sourceURL,
		SourceType:     sourceType,
		ExpiresAt:      m.now().Add(pdfRetention),
		DisclosureID:   optionalID(disclosureID),
	})
	if fileID != 0 {
		m.linkDisclosure(ctx, disclosureID, fileID)
	}

	m.metrics.ArtifactsStored.WithLabelValues(domain.BucketRawPDFs).Inc()
	m.metrics.ArtifactBytesTotal.WithLabelValues(domain.BucketRawPDFs).Add(float64(len(data)))
	return path, fileID, nil
}

// SaveAPIResponse archives a raw API payload with 90-day retention.
// Returns the storage path and metadata row id.
func (m *Manager) SaveAPIResponse(ctx context.Context, payload []byte, source, endpoint string) (string, int64, error) {
	if len(payload) == 0 {
		return "", 0, fmt.Errorf("empty api payload")
	}

	hash := hashBytes(payload)
	if existing, err := m.files.GetByHash(ctx, domain.BucketAPIResponses, hash); err == nil {
		m.metrics.ArtifactDedupHits.Inc()
		return existing.StoragePath, existing.ID, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", 0, fmt.Errorf("check api response hash: %w", err)
	}

	now := m.now()
	path := fmt.Sprintf("%s/%04d/%02d/%02d/batch_%s.json",
		source, now.Year(), int(now.Month()), now.Day(),
		now.Format("20060102_150405"),
	)

	if err := m.blobs.Put(ctx, domain.BucketAPIResponses, path, payload, "application/json"); err != nil {
		return "", 0, fmt.Errorf("upload api response: %w", err)
	}

	fileID := m.insertMetadata(ctx, &domain.StoredFile{
		StorageBucket:  domain.BucketAPIResponses,
		StoragePath:    path,
		FileType:       "json",
		FileSizeBytes:  int64(len(payload)),
		FileHashSHA256: hash,
		MimeType:       "application/json",
		SourceURL:      endpoint,
		SourceType:     source,
		ExpiresAt:      now.Add(apiRetention),
	})

	m.metrics.ArtifactsStored.WithLabelValues(domain.BucketAPIResponses).Inc()
	m.metrics.ArtifactBytesTotal.WithLabelValues(domain.BucketAPIResponses).Add(float64(len(payload)))

	if count := CountRecords(payload); count >= 0 {
		m.logger.Debug("archived api response",
			zap.String("source", source),
			zap.String("path", path),
			zap.Int("records", count))
	}
	return path, fileID, nil
}

// SaveParsedData archives a parsed-transactions payload with 730-day
// retention, linked back to the source file it was extracted from.
func (m *Manager) SaveParsedData(ctx context.Context, payload []byte, sourceFileID int64, disclosureID int64) (string, int64, error) {
	if len(payload) == 0 {
		return "", 0, fmt.Errorf("empty parsed payload")
	}

	hash := hashBytes(payload)
	if existing, err := m.files.GetByHash(ctx, domain.BucketParsedData, hash); err == nil {
		m.metrics.ArtifactDedupHits.Inc()
		return existing.StoragePath, existing.ID, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", 0, fmt.Errorf("check parsed data hash: %w", err)
	}

	now := m.now()
	path := fmt.Sprintf("%04d/%02d/file_%d_%s.json",
		now.Year(), int(now.Month()), sourceFileID, now.Format("20060102_150405"))

	if err := m.blobs.Put(ctx, domain.BucketParsedData, path, payload, "application/json"); err != nil {
		return "", 0, fmt.Errorf("upload parsed data: %w", err)
	}

	fileID := m.insertMetadata(ctx, &domain.StoredFile{
		StorageBucket:  domain.BucketParsedData,
		StoragePath:    path,
		FileType:       "json",
		FileSizeBytes:  int64(len(payload)),
		FileHashSHA256: hash,
		MimeType:       "application/json",
		ExpiresAt:      now.Add(parsedRetention),
		DisclosureID:   optionalID(disclosureID),
	})

	m.metrics.ArtifactsStored.WithLabelValues(domain.BucketParsedData).Inc()
	m.metrics.ArtifactBytesTotal.WithLabelValues(domain.BucketParsedData).Add(float64(len(payload)))
	return path, fileID, nil
}

// MarkParsed records a successful parse of a stored file.
func (m *Manager) MarkParsed(ctx context.Context, fileID int64, transactionsFound int) error {
	return m.files.MarkParsed(ctx, fileID, transactionsFound)
}

// MarkFailed records a failed parse of a stored file.
func (m *Manager) MarkFailed(ctx context.Context, fileID int64, parseError string) error {
	return m.files.MarkFailed(ctx, fileID, parseError)
}

// FilesToParse returns pending files in the bucket for the reprocessing job,
// oldest first.
func (m *Manager) FilesToParse(ctx context.Context, bucket string, limit int) ([]*domain.StoredFile, error) {
	return m.files.ListPending(ctx, bucket, limit)
}

// Fetch retrieves the raw bytes of a stored file.
func (m *Manager) Fetch(ctx context.Context, f *domain.StoredFile) ([]byte, error) {
	return m.blobs.Get(ctx, f.StorageBucket, f.StoragePath)
}

// insertMetadata records the stored_files row. A failure here is logged and
// swallowed: the blob is already uploaded and must not be rolled back.
func (m *Manager) insertMetadata(ctx context.Context, f *domain.StoredFile) int64 {
	id, err := m.files.Insert(ctx, f)
	if err != nil {
		m.logger.Error("stored file metadata insert failed",
			zap.String("bucket", f.StorageBucket),
			zap.String("path", f.StoragePath),
			zap.Error(err))
		return 0
	}
	return id
}

// linkDisclosure sets raw-pdf linkage on the disclosure row, best-effort.
func (m *Manager) linkDisclosure(ctx context.Context, disclosureID, fileID int64) {
	if m.disclosures == nil || disclosureID == 0 || fileID == 0 {
		return
	}
	if err := m.disclosures.LinkStoredFile(ctx, disclosureID, fileID); err != nil {
		m.logger.Warn("link stored file to disclosure failed",
			zap.Int64("disclosure_id", disclosureID),
			zap.Int64("file_id", fileID),
			zap.Error(err))
	}
}

// CountRecords probes a JSON payload for the record list under common keys.
// Returns -1 when no known key holds an array.
func CountRecords(payload []byte) int {
	var top any
	if err := json.Unmarshal(payload, &top); err != nil {
		return -1
	}

	if arr, ok := top.([]any); ok {
		return len(arr)
	}
	obj, ok := top.(map[string]any)
	if !ok {
		return -1
	}
	for _, key := range []string{"data", "trades", "results", "records"} {
		if arr, ok := obj[key].([]any); ok {
			return len(arr)
		}
	}
	return -1
}

// hashBytes returns the hex-encoded SHA-256 of data.
func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sanitizeName lowercases a politician name and keeps only [a-z0-9_],
// truncated for path friendliness.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == ',' || r == '\'':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	if len(out) > maxNameLen {
		out = out[:maxNameLen]
	}
	if out == "" {
		out = "unknown"
	}
	return out
}

// chamberFromSourceType maps a source type onto the path chamber segment.
func chamberFromSourceType(sourceType string) string {
	if strings.Contains(sourceType, "senate") {
		return domain.ChamberSenate
	}
	return domain.ChamberHouse
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

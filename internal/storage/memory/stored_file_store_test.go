package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

func testStoredFile(hash string) *domain.StoredFile {
	return &domain.StoredFile{
		StorageBucket:  domain.BucketRawPDFs,
		StoragePath:    "house/2024/03/1001_pelosi_nancy_20240315.pdf",
		FileType:       "pdf",
		FileSizeBytes:  2048,
		FileHashSHA256: hash,
		MimeType:       "application/pdf",
		SourceType:     "us_house",
		ExpiresAt:      time.Now().UTC().Add(365 * 24 * time.Hour),
	}
}

func TestStoredFileStore_InsertAndGetByHash(t *testing.T) {
	ctx := context.Background()
	store := NewStoredFileStore()

	id, err := store.Insert(ctx, testStoredFile("abc123"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByHash(ctx, domain.BucketRawPDFs, "abc123")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("expected id %d, got %d", id, got.ID)
	}
	if got.ParseStatus != domain.ParseStatusPending {
		t.Errorf("expected pending status by default, got %q", got.ParseStatus)
	}

	// Same hash in a different bucket is a different row.
	other := testStoredFile("abc123")
	other.StorageBucket = domain.BucketAPIResponses
	if _, err := store.Insert(ctx, other); err != nil {
		t.Errorf("insert in different bucket failed: %v", err)
	}

	if _, err := store.Insert(ctx, testStoredFile("abc123")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestStoredFileStore_MarkParsed(t *testing.T) {
	ctx := context.Background()
	store := NewStoredFileStore()

	id, err := store.Insert(ctx, testStoredFile("abc123"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.MarkParsed(ctx, id, 7); err != nil {
		t.Fatalf("MarkParsed failed: %v", err)
	}
	got, _ := store.GetByID(ctx, id)
	if got.ParseStatus != domain.ParseStatusSuccess {
		t.Errorf("expected success status, got %q", got.ParseStatus)
	}
	if got.TransactionsFound != 7 {
		t.Errorf("expected 7 transactions, got %d", got.TransactionsFound)
	}
	if got.ParsedAt == nil {
		t.Error("expected parsed_at set")
	}

	if err := store.MarkParsed(ctx, 999, 0); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoredFileStore_MarkFailed(t *testing.T) {
	ctx := context.Background()
	store := NewStoredFileStore()

	id, err := store.Insert(ctx, testStoredFile("abc123"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.MarkFailed(ctx, id, "no text layer"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	got, _ := store.GetByID(ctx, id)
	if got.ParseStatus != domain.ParseStatusFailed {
		t.Errorf("expected failed status, got %q", got.ParseStatus)
	}
	if got.ParseError != "no text layer" {
		t.Errorf("expected parse error recorded, got %q", got.ParseError)
	}
}

func TestStoredFileStore_ListPending(t *testing.T) {
	ctx := context.Background()
	store := NewStoredFileStore()

	ids := make([]int64, 0, 3)
	for _, h := range []string{"h1", "h2", "h3"} {
		id, err := store.Insert(ctx, testStoredFile(h))
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		ids = append(ids, id)
	}
	if err := store.MarkParsed(ctx, ids[1], 3); err != nil {
		t.Fatalf("MarkParsed failed: %v", err)
	}

	pending, err := store.ListPending(ctx, domain.BucketRawPDFs, 10)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending files, got %d", len(pending))
	}
	if pending[0].ID != ids[0] || pending[1].ID != ids[2] {
		t.Errorf("expected ids %d,%d in order, got %d,%d", ids[0], ids[2], pending[0].ID, pending[1].ID)
	}

	capped, err := store.ListPending(ctx, domain.BucketRawPDFs, 1)
	if err != nil {
		t.Fatalf("ListPending with limit failed: %v", err)
	}
	if len(capped) != 1 {
		t.Errorf("expected limit applied, got %d rows", len(capped))
	}
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

func newTestStoredFile(hash string) *domain.StoredFile {
	return &domain.StoredFile{
		StorageBucket:  domain.BucketRawPDFs,
		StoragePath:    "house/2024/03/1001_pelosi_nancy_20240315.pdf",
		FileType:       "pdf",
		FileSizeBytes:  2048,
		FileHashSHA256: hash,
		MimeType:       "application/pdf",
		SourceURL:      "https://disclosures-clerk.house.gov/doc.pdf",
		SourceType:     "us_house",
		ExpiresAt:      time.Now().UTC().Add(365 * 24 * time.Hour),
	}
}

func TestStoredFileStore_InsertAndGetByHash(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStoredFileStore(pool)
	ctx := context.Background()

	id, err := store.Insert(ctx, newTestStoredFile("abc123"))
	require.NoError(t, err)
	require.NotZero(t, id)

	retrieved, err := store.GetByHash(ctx, domain.BucketRawPDFs, "abc123")
	require.NoError(t, err)
	assert.Equal(t, id, retrieved.ID)
	assert.Equal(t, domain.ParseStatusPending, retrieved.ParseStatus)
	assert.Equal(t, int64(2048), retrieved.FileSizeBytes)
	assert.Nil(t, retrieved.ParsedAt)

	_, err = store.GetByHash(ctx, domain.BucketRawPDFs, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoredFileStore_DuplicateHashSameBucket(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStoredFileStore(pool)
	ctx := context.Background()

	_, err := store.Insert(ctx, newTestStoredFile("abc123"))
	require.NoError(t, err)

	_, err = store.Insert(ctx, newTestStoredFile("abc123"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same hash in a different bucket is allowed.
	other := newTestStoredFile("abc123")
	other.StorageBucket = domain.BucketAPIResponses
	other.FileType = "json"
	_, err = store.Insert(ctx, other)
	require.NoError(t, err)
}

func TestStoredFileStore_MarkParsedAndFailed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStoredFileStore(pool)
	ctx := context.Background()

	id, err := store.Insert(ctx, newTestStoredFile("h1"))
	require.NoError(t, err)

	require.NoError(t, store.MarkParsed(ctx, id, 7))
	retrieved, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ParseStatusSuccess, retrieved.ParseStatus)
	assert.Equal(t, 7, retrieved.TransactionsFound)
	assert.NotNil(t, retrieved.ParsedAt)

	failedID, err := store.Insert(ctx, newTestStoredFile("h2"))
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, failedID, "no text layer"))

	retrieved, err = store.GetByID(ctx, failedID)
	require.NoError(t, err)
	assert.Equal(t, domain.ParseStatusFailed, retrieved.ParseStatus)
	assert.Equal(t, "no text layer", retrieved.ParseError)

	assert.ErrorIs(t, store.MarkParsed(ctx, 99999, 0), storage.ErrNotFound)
	assert.ErrorIs(t, store.MarkFailed(ctx, 99999, "x"), storage.ErrNotFound)
}

func TestStoredFileStore_ListPending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStoredFileStore(pool)
	ctx := context.Background()

	var ids []int64
	for _, h := range []string{"h1", "h2", "h3"} {
		id, err := store.Insert(ctx, newTestStoredFile(h))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, store.MarkParsed(ctx, ids[1], 3))

	pending, err := store.ListPending(ctx, domain.BucketRawPDFs, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, ids[2], pending[1].ID)

	capped, err := store.ListPending(ctx, domain.BucketRawPDFs, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)

	empty, err := store.ListPending(ctx, domain.BucketParsedData, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

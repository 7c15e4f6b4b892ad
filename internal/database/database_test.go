package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefit-recommendation-api/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db
}

func documentIDs(docs []Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

func decodeBody(t *testing.T, d Document) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(d.Body, &body), "stored document is not JSON")
	return body
}

func TestUpsertAndListDocuments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	records := []models.BenefitRecord{
		{ID: "e1", Kind: models.KindEvent, Brand: "Acme", Event: &models.EventDetails{Notes: "gift"}},
		{ID: "o1", Kind: models.KindOffer, Brand: "Acme", Category: "Coffee"},
		{ID: "o2", Kind: models.KindOffer, Brand: "Beanery", Category: "Coffee"},
	}

	n, err := db.UpsertRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	docs, err := db.ListDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"o1", "o2", "e1"}, documentIDs(docs))

	body := decodeBody(t, docs[2])
	assert.Equal(t, "gift", body["notes"])
	assert.Equal(t, "event", body["type"])
}

func TestUpsertOverwritesInPlace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertRecords(ctx, []models.BenefitRecord{
		{ID: "o1", Kind: models.KindOffer, Title: "old"},
		{ID: "o2", Kind: models.KindOffer},
	})
	require.NoError(t, err)
	_, err = db.UpsertRecords(ctx, []models.BenefitRecord{
		{ID: "o1", Kind: models.KindOffer, Title: "new"},
	})
	require.NoError(t, err)

	docs, err := db.ListDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"o1", "o2"}, documentIDs(docs), "o1 keeps its position")
	assert.Equal(t, "new", decodeBody(t, docs[0])["title"])
}

func TestCountByKindAndDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertRecords(ctx, []models.BenefitRecord{
		{ID: "o1", Kind: models.KindOffer},
		{ID: "o2", Kind: models.KindOffer},
		{ID: "e1", Kind: models.KindEvent},
	})
	require.NoError(t, err)

	counts, err := db.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.KindOffer])
	assert.Equal(t, 1, counts[models.KindEvent])

	require.NoError(t, db.DeleteRecord(ctx, "o1"))
	assert.NoError(t, db.DeleteRecord(ctx, "missing"), "deleting a missing record should not fail")

	counts, err = db.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.KindOffer])
}

func TestUpsertRejectsUnknownKind(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.UpsertRecords(context.Background(), []models.BenefitRecord{{ID: "x", Kind: "banner"}})
	require.Error(t, err)

	docs, err := db.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs, "the failed transaction should write nothing")
}

func TestUpsertEmpty(t *testing.T) {
	db := setupTestDB(t)

	n, err := db.UpsertRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/database"
	"benefit-recommendation-api/internal/models"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	offers := filepath.Join(dir, "offers.json")
	events := filepath.Join(dir, "events.json")
	dbPath := filepath.Join(dir, "catalog.db")

	writeFile(t, offers, `[{"id":"o1","brand":"Acme"},{"brand":"no id"}]`)
	writeFile(t, events, `[{"id":"e1","notes":"free cookie"}]`)

	src := catalog.FileSource{OffersPath: offers, EventsPath: events}
	require.NoError(t, run(context.Background(), dbPath, src, nil))
	// Importing twice overwrites in place.
	require.NoError(t, run(context.Background(), dbPath, src, nil))

	db, err := database.NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	store := catalog.NewStore(catalog.SQLiteSource{DB: db}, nil)
	snap, err := store.Reload(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Offers, 1)
	assert.Equal(t, "o1", snap.Offers[0].ID)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "free cookie", snap.Events[0].Notes())
}

func TestRun_MissingFile(t *testing.T) {
	dir := t.TempDir()
	src := catalog.FileSource{OffersPath: filepath.Join(dir, "missing.json")}
	assert.Error(t, run(context.Background(), filepath.Join(dir, "catalog.db"), src, nil))
}

func TestRun_Delete(t *testing.T) {
	dir := t.TempDir()
	offers := filepath.Join(dir, "offers.json")
	dbPath := filepath.Join(dir, "catalog.db")
	writeFile(t, offers, `[{"id":"o1"},{"id":"o2"}]`)

	require.NoError(t, run(context.Background(), dbPath, catalog.FileSource{OffersPath: offers}, nil))
	require.NoError(t, run(context.Background(), dbPath, catalog.FileSource{}, []string{"o1", "missing"}))

	db, err := database.NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	counts, err := db.CountByKind(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.KindOffer])
}

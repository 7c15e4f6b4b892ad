package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"benefit-recommendation-api/internal/database"
	"benefit-recommendation-api/internal/events"
	"benefit-recommendation-api/internal/metrics"
	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/normalize"
)

// Snapshot is one immutable version of the catalog. Ranking passes read its
// slices and never write to them.
type Snapshot struct {
	Version  uint64
	Source   string
	Offers   []models.BenefitRecord
	Events   []models.BenefitRecord
	Skipped  int
	LoadedAt time.Time

	// Vocabulary holds the snapshot's brands and categories for plan
	// normalization.
	Vocabulary *normalize.Vocabulary
}

// Status summarises the snapshot.
func (s *Snapshot) Status() models.CatalogStatus {
	return models.CatalogStatus{
		Version:     s.Version,
		Source:      s.Source,
		OffersCount: len(s.Offers),
		EventsCount: len(s.Events),
		Skipped:     s.Skipped,
		LoadedAt:    s.LoadedAt,
	}
}

// Source produces the records of a catalog load.
type Source interface {
	Load(ctx context.Context) (ParseResult, error)
	Name() string
}

// Store serves the current catalog snapshot. Reload swaps in a fully built
// snapshot with a single pointer store.
type Store struct {
	source   Source
	events   *events.Manager
	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	version  uint64
}

// NewStore creates a Store with no snapshot loaded. em may be nil.
func NewStore(source Source, em *events.Manager) *Store {
	return &Store{source: source, events: em}
}

// Current returns the snapshot in service, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload loads the source and swaps the new snapshot in. On failure the
// previous snapshot stays in service.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	res, err := s.source.Load(ctx)
	if err != nil {
		metrics.RecordCatalogReload(err, 0, 0, 0)
		return nil, fmt.Errorf("failed to load catalog from %s: %w", s.source.Name(), err)
	}

	s.version++
	snap := &Snapshot{
		Version:  s.version,
		Source:   s.source.Name(),
		Offers:   res.Offers,
		Events:   res.Events,
		Skipped:  res.Skipped,
		LoadedAt: time.Now().UTC(),

		Vocabulary: normalize.NewVocabulary(res.Offers, res.Events),
	}
	s.current.Store(snap)

	metrics.RecordCatalogReload(nil, snap.Version, len(snap.Offers), len(snap.Events))
	s.events.PublishCatalogReloaded(ctx, events.CatalogReloadedData{
		Version:     snap.Version,
		Source:      snap.Source,
		OffersCount: len(snap.Offers),
		EventsCount: len(snap.Events),
		Skipped:     snap.Skipped,
	})
	return snap, nil
}

// FileSource reads offers and events from two JSON array files. Either path
// may be empty.
type FileSource struct {
	OffersPath string
	EventsPath string
}

func (f FileSource) Name() string {
	return "file"
}

func (f FileSource) Load(ctx context.Context) (ParseResult, error) {
	var res ParseResult
	for _, file := range []struct {
		path string
		kind models.Kind
	}{{f.OffersPath, models.KindOffer}, {f.EventsPath, models.KindEvent}} {
		if file.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return ParseResult{}, err
		}

		data, err := os.ReadFile(file.path)
		if err != nil {
			return ParseResult{}, fmt.Errorf("failed to read %s: %w", file.path, err)
		}
		part, err := Parse(data, file.kind)
		if err != nil {
			return ParseResult{}, fmt.Errorf("failed to parse %s: %w", file.path, err)
		}
		res = merge(res, part)
	}
	return res, nil
}

// merge appends b to a, skipping ids a already holds.
func merge(a, b ParseResult) ParseResult {
	seen := make(map[string]bool, len(a.Offers)+len(a.Events))
	for _, r := range a.Offers {
		seen[r.ID] = true
	}
	for _, r := range a.Events {
		seen[r.ID] = true
	}

	a.Skipped += b.Skipped
	for _, r := range b.Offers {
		if seen[r.ID] {
			a.Skipped++
			continue
		}
		seen[r.ID] = true
		a.Offers = append(a.Offers, r)
	}
	for _, r := range b.Events {
		if seen[r.ID] {
			a.Skipped++
			continue
		}
		seen[r.ID] = true
		a.Events = append(a.Events, r)
	}
	return a
}

// SQLiteSource reads the catalog from the benefit_records table.
type SQLiteSource struct {
	DB *database.DB
}

func (s SQLiteSource) Name() string {
	return "sqlite"
}

func (s SQLiteSource) Load(ctx context.Context) (ParseResult, error) {
	docs, err := s.DB.ListDocuments(ctx)
	if err != nil {
		return ParseResult{}, err
	}

	var res ParseResult
	for _, doc := range docs {
		rec, ok := ParseRecord(gjson.ParseBytes(doc.Body), doc.Kind)
		if !ok {
			res.Skipped++
			continue
		}
		if rec.Kind == models.KindEvent {
			res.Events = append(res.Events, rec)
		} else {
			res.Offers = append(res.Offers, rec)
		}
	}
	return res, nil
}

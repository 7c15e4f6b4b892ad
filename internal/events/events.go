package events

import (
	"context"
	"sync"
	"time"

	"benefit-recommendation-api/internal/logging"
)

// EventType represents the type of event.
type EventType string

const (
	// EventRecommendationsRanked is emitted after a primary ranking pass.
	EventRecommendationsRanked EventType = "recommendations.ranked"
	// EventAlternativesRanked is emitted after an alternatives pass.
	EventAlternativesRanked EventType = "alternatives.ranked"
	// EventCatalogReloaded is emitted when a new catalog snapshot is in service.
	EventCatalogReloaded EventType = "catalog.reloaded"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// RankedData describes a finished ranking pass. Only ids are carried so
// handlers never hold on to candidates.
type RankedData struct {
	RequestID      string
	Brand          string
	Category       string
	CatalogVersion uint64
	RecordIDs      []string
}

// AlternativesRankedData describes a finished alternatives pass.
type AlternativesRankedData struct {
	RequestID      string
	Brand          string
	Category       string
	CatalogVersion uint64
	NearTimeIDs    []string
	CategoryIDs    []string
}

// CatalogReloadedData describes the snapshot that was swapped in.
type CatalogReloadedData struct {
	Version     uint64
	Source      string
	OffersCount int
	EventsCount int
	Skipped     int
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	wg       sync.WaitGroup
	handlers map[EventType][]Handler
	enabled  func() bool
	closed   bool
}

// NewManager creates a new event manager. enabled is checked on every
// Publish so publishing can be switched at runtime; nil means always on.
func NewManager(enabled func() bool) *Manager {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type. Handlers are
// registered even while publishing is switched off.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish runs every handler subscribed to eventType in its own goroutine.
// Handlers get a context that is not cancelled when the request ends.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if m == nil || !m.enabled() {
		return
	}

	m.mu.RLock()
	if m.closed || len(m.handlers[eventType]) == 0 {
		m.mu.RUnlock()
		return
	}
	handlers := m.handlers[eventType]
	// Counted under the lock so Shutdown's Wait sees every handler.
	m.wg.Add(len(handlers))
	m.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	hctx := context.WithoutCancel(ctx)

	for _, handler := range handlers {
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(hctx, event); err != nil {
				logging.Ctx(hctx).Warn().Err(err).Str("event", string(event.Type)).Msg("event handler failed")
			}
		}(handler)
	}
}

// PublishRecommendationsRanked publishes a recommendations ranked event.
func (m *Manager) PublishRecommendationsRanked(ctx context.Context, data RankedData) {
	m.Publish(ctx, EventRecommendationsRanked, data)
}

// PublishAlternativesRanked publishes an alternatives ranked event.
func (m *Manager) PublishAlternativesRanked(ctx context.Context, data AlternativesRankedData) {
	m.Publish(ctx, EventAlternativesRanked, data)
}

// PublishCatalogReloaded publishes a catalog reloaded event.
func (m *Manager) PublishCatalogReloaded(ctx context.Context, data CatalogReloadedData) {
	m.Publish(ctx, EventCatalogReloaded, data)
}

// Wait blocks until every handler started so far has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown stops publishing and waits for running handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}

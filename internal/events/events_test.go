package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsSubscribedHandlers(t *testing.T) {
	m := NewManager(nil)

	var mu sync.Mutex
	var got []Event
	m.Subscribe(EventCatalogReloaded, func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})
	m.Subscribe(EventRecommendationsRanked, func(ctx context.Context, e Event) error {
		t.Errorf("unexpected handler call for %s", e.Type)
		return nil
	})

	m.PublishCatalogReloaded(context.Background(), CatalogReloadedData{Version: 3, OffersCount: 2})
	m.Wait()

	require.Len(t, got, 1)
	data, ok := got[0].Data.(CatalogReloadedData)
	require.True(t, ok, "unexpected payload type %T", got[0].Data)
	assert.Equal(t, uint64(3), data.Version)
	assert.Equal(t, 2, data.OffersCount)
}

func TestPublishOutlivesRequestContext(t *testing.T) {
	m := NewManager(nil)

	done := make(chan error, 1)
	m.Subscribe(EventAlternativesRanked, func(ctx context.Context, e Event) error {
		done <- ctx.Err()
		return errors.New("handler errors are only logged")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.PublishAlternativesRanked(ctx, AlternativesRankedData{RequestID: "r"})
	m.Wait()

	assert.NoError(t, <-done, "handler context should not be cancelled")
}

func TestDisabledManager(t *testing.T) {
	m := NewManager(func() bool { return false })

	var calls atomic.Int32
	m.Subscribe(EventRecommendationsRanked, func(ctx context.Context, e Event) error {
		calls.Add(1)
		return nil
	})
	m.PublishRecommendationsRanked(context.Background(), RankedData{})
	m.Wait()

	assert.Zero(t, calls.Load())
}

func TestManagerSwitchedAtRuntime(t *testing.T) {
	var on atomic.Bool
	m := NewManager(on.Load)

	var calls atomic.Int32
	m.Subscribe(EventCatalogReloaded, func(ctx context.Context, e Event) error {
		calls.Add(1)
		return nil
	})

	m.PublishCatalogReloaded(context.Background(), CatalogReloadedData{})
	m.Wait()
	require.Zero(t, calls.Load(), "switched off")

	on.Store(true)
	m.PublishCatalogReloaded(context.Background(), CatalogReloadedData{})
	m.Wait()
	assert.Equal(t, int32(1), calls.Load(), "handler subscribed while off should run once switched on")

	on.Store(false)
	m.PublishCatalogReloaded(context.Background(), CatalogReloadedData{})
	m.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestShutdownStopsPublishing(t *testing.T) {
	m := NewManager(nil)

	var calls atomic.Int32
	m.Subscribe(EventRecommendationsRanked, func(ctx context.Context, e Event) error {
		calls.Add(1)
		return nil
	})
	m.Shutdown()
	m.PublishRecommendationsRanked(context.Background(), RankedData{})
	m.Wait()

	assert.Zero(t, calls.Load())
}

func TestShutdownWaitsForConcurrentPublishers(t *testing.T) {
	m := NewManager(nil)

	var calls atomic.Int32
	m.Subscribe(EventRecommendationsRanked, func(ctx context.Context, e Event) error {
		calls.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.PublishRecommendationsRanked(context.Background(), RankedData{})
		}()
	}
	m.Shutdown()
	after := calls.Load()
	wg.Wait()
	m.Wait()

	assert.Equal(t, after, calls.Load(), "handlers ran after Shutdown returned")
}

func TestNilManagerPublish(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.PublishCatalogReloaded(context.Background(), CatalogReloadedData{})
	})
}

package narrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"

	"benefit-recommendation-api/internal/cache"
	"benefit-recommendation-api/internal/logging"
	"benefit-recommendation-api/internal/metrics"
	"benefit-recommendation-api/internal/models"
)

// CachedNarrator serves messages from a cache and only asks next for the
// items it has not seen for this plan. Cache errors degrade to misses.
type CachedNarrator struct {
	next  Narrator
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedNarrator(next Narrator, c cache.Cache, ttl time.Duration) *CachedNarrator {
	return &CachedNarrator{next: next, cache: c, ttl: ttl}
}

func (c *CachedNarrator) Name() string { return c.next.Name() }

type cachedMessage struct {
	Message string `json:"message"`
}

func (c *CachedNarrator) Narrate(ctx context.Context, plan models.Plan, items []Item) (map[string]string, error) {
	out := make(map[string]string, len(items))
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = cacheKey(c.next.Name(), plan, item)
	}

	hits, err := c.cache.GetMany(ctx, keys)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("narration cache read failed")
		hits = nil
	}

	var misses []Item
	for i, item := range items {
		var cached cachedMessage
		if raw, ok := hits[keys[i]]; ok && json.Unmarshal(raw, &cached) == nil && cached.Message != "" {
			metrics.NarrationCacheHits.Inc()
			out[item.ID] = cached.Message
			continue
		}
		metrics.NarrationCacheMisses.Inc()
		misses = append(misses, item)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := c.next.Narrate(ctx, plan, misses)
	if err != nil {
		return nil, err
	}

	entries := make(map[string][]byte, len(misses))
	for i, item := range items {
		msg, ok := fresh[item.ID]
		if !ok || msg == "" {
			continue
		}
		if _, hit := out[item.ID]; hit {
			continue
		}
		out[item.ID] = msg
		if raw, err := json.Marshal(cachedMessage{Message: msg}); err == nil {
			entries[keys[i]] = raw
		}
	}
	if err := c.cache.SetMany(ctx, entries, c.ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("narration cache write failed")
	}
	return out, nil
}

// cacheKey covers everything a message is written from, so a catalog edit
// to the record yields a new key.
func cacheKey(narrator string, plan models.Plan, item Item) string {
	body, _ := json.Marshal(struct {
		Plan models.Plan `json:"plan"`
		Item Item        `json:"item"`
	}{plan, item})
	sum := sha256.Sum256(body)
	return "narration:" + narrator + ":" + item.ID + ":" + hex.EncodeToString(sum[:16])
}

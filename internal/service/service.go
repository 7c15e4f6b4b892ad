package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"benefit-recommendation-api/internal/cache"
	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/events"
	"benefit-recommendation-api/internal/features"
	"benefit-recommendation-api/internal/logging"
	"benefit-recommendation-api/internal/metrics"
	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/narrate"
	"benefit-recommendation-api/internal/recommend"
	"benefit-recommendation-api/internal/tracing"
	"benefit-recommendation-api/internal/validation"
)

// ServiceName is reported by Health.
const ServiceName = "benefit-recommendation-api"

// ErrCatalogUnavailable is returned while no catalog snapshot is loaded.
var ErrCatalogUnavailable = errors.New("catalog not loaded")

// Options holds the optional collaborators of a Service.
type Options struct {
	Features *features.Manager
	Events   *events.Manager
	Cache    cache.Cache // narration cache; nil disables caching
	CacheTTL time.Duration
	Remote   narrate.Narrator // nil disables remote narration
	Version  string
}

// Service provides business logic for the benefit recommendation API.
type Service struct {
	store    *catalog.Store
	flags    *features.Manager
	events   *events.Manager
	cache    cache.Cache
	cacheTTL time.Duration
	remote   narrate.Narrator
	version  string
	now      func() time.Time
}

// NewService creates a new service instance.
func NewService(store *catalog.Store, opts Options) *Service {
	if opts.Features == nil {
		opts.Features = features.NewDefaultManager(nil)
	}
	return &Service{
		store:    store,
		flags:    opts.Features,
		events:   opts.Events,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		remote:   opts.Remote,
		version:  opts.Version,
		now:      time.Now,
	}
}

// Recommend ranks the catalog for the request's user and plan.
func (s *Service) Recommend(ctx context.Context, req models.RecommendRequest) (_ models.RecommendationResponse, err error) {
	snap, err := s.prepare(ctx, &req)
	if err != nil {
		return models.RecommendationResponse{}, err
	}

	ctx, span := tracing.Start(ctx, "service.Recommend", tracing.PlanAttributes(req.Plan, snap.Version)...)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	ranked, err := s.ranker().Rank(req.User, req.Plan, snap.Offers, snap.Events, req.TopK)
	if err != nil {
		return models.RecommendationResponse{}, err
	}
	metrics.RecordRanking("recommend", time.Since(start))
	metrics.RecordCandidates("recommendations", len(ranked))

	requestID := responseID(ctx)
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.Int("candidates", len(ranked)),
	)
	logging.Ctx(ctx).Debug().
		Str("brand", req.Plan.Brand).
		Str("category", req.Plan.Category).
		Int("candidates", len(ranked)).
		Msg("recommendations ranked")

	s.events.PublishRecommendationsRanked(ctx, events.RankedData{
		RequestID:      requestID,
		Brand:          req.Plan.Brand,
		Category:       req.Plan.Category,
		CatalogVersion: snap.Version,
		RecordIDs:      scoredIDs(ranked),
	})

	return models.RecommendationResponse{
		RequestID:       requestID,
		Recommendations: ranked,
		TotalCount:      len(ranked),
		CatalogVersion:  snap.Version,
		Timestamp:       s.timestamp(),
	}, nil
}

// RecommendAlternatives ranks the near-time and category alternative tracks.
func (s *Service) RecommendAlternatives(ctx context.Context, req models.RecommendRequest) (models.AlternativesResponse, error) {
	alts, snap, requestID, err := s.alternatives(ctx, &req)
	if err != nil {
		return models.AlternativesResponse{}, err
	}

	return models.AlternativesResponse{
		RequestID:            requestID,
		NearTimeOffers:       alts.NearTime,
		CategoryAlternatives: alts.CategoryAlternatives,
		CatalogVersion:       snap.Version,
		Timestamp:            s.timestamp(),
	}, nil
}

// AlternativeMessages ranks the alternative tracks and narrates each
// candidate. Narration failures never fail the request.
func (s *Service) AlternativeMessages(ctx context.Context, req models.RecommendRequest) (models.AlternativeMessagesResponse, error) {
	alts, _, requestID, err := s.alternatives(ctx, &req)
	if err != nil {
		return models.AlternativeMessagesResponse{}, err
	}

	n := s.narrator()
	ctx, span := tracing.Start(ctx, "service.Narrate", attribute.String("narrator", n.Name()))
	defer tracing.End(span, nil)

	msgs := narrate.Messages(ctx, n, req.Plan, alts.NearTime, alts.CategoryAlternatives)
	return models.AlternativeMessagesResponse{
		RequestID:            requestID,
		NearTimeOffers:       msgs[0],
		CategoryAlternatives: msgs[1],
	}, nil
}

// alternatives ranks both tracks. req is left sanitized and normalized so
// narration sees the same plan the ranking did.
func (s *Service) alternatives(ctx context.Context, req *models.RecommendRequest) (_ models.Alternatives, _ *catalog.Snapshot, _ string, err error) {
	snap, err := s.prepare(ctx, req)
	if err != nil {
		return models.Alternatives{}, nil, "", err
	}

	ctx, span := tracing.Start(ctx, "service.RecommendAlternatives", tracing.PlanAttributes(req.Plan, snap.Version)...)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	alts, err := s.ranker().RankAlternatives(req.User, req.Plan, snap.Offers, snap.Events, req.TopK)
	if err != nil {
		return models.Alternatives{}, nil, "", err
	}
	metrics.RecordRanking("alternatives", time.Since(start))
	metrics.RecordCandidates("near_time", len(alts.NearTime))
	metrics.RecordCandidates("category", len(alts.CategoryAlternatives))

	requestID := responseID(ctx)
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.Int("near_time", len(alts.NearTime)),
		attribute.Int("category_alternatives", len(alts.CategoryAlternatives)),
	)

	s.events.PublishAlternativesRanked(ctx, events.AlternativesRankedData{
		RequestID:      requestID,
		Brand:          req.Plan.Brand,
		Category:       req.Plan.Category,
		CatalogVersion: snap.Version,
		NearTimeIDs:    alternativeIDs(alts.NearTime),
		CategoryIDs:    alternativeIDs(alts.CategoryAlternatives),
	})

	return alts, snap, requestID, nil
}

// prepare sanitizes and validates req and returns the snapshot to rank
// against. With plan normalization on, the plan's brand and category are
// rewritten to the snapshot's spelling first.
func (s *Service) prepare(ctx context.Context, req *models.RecommendRequest) (*catalog.Snapshot, error) {
	validation.SanitizeRecommendRequest(req)
	if err := validation.ValidateRecommendRequest(*req); err != nil {
		return nil, err
	}

	snap := s.store.Current()
	if snap == nil {
		return nil, ErrCatalogUnavailable
	}

	if s.flags.IsEnabled(features.FeaturePlanNormalization) && snap.Vocabulary != nil {
		res := snap.Vocabulary.Normalize(req.Plan)
		if res.Changed {
			logging.Ctx(ctx).Info().
				Str("brand", req.Plan.Brand).
				Str("category", req.Plan.Category).
				Str("normalized_brand", res.Plan.Brand).
				Str("normalized_category", res.Plan.Category).
				Bool("swapped", res.Swapped).
				Msg("plan normalized")
			metrics.RecordPlanNormalized(res.Swapped)
			req.Plan = res.Plan
		}
	}
	return snap, nil
}

func (s *Service) ranker() *recommend.Ranker {
	return recommend.NewRanker(
		recommend.WithDayOfWeekFilter(s.flags.IsEnabled(features.FeatureDayOfWeekFilter)),
	)
}

func (s *Service) narrator() narrate.Narrator {
	var n narrate.Narrator = narrate.TemplateNarrator{}
	if s.remote != nil && s.flags.IsEnabled(features.FeatureRemoteNarration) {
		n = s.remote
	}
	if s.cache != nil && s.flags.IsEnabled(features.FeatureNarrationCache) {
		n = narrate.NewCachedNarrator(n, s.cache, s.cacheTTL)
	}
	return n
}

// ReloadCatalog swaps in a freshly loaded catalog. The old snapshot keeps
// serving if loading fails.
func (s *Service) ReloadCatalog(ctx context.Context) (models.CatalogStatus, error) {
	ctx, span := tracing.Start(ctx, "service.ReloadCatalog")
	snap, err := s.store.Reload(ctx)
	tracing.End(span, err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("catalog reload failed")
		return models.CatalogStatus{}, fmt.Errorf("failed to reload catalog: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("failed to clear narration cache")
		}
	}

	logging.Ctx(ctx).Info().
		Uint64("version", snap.Version).
		Str("source", snap.Source).
		Int("offers", len(snap.Offers)).
		Int("events", len(snap.Events)).
		Int("skipped", snap.Skipped).
		Msg("catalog reloaded")
	return snap.Status(), nil
}

// CatalogStatus describes the snapshot in service.
func (s *Service) CatalogStatus() (models.CatalogStatus, error) {
	snap := s.store.Current()
	if snap == nil {
		return models.CatalogStatus{}, ErrCatalogUnavailable
	}
	return snap.Status(), nil
}

// Features lists the feature flags and their current state.
func (s *Service) Features() []features.FeatureFlag {
	return s.flags.List()
}

// SetFeature toggles a flag at runtime. It takes effect on the next request.
func (s *Service) SetFeature(ctx context.Context, name string, enabled bool) (features.FeatureFlag, error) {
	flag, err := s.flags.Set(name, enabled)
	if err != nil {
		return features.FeatureFlag{}, err
	}
	logging.Ctx(ctx).Info().Str("flag", name).Bool("enabled", enabled).Msg("feature flag changed")
	return flag, nil
}

// Health reports liveness and whether a catalog is loaded.
func (s *Service) Health() models.HealthResponse {
	resp := models.HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: s.version,
	}
	if snap := s.store.Current(); snap != nil {
		resp.DataLoaded = true
		resp.OffersCount = len(snap.Offers)
		resp.EventsCount = len(snap.Events)
	}
	return resp
}

// responseID reuses the id the request is logged under and only mints one
// for callers outside the HTTP stack.
func responseID(ctx context.Context) string {
	if id := logging.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return logging.NewRequestID()
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func scoredIDs(cs []models.ScoredCandidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.Record.ID
	}
	return ids
}

func alternativeIDs(cs []models.AlternativeCandidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.Record.ID
	}
	return ids
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/NurulloMahmud/tafakkur/internal/cache"
	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/engine"
	"github.com/NurulloMahmud/tafakkur/internal/search/query"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
	"github.com/NurulloMahmud/tafakkur/pkg/tracing"
)

// PageCache caches translated search pages. Keys carry the entity's
// generation so pages computed before a write are never served after it.
type PageCache interface {
	Generation(ctx context.Context, entity domain.EntityType) (int64, error)
	Get(ctx context.Context, k cache.Key) (*domain.SearchPage, bool, error)
	Set(ctx context.Context, k cache.Key, page *domain.SearchPage) (bool, error)
}

// SearchOptions tunes the translator.
type SearchOptions struct {
	DefaultPageSize int
	MaxPageSize     int

	// FuzzyFallback reissues a zero-hit query with a typo-tolerant clause.
	FuzzyFallback bool
}

// SearchRequest is one translator call.
type SearchRequest struct {
	Entity   domain.EntityType
	Query    string
	Page     int
	PageSize int
	Fuzzy    bool
}

// SearchService translates text queries into engine requests and returns
// ranked pages of ids.
type SearchService struct {
	engine   engine.SearchEngine
	registry *Registry
	cache    PageCache
	opts     SearchOptions
	logger   *slog.Logger
}

// NewSearchService creates a search service. cache may be nil.
func NewSearchService(eng engine.SearchEngine, registry *Registry, cache PageCache, opts SearchOptions, logger *slog.Logger) *SearchService {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	return &SearchService{
		engine:   eng,
		registry: registry,
		cache:    cache,
		opts:     opts,
		logger:   logger,
	}
}

// Search returns one page of ranked hits. Blank query text yields an empty
// page without touching the engine. Engine failures surface as
// SEARCH_UNAVAILABLE and are never answered from the database.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (_ *domain.SearchPage, err error) {
	proj, err := s.registry.Get(req.Entity)
	if err != nil {
		return nil, err
	}

	page, size := s.clamp(req.Page, req.PageSize)
	text := strings.TrimSpace(req.Query)
	if text == "" {
		searchRequests.WithLabelValues(string(req.Entity), "empty").Inc()
		return &domain.SearchPage{Hits: []domain.Hit{}, Page: 1, PageSize: size}, nil
	}

	ctx, span := tracing.Start(ctx, "search."+string(req.Entity))
	defer func() { tracing.End(span, err) }()

	key := cache.Key{Entity: req.Entity, Query: text, Page: page, PageSize: size, Fuzzy: req.Fuzzy}
	cacheable := s.stamp(ctx, &key)
	if cacheable {
		if cached := s.fromCache(ctx, key); cached != nil {
			searchRequests.WithLabelValues(string(req.Entity), "cached").Inc()
			return cached, nil
		}
	}

	q, err := query.Build(text, proj.Fields, page, size, query.Options{Fuzzy: req.Fuzzy})
	if err != nil {
		return nil, err
	}

	res, err := s.run(ctx, proj, q)
	if err != nil {
		return nil, err
	}
	if res.Total == 0 && s.opts.FuzzyFallback && !q.HasFuzzy() {
		q = q.Relaxed()
		if res, err = s.run(ctx, proj, q); err != nil {
			return nil, err
		}
	}

	result := &domain.SearchPage{
		Hits:     res.Hits,
		Total:    res.Total,
		Page:     page,
		PageSize: size,
		TookMs:   res.TookMs,
		Relaxed:  q.HasFuzzy(),
	}
	if result.Hits == nil {
		result.Hits = []domain.Hit{}
	}

	outcome := "hit"
	if result.Total == 0 {
		outcome = "miss"
	}
	searchRequests.WithLabelValues(string(req.Entity), outcome).Inc()

	s.logger.DebugContext(ctx, "search executed",
		slog.String("entity", string(req.Entity)),
		slog.Int("page", page),
		slog.Int("page_size", size),
		slog.Int("total", result.Total),
		slog.Bool("relaxed", result.Relaxed),
		slog.Int64("took_ms", result.TookMs),
	)

	if cacheable {
		s.toCache(ctx, key, result)
	}
	return result, nil
}

func (s *SearchService) run(ctx context.Context, proj *Projection, q *query.Request) (*engine.Result, error) {
	start := time.Now()
	res, err := s.engine.Search(ctx, proj.Index, q)
	searchDuration.WithLabelValues(string(proj.Entity)).Observe(time.Since(start).Seconds())
	if err != nil {
		searchRequests.WithLabelValues(string(proj.Entity), "error").Inc()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.SearchUnavailable(err)
	}
	return res, nil
}

// clamp applies page defaults: page < 1 becomes 1, size falls back to the
// default and is capped at the maximum.
func (s *SearchService) clamp(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.opts.DefaultPageSize
	}
	return page, min(size, s.opts.MaxPageSize)
}

// stamp sets the entity generation on key. It reports false when there is
// no cache or the generation cannot be read.
func (s *SearchService) stamp(ctx context.Context, key *cache.Key) bool {
	if s.cache == nil {
		return false
	}
	gen, err := s.cache.Generation(ctx, key.Entity)
	if err != nil {
		s.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		return false
	}
	key.Generation = gen
	return true
}

func (s *SearchService) fromCache(ctx context.Context, key cache.Key) *domain.SearchPage {
	page, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		return nil
	}
	if !found {
		return nil
	}
	return page
}

func (s *SearchService) toCache(ctx context.Context, key cache.Key, page *domain.SearchPage) {
	stored, err := s.cache.Set(ctx, key, page)
	if err != nil {
		s.logger.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
		return
	}
	if !stored {
		s.logger.DebugContext(ctx, "search page not cached, index settling",
			slog.String("entity", string(key.Entity)),
		)
	}
}

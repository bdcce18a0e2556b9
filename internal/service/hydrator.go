package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
)

// Hydrator resolves ranked ids back into authoritative records.
type Hydrator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewHydrator creates a hydrator.
func NewHydrator(registry *Registry, logger *slog.Logger) *Hydrator {
	return &Hydrator{registry: registry, logger: logger}
}

// Hydrate fetches the page's records in one batch and returns them in rank
// order. Hits with no record are dropped, logged and counted; the page
// total is left as the translator reported it.
func (h *Hydrator) Hydrate(ctx context.Context, entity domain.EntityType, page *domain.SearchPage) (*domain.HydratedPage, error) {
	proj, err := h.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	out := &domain.HydratedPage{SearchPage: *page, Results: make([]any, 0, len(page.Hits))}
	if len(page.Hits) == 0 {
		return out, nil
	}

	records, err := proj.Fetch(ctx, page.IDs())
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", entity, err)
	}

	var orphans []string
	for _, hit := range page.Hits {
		rec, ok := records[hit.ID]
		if !ok {
			orphans = append(orphans, hit.ID)
			continue
		}
		out.Results = append(out.Results, rec)
	}

	if len(orphans) > 0 {
		out.Orphaned = len(orphans)
		orphanedHits.WithLabelValues(string(entity)).Add(float64(len(orphans)))
		h.logger.WarnContext(ctx, "search hits without a record dropped",
			slog.String("entity", string(entity)),
			slog.Any("ids", orphans),
		)
	}
	return out, nil
}

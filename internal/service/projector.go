package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/engine"
)

// DefaultBulkBatchSize is used when the projector is given no batch size.
const DefaultBulkBatchSize = 500

// PageInvalidator drops cached search pages of an entity.
type PageInvalidator interface {
	Invalidate(ctx context.Context, entity domain.EntityType) (int, error)
}

// Projector writes Record Store rows into the search engine.
type Projector struct {
	engine    engine.SearchEngine
	registry  *Registry
	batchSize int
	cache     PageInvalidator
	logger    *slog.Logger
}

// NewProjector creates a projector. cache may be nil.
func NewProjector(eng engine.SearchEngine, registry *Registry, batchSize int, cache PageInvalidator, logger *slog.Logger) *Projector {
	if batchSize <= 0 {
		batchSize = DefaultBulkBatchSize
	}
	return &Projector{
		engine:    eng,
		registry:  registry,
		batchSize: batchSize,
		cache:     cache,
		logger:    logger,
	}
}

// Bootstrap ensures every index exists, streams every row into it in bulk
// batches and refreshes it before moving to the next entity. Re-running it
// overwrites documents by id, so it is safe to repeat.
func (p *Projector) Bootstrap(ctx context.Context) (*domain.BootstrapReport, error) {
	report := &domain.BootstrapReport{Indexed: make(map[domain.EntityType]int)}

	for _, proj := range p.registry.All() {
		n, err := p.bootstrapOne(ctx, proj)
		report.Indexed[proj.Entity] = n
		if err != nil {
			return report, fmt.Errorf("bootstrap %s: %w", proj.Entity, err)
		}
		p.logger.InfoContext(ctx, "search index bootstrapped",
			slog.String("entity", string(proj.Entity)),
			slog.String("index", proj.Index),
			slog.Int("documents", n),
		)
	}
	return report, nil
}

func (p *Projector) bootstrapOne(ctx context.Context, proj *Projection) (int, error) {
	if err := p.engine.EnsureIndex(ctx, proj.Index, proj.Fields); err != nil {
		return 0, err
	}

	var (
		batch   = make([]domain.SearchDocument, 0, p.batchSize)
		indexed int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.engine.BulkUpsert(ctx, proj.Index, batch); err != nil {
			return err
		}
		indexed += len(batch)
		documentsIndexed.WithLabelValues(string(proj.Entity), "bootstrap").Add(float64(len(batch)))
		p.logger.DebugContext(ctx, "bulk batch written",
			slog.String("index", proj.Index),
			slog.Int("size", len(batch)),
			slog.Int("indexed", indexed),
		)
		batch = batch[:0]
		return nil
	}

	err := proj.Stream(ctx, func(record any) error {
		doc, err := proj.Document(record)
		if err != nil {
			return err
		}
		batch = append(batch, doc)
		if len(batch) >= p.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return indexed, err
	}
	if err := flush(); err != nil {
		return indexed, err
	}

	if err := p.engine.Refresh(ctx, proj.Index); err != nil {
		return indexed, err
	}
	p.invalidate(ctx, proj.Entity)
	return indexed, nil
}

// Project upserts the document for one record. No refresh is forced, so the
// change becomes searchable on the engine's own schedule.
func (p *Projector) Project(ctx context.Context, entity domain.EntityType, record any) error {
	proj, err := p.registry.Get(entity)
	if err != nil {
		return err
	}
	doc, err := proj.Document(record)
	if err != nil {
		return fmt.Errorf("project %s: %w", entity, err)
	}
	if err := p.engine.Upsert(ctx, proj.Index, doc); err != nil {
		return fmt.Errorf("project %s %s: %w", entity, doc.ID, err)
	}
	documentsIndexed.WithLabelValues(string(entity), "project").Inc()
	p.invalidate(ctx, entity)

	p.logger.DebugContext(ctx, "record projected",
		slog.String("entity", string(entity)),
		slog.String("id", doc.ID),
	)
	return nil
}

// ProjectByID loads one row and projects it. A missing row is NOT_FOUND.
func (p *Projector) ProjectByID(ctx context.Context, entity domain.EntityType, id string) error {
	proj, err := p.registry.Get(entity)
	if err != nil {
		return err
	}
	record, err := proj.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load %s %s: %w", entity, id, err)
	}
	return p.Project(ctx, entity, record)
}

func (p *Projector) invalidate(ctx context.Context, entity domain.EntityType) {
	if p.cache == nil {
		return
	}
	if _, err := p.cache.Invalidate(ctx, entity); err != nil {
		p.logger.WarnContext(ctx, "search cache invalidation failed",
			slog.String("entity", string(entity)),
			slog.String("error", err.Error()),
		)
	}
}

package postgres

import (
	"context"
	"fmt"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/pkg/database"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

const categoryColumns = `id, title, description, image, created_at`

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Image, &c.CreatedAt)
	return c, err
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) (err error) {
	query := `
		INSERT INTO categories (id, title, description, image, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	ctx, end := database.TraceQuery(ctx, "category.create", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, c.ID, c.Title, c.Description, c.Image, c.CreatedAt); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (_ *domain.Category, err error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "category.get", query)
	defer func() { end(err) }()

	c, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "category", id, "get category")
	}
	return &c, nil
}

func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []string) (_ []domain.Category, err error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ANY($1::uuid[])`

	ctx, end := database.TraceQuery(ctx, "category.get_many", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query categories by ids: %w", err)
	}
	return collect(rows, scanCategory)
}

func (r *CategoryRepository) List(ctx context.Context, limit, offset int) (_ []domain.Category, _ int, err error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "category.list", query)
	defer func() { end(err) }()

	var total int
	if err = r.db.QueryRow(ctx, `SELECT count(*) FROM categories`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	categories, err := collect(rows, scanCategory)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	return categories, total, nil
}

func (r *CategoryRepository) ForEach(ctx context.Context, fn func(*domain.Category) error) (err error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY created_at, id`

	ctx, end := database.TraceQuery(ctx, "category.scan_all", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("stream categories: %w", err)
	}
	return each(rows, scanCategory, fn)
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM categories WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "category.delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", id)
	}
	return nil
}

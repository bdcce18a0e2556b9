package postgres

import (
	"context"
	"fmt"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/pkg/database"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

// ProductCategoryRepository implements repository.ProductCategoryRepository.
type ProductCategoryRepository struct {
	db database.DBTX
}

// NewProductCategoryRepository creates a new PostgreSQL-backed link repository.
func NewProductCategoryRepository(db database.DBTX) *ProductCategoryRepository {
	return &ProductCategoryRepository{db: db}
}

// Create links a product to a category.
func (r *ProductCategoryRepository) Create(ctx context.Context, l *domain.ProductCategory) (err error) {
	query := `
		INSERT INTO product_categories (id, product_id, category_id, created_at)
		VALUES ($1, $2, $3, $4)`

	ctx, end := database.TraceQuery(ctx, "product_category.create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query, l.ID, l.ProductID, l.CategoryID, l.CreatedAt)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return apperrors.AlreadyExists("product category", "pair", l.ProductID+"/"+l.CategoryID)
	case database.IsForeignKeyViolation(err):
		if database.ConstraintName(err) == "product_categories_category_id_fkey" {
			return apperrors.NotFound("category", l.CategoryID)
		}
		return apperrors.NotFound("product", l.ProductID)
	}
	return fmt.Errorf("insert product category: %w", err)
}

// ListByProduct returns the categories linked to productID, oldest link first.
func (r *ProductCategoryRepository) ListByProduct(ctx context.Context, productID string) (_ []domain.Category, err error) {
	query := `
		SELECT c.id, c.title, c.description, c.image, c.created_at
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = $1
		ORDER BY pc.created_at, pc.id`

	ctx, end := database.TraceQuery(ctx, "product_category.list_by_product", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	return collect(rows, scanCategory)
}

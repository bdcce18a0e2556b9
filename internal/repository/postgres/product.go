package postgres

import (
	"context"
	"fmt"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/pkg/database"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

const productColumns = `id, title, description, price::text, image, created_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &price, &p.Image, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	d, err := parsePrice(price)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = d
	return p, nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, title, description, price, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "product.create", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, p.ID, p.Title, p.Description, p.Price.String(), p.Image, p.CreatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "product.get", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "product", id, "get product")
	}
	return &p, nil
}

// GetByIDs fetches every existing product among ids in one round trip.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (_ []domain.Product, err error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`

	ctx, end := database.TraceQuery(ctx, "product.get_many", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	return collect(rows, scanProduct)
}

// List returns one page of products in creation order with the total count.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) (_ []domain.Product, _ int, err error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "product.list", query)
	defer func() { end(err) }()

	var total int
	if err = r.db.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := collect(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// ForEach streams every product in creation order.
func (r *ProductRepository) ForEach(ctx context.Context, fn func(*domain.Product) error) (err error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`

	ctx, end := database.TraceQuery(ctx, "product.scan_all", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("stream products: %w", err)
	}
	return each(rows, scanProduct, fn)
}

// Delete removes a product. Category links go with it via ON DELETE CASCADE.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "product.delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

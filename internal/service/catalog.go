package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/event"
	"github.com/NurulloMahmud/tafakkur/internal/repository"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

// maxPrice is the first value NUMERIC(10,2) cannot hold.
var maxPrice = decimal.New(1, 8)

// Indexer projects a freshly written record into search.
type Indexer interface {
	Project(ctx context.Context, entity domain.EntityType, record any) error
}

// CatalogService implements product and category CRUD.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	links      repository.ProductCategoryRepository
	indexer    Indexer
	producer   *event.Producer
	logger     *slog.Logger
}

// NewCatalogService creates a catalog service. indexer may be nil, in which
// case writes are only picked up by the next bootstrap.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	links repository.ProductCategoryRepository,
	indexer Indexer,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		links:      links,
		indexer:    indexer,
		producer:   producer,
		logger:     logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Image       *string
}

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Title       string
	Description string
	Image       *string
}

// CreateProduct stores a product, then projects it and announces it. Neither
// side effect can fail the write.
func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created", slog.String("product_id", p.ID))
	s.project(ctx, domain.EntityProduct, p.ID, p)
	if err := s.producer.ProductCreated(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product event",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

// GetProduct returns one product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListProducts returns one page of products and the total count.
func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, int, error) {
	items, total, err := s.products.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return items, total, nil
}

// DeleteProduct removes a product and its links. Its search document is
// left in place and will be dropped at hydration.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// CreateCategory stores a category, then projects it and announces it.
func (s *CatalogService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*domain.Category, error) {
	c := &domain.Category{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Image:       in.Image,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created", slog.String("category_id", c.ID))
	s.project(ctx, domain.EntityCategory, c.ID, c)
	if err := s.producer.CategoryCreated(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish category event",
			slog.String("category_id", c.ID),
			slog.String("error", err.Error()),
		)
	}
	return c, nil
}

// GetCategory returns one category.
func (s *CatalogService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// ListCategories returns one page of categories and the total count.
func (s *CatalogService) ListCategories(ctx context.Context, limit, offset int) ([]domain.Category, int, error) {
	items, total, err := s.categories.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	return items, total, nil
}

// DeleteCategory removes a category and its links.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

// LinkCategory adds productID to categoryID. A repeated pair is a conflict.
func (s *CatalogService) LinkCategory(ctx context.Context, productID, categoryID string) (*domain.ProductCategory, error) {
	link := &domain.ProductCategory{
		ID:         uuid.NewString(),
		ProductID:  productID,
		CategoryID: categoryID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("link product category: %w", err)
	}
	return link, nil
}

// ProductCategories lists the categories of an existing product.
func (s *CatalogService) ProductCategories(ctx context.Context, productID string) ([]domain.Category, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	cats, err := s.links.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	return cats, nil
}

func (s *CatalogService) project(ctx context.Context, entity domain.EntityType, id string, record any) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Project(ctx, entity, record); err != nil {
		s.logger.ErrorContext(ctx, "write-path projection failed",
			slog.String("entity", string(entity)),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}

// validatePrice enforces NUMERIC(10,2): non-negative, at most two decimal
// places and eight integer digits.
func validatePrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return apperrors.Validation(map[string]string{"price": "must be greater than or equal to 0"})
	case !p.Equal(p.Round(2)):
		return apperrors.Validation(map[string]string{"price": "must have at most 2 decimal places"})
	case p.GreaterThanOrEqual(maxPrice):
		return apperrors.Validation(map[string]string{"price": "must have at most 10 digits in total"})
	}
	return nil
}

package repository

import (
	"context"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	// Create inserts a new product.
	Create(ctx context.Context, p *domain.Product) error

	// GetByID returns the product or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByIDs returns the products that exist among ids, in no particular
	// order. Missing ids are silently skipped.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)

	// List returns one page in creation order and the total row count.
	List(ctx context.Context, limit, offset int) ([]domain.Product, int, error)

	// ForEach calls fn for every product in creation order. Iteration stops
	// at the first error fn returns.
	ForEach(ctx context.Context, fn func(*domain.Product) error) error

	// Delete removes the product and its category links.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Category, error)
	List(ctx context.Context, limit, offset int) ([]domain.Category, int, error)
	ForEach(ctx context.Context, fn func(*domain.Category) error) error
	Delete(ctx context.Context, id string) error
}

// ProductCategoryRepository manages product to category links.
type ProductCategoryRepository interface {
	// Create links a product to a category. A duplicate pair yields
	// apperrors.ErrAlreadyExists and an unknown side apperrors.ErrNotFound.
	Create(ctx context.Context, link *domain.ProductCategory) error

	// ListByProduct returns the categories linked to productID.
	ListByProduct(ctx context.Context, productID string) ([]domain.Category, error)
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts a new user. A taken email yields apperrors.ErrAlreadyExists.
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail matches the normalized email exactly.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	ForEach(ctx context.Context, fn func(*domain.User) error) error
}

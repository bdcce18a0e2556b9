package service

import (
	"context"
	"fmt"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/repository"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

// Projection binds one searchable entity to its index, its text fields and
// the Record Store operations needed to build and resolve documents.
type Projection struct {
	Entity domain.EntityType
	Index  string
	Fields []string

	// Document projects a record of this entity. It fails on a record of
	// the wrong type.
	Document func(record any) (domain.SearchDocument, error)

	// Stream calls fn with every record in default order.
	Stream func(ctx context.Context, fn func(record any) error) error

	// Load reads one record by id.
	Load func(ctx context.Context, id string) (any, error)

	// Fetch reads the records that exist among ids, keyed by id, in the
	// representation search results expose.
	Fetch func(ctx context.Context, ids []string) (map[string]any, error)
}

// Registry is the static entity to index mapping table.
type Registry struct {
	byEntity map[domain.EntityType]*Projection
	order    []domain.EntityType
}

// Repositories groups the Record Store dependencies of the registry.
type Repositories struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Users      repository.UserRepository
}

// Index base names and searchable fields.
var (
	ProductFields  = []string{"title", "description"}
	CategoryFields = []string{"title", "description"}
	UserFields     = []string{"email", "first_name", "last_name"}
)

// NewRegistry builds the mapping table. prefix is prepended to every index
// name.
func NewRegistry(prefix string, repos Repositories) *Registry {
	r := &Registry{byEntity: make(map[domain.EntityType]*Projection)}

	r.add(&Projection{
		Entity:   domain.EntityProduct,
		Index:    prefix + "products",
		Fields:   ProductFields,
		Document: typed(ProductDocument),
		Stream: func(ctx context.Context, fn func(any) error) error {
			return repos.Products.ForEach(ctx, func(p *domain.Product) error { return fn(p) })
		},
		Load: func(ctx context.Context, id string) (any, error) {
			return repos.Products.GetByID(ctx, id)
		},
		Fetch: func(ctx context.Context, ids []string) (map[string]any, error) {
			rows, err := repos.Products.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(rows))
			for _, p := range rows {
				out[p.ID] = p
			}
			return out, nil
		},
	})

	r.add(&Projection{
		Entity:   domain.EntityCategory,
		Index:    prefix + "categories",
		Fields:   CategoryFields,
		Document: typed(CategoryDocument),
		Stream: func(ctx context.Context, fn func(any) error) error {
			return repos.Categories.ForEach(ctx, func(c *domain.Category) error { return fn(c) })
		},
		Load: func(ctx context.Context, id string) (any, error) {
			return repos.Categories.GetByID(ctx, id)
		},
		Fetch: func(ctx context.Context, ids []string) (map[string]any, error) {
			rows, err := repos.Categories.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(rows))
			for _, c := range rows {
				out[c.ID] = c
			}
			return out, nil
		},
	})

	r.add(&Projection{
		Entity:   domain.EntityUser,
		Index:    prefix + "users",
		Fields:   UserFields,
		Document: typed(UserDocument),
		Stream: func(ctx context.Context, fn func(any) error) error {
			return repos.Users.ForEach(ctx, func(u *domain.User) error { return fn(u) })
		},
		Load: func(ctx context.Context, id string) (any, error) {
			return repos.Users.GetByID(ctx, id)
		},
		Fetch: func(ctx context.Context, ids []string) (map[string]any, error) {
			rows, err := repos.Users.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(rows))
			for i := range rows {
				out[rows[i].ID] = rows[i].Profile()
			}
			return out, nil
		},
	})

	return r
}

func (r *Registry) add(p *Projection) {
	r.byEntity[p.Entity] = p
	r.order = append(r.order, p.Entity)
}

// Get returns the projection for entity.
func (r *Registry) Get(entity domain.EntityType) (*Projection, error) {
	p, ok := r.byEntity[entity]
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("entity %q is not searchable", entity))
	}
	return p, nil
}

// All returns every projection in bootstrap order.
func (r *Registry) All() []*Projection {
	out := make([]*Projection, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, r.byEntity[e])
	}
	return out
}

// ProductDocument projects a product.
func ProductDocument(p *domain.Product) domain.SearchDocument {
	return domain.SearchDocument{ID: p.ID, Fields: map[string]string{
		"title":       p.Title,
		"description": p.Description,
	}}
}

// CategoryDocument projects a category.
func CategoryDocument(c *domain.Category) domain.SearchDocument {
	return domain.SearchDocument{ID: c.ID, Fields: map[string]string{
		"title":       c.Title,
		"description": c.Description,
	}}
}

// UserDocument projects a user. The password hash is never indexed.
func UserDocument(u *domain.User) domain.SearchDocument {
	return domain.SearchDocument{ID: u.ID, Fields: map[string]string{
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	}}
}

// typed lifts a projection function over *T to one over any.
func typed[T any](fn func(*T) domain.SearchDocument) func(any) (domain.SearchDocument, error) {
	return func(record any) (domain.SearchDocument, error) {
		switch v := record.(type) {
		case *T:
			return fn(v), nil
		case T:
			return fn(&v), nil
		}
		return domain.SearchDocument{}, fmt.Errorf("cannot project %T", record)
	}
}

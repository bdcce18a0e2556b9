package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/engine/memory"
)

type fixture struct {
	products   *fakeProducts
	categories *fakeCategories
	links      *fakeLinks
	users      *fakeUsers
	mem        *memory.Engine
	engine     *countingEngine
	registry   *Registry
	projector  *Projector
	search     *SearchService
	hydrator   *Hydrator
	cache      *mapCache
}

func newFixture(t *testing.T, opts SearchOptions) *fixture {
	t.Helper()
	f := &fixture{
		products:   newFakeProducts(),
		categories: newFakeCategories(),
		users:      newFakeUsers(),
		mem:        memory.New(),
		cache:      newMapCache(),
	}
	f.links = newFakeLinks(f.products, f.categories)
	f.engine = &countingEngine{SearchEngine: f.mem}
	f.registry = NewRegistry("test_", Repositories{Products: f.products, Categories: f.categories, Users: f.users})
	f.projector = NewProjector(f.engine, f.registry, 2, f.cache, discardLogger())
	f.search = NewSearchService(f.engine, f.registry, nil, opts, discardLogger())
	f.hydrator = NewHydrator(f.registry, discardLogger())
	return f
}

var clock = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func (f *fixture) addProduct(t *testing.T, id, title, desc string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:          id,
		Title:       title,
		Description: desc,
		Price:       decimal.RequireFromString("9.99"),
		CreatedAt:   clock.Add(time.Duration(len(f.products.all())) * time.Second),
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) addCategory(t *testing.T, id, title string) *domain.Category {
	t.Helper()
	c := &domain.Category{ID: id, Title: title, CreatedAt: clock}
	require.NoError(t, f.categories.Create(context.Background(), c))
	return c
}

func (f *fixture) addUser(t *testing.T, id, email, first, last string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, Email: email, FirstName: first, LastName: last, IsActive: true, DateJoined: clock}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) bootstrap(t *testing.T) *domain.BootstrapReport {
	t.Helper()
	report, err := f.projector.Bootstrap(context.Background())
	require.NoError(t, err)
	return report
}

func (f *fixture) seedProducts(t *testing.T, n int, title string) {
	t.Helper()
	for i := 0; i < n; i++ {
		f.addProduct(t, fmt.Sprintf("p%03d", i), title, "")
	}
}

package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/NurulloMahmud/tafakkur/internal/cache"
	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/engine"
	"github.com/NurulloMahmud/tafakkur/internal/search/query"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// store is an insertion-ordered in-memory table.
type store[T any] struct {
	mu    sync.Mutex
	order []string
	rows  map[string]T
	id    func(T) string
}

func newStore[T any](id func(T) string) *store[T] {
	return &store[T]{rows: make(map[string]T), id: id}
}

func (s *store[T]) put(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id(v)
	if _, ok := s.rows[id]; ok {
		return false
	}
	s.order = append(s.order, id)
	s.rows[id] = v
	return true
}

func (s *store[T]) get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[id]
	return v, ok
}

func (s *store[T]) many(ids []string) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, id := range ids {
		if v, ok := s.rows[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (s *store[T]) all() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}

func (s *store[T]) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return false
	}
	delete(s.rows, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func slicePage[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	return all[offset:min(offset+limit, len(all))]
}

type fakeProducts struct{ *store[domain.Product] }

func newFakeProducts() *fakeProducts {
	return &fakeProducts{newStore(func(p domain.Product) string { return p.ID })}
}

func (f *fakeProducts) Create(_ context.Context, p *domain.Product) error {
	f.put(*p)
	return nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if p, ok := f.get(id); ok {
		return &p, nil
	}
	return nil, apperrors.NotFound("product", id)
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	return f.many(ids), nil
}

func (f *fakeProducts) List(_ context.Context, limit, offset int) ([]domain.Product, int, error) {
	all := f.all()
	return slicePage(all, limit, offset), len(all), nil
}

func (f *fakeProducts) ForEach(_ context.Context, fn func(*domain.Product) error) error {
	for _, p := range f.all() {
		if err := fn(&p); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	if !f.remove(id) {
		return apperrors.NotFound("product", id)
	}
	return nil
}

type fakeCategories struct{ *store[domain.Category] }

func newFakeCategories() *fakeCategories {
	return &fakeCategories{newStore(func(c domain.Category) string { return c.ID })}
}

func (f *fakeCategories) Create(_ context.Context, c *domain.Category) error {
	f.put(*c)
	return nil
}

func (f *fakeCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	if c, ok := f.get(id); ok {
		return &c, nil
	}
	return nil, apperrors.NotFound("category", id)
}

func (f *fakeCategories) GetByIDs(_ context.Context, ids []string) ([]domain.Category, error) {
	return f.many(ids), nil
}

func (f *fakeCategories) List(_ context.Context, limit, offset int) ([]domain.Category, int, error) {
	all := f.all()
	return slicePage(all, limit, offset), len(all), nil
}

func (f *fakeCategories) ForEach(_ context.Context, fn func(*domain.Category) error) error {
	for _, c := range f.all() {
		if err := fn(&c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCategories) Delete(_ context.Context, id string) error {
	if !f.remove(id) {
		return apperrors.NotFound("category", id)
	}
	return nil
}

type fakeLinks struct {
	products   *fakeProducts
	categories *fakeCategories
	links      *store[domain.ProductCategory]
}

func newFakeLinks(p *fakeProducts, c *fakeCategories) *fakeLinks {
	return &fakeLinks{products: p, categories: c, links: newStore(func(l domain.ProductCategory) string {
		return l.ProductID + "/" + l.CategoryID
	})}
}

func (f *fakeLinks) Create(_ context.Context, l *domain.ProductCategory) error {
	if _, ok := f.products.get(l.ProductID); !ok {
		return apperrors.NotFound("product", l.ProductID)
	}
	if _, ok := f.categories.get(l.CategoryID); !ok {
		return apperrors.NotFound("category", l.CategoryID)
	}
	if !f.links.put(*l) {
		return apperrors.AlreadyExists("product category", "pair", l.ProductID+"/"+l.CategoryID)
	}
	return nil
}

func (f *fakeLinks) ListByProduct(_ context.Context, productID string) ([]domain.Category, error) {
	var out []domain.Category
	for _, l := range f.links.all() {
		if l.ProductID != productID {
			continue
		}
		if c, ok := f.categories.get(l.CategoryID); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeUsers struct {
	*store[domain.User]
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{newStore(func(u domain.User) string { return u.ID })}
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	for _, existing := range f.all() {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	f.put(*u)
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.get(id); ok {
		return &u, nil
	}
	return nil, apperrors.NotFound("user", id)
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.all() {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (f *fakeUsers) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	return f.many(ids), nil
}

func (f *fakeUsers) ForEach(_ context.Context, fn func(*domain.User) error) error {
	for _, u := range f.all() {
		if err := fn(&u); err != nil {
			return err
		}
	}
	return nil
}

// countingEngine records calls made to the wrapped engine.
type countingEngine struct {
	engine.SearchEngine
	mu       sync.Mutex
	searches int
	bulks    []int
}

func (c *countingEngine) Search(ctx context.Context, index string, req *query.Request) (*engine.Result, error) {
	c.mu.Lock()
	c.searches++
	c.mu.Unlock()
	return c.SearchEngine.Search(ctx, index, req)
}

func (c *countingEngine) BulkUpsert(ctx context.Context, index string, docs []domain.SearchDocument) error {
	c.mu.Lock()
	c.bulks = append(c.bulks, len(docs))
	c.mu.Unlock()
	return c.SearchEngine.BulkUpsert(ctx, index, docs)
}

// mapCache is an in-process PageCache and PageInvalidator.
type mapCache struct {
	mu          sync.Mutex
	pages       map[string]domain.SearchPage
	generations map[domain.EntityType]int64
	invalidated []domain.EntityType
	err         error
}

func newMapCache() *mapCache {
	return &mapCache{pages: make(map[string]domain.SearchPage), generations: make(map[domain.EntityType]int64)}
}

func (m *mapCache) Generation(_ context.Context, entity domain.EntityType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.generations[entity], nil
}

func (m *mapCache) Get(_ context.Context, k cache.Key) (*domain.SearchPage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	p, ok := m.pages[k.String()]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (m *mapCache) Set(_ context.Context, k cache.Key, p *domain.SearchPage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	m.pages[k.String()] = *p
	return true, nil
}

func (m *mapCache) Invalidate(_ context.Context, entity domain.EntityType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, entity)
	m.generations[entity]++
	n := len(m.pages)
	m.pages = make(map[string]domain.SearchPage)
	return n, m.err
}

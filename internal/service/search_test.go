package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

func TestSearch_BlankQueryShortCircuits(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.mem.Err = errors.New("must not be called")

	for _, q := range []string{"", "   ", "\t\n"} {
		res, err := f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityProduct, Query: q, Page: 3})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
		assert.Equal(t, 1, res.Page, "an empty result has no later pages")
		assert.Empty(t, res.Hits)
		assert.NotNil(t, res.Hits)
	}
	assert.Zero(t, f.engine.searches)
}

func TestSearch_PhraseOrStrict(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.addProduct(t, "p1", "mouse for gaming", "")
	f.addProduct(t, "p2", "gaming mouse", "")
	f.addProduct(t, "p3", "gaming", "mouse")
	f.addProduct(t, "p4", "keyboard", "")
	f.bootstrap(t)

	res, err := f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityProduct, Query: "Gaming Mouse"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"p2", "p1"}, res.IDs())
	assert.False(t, res.Relaxed)
	assert.Equal(t, "gaming mouse", res.Hits[0].Fields["title"], "echoes stored fields")
}

func TestSearch_PaginationWindowAndTotal(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.seedProducts(t, 25, "usb cable")
	f.bootstrap(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for p := 1; p <= 3; p++ {
		res, err := f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "cable", Page: p, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 25, res.Total, "page %d", p)
		assert.Equal(t, p, res.Page)
		for _, id := range res.IDs() {
			assert.False(t, seen[id], "id %s repeated across pages", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 25)

	res, err := f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "cable", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "p010", res.Hits[0].ID, "page 2 skips the first ten ranked hits")
}

func TestSearch_PartialLastPage(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.seedProducts(t, 15, "usb cable")
	f.addProduct(t, "other", "hdmi adapter", "")
	f.bootstrap(t)
	ctx := context.Background()

	res, err := f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "usb cable", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Total)
	assert.Len(t, res.Hits, 5)

	out, err := f.hydrator.Hydrate(ctx, domain.EntityProduct, res)
	require.NoError(t, err)
	assert.Len(t, out.Results, 5)
	assert.Equal(t, 15, out.Total)
}

func TestSearch_ProjectedCatalogEndToEnd(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.bootstrap(t)
	ctx := context.Background()

	laptop := f.addProduct(t, "laptop", "Laptop", "High-end gaming laptop")
	f.addProduct(t, "phone", "Phone", "")
	f.addProduct(t, "tablet", "Tablet", "")
	for _, id := range []string{"laptop", "phone", "tablet"} {
		require.NoError(t, f.projector.ProjectByID(ctx, domain.EntityProduct, id))
	}

	res, err := f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "high-end gaming"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, []string{laptop.ID}, res.IDs())

	out, err := f.hydrator.Hydrate(ctx, domain.EntityProduct, res)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Laptop", out.Results[0].(domain.Product).Title)
}

func TestSearch_ClampsPaging(t *testing.T) {
	f := newFixture(t, SearchOptions{DefaultPageSize: 10, MaxPageSize: 100})
	f.seedProducts(t, 3, "lamp")
	f.bootstrap(t)
	ctx := context.Background()

	res, err := f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "lamp", Page: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 10, res.PageSize)

	res, err = f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "lamp", PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, res.PageSize)
}

func TestSearch_ResultWindowExceeded(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.bootstrap(t)

	_, err := f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityProduct, Query: "lamp", Page: 1001, PageSize: 10})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, f.engine.searches)
}

func TestSearch_EngineFailureIsUnavailable(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.seedProducts(t, 1, "lamp")
	f.bootstrap(t)
	f.mem.Err = errors.New("connection refused")

	_, err := f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityProduct, Query: "lamp"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SEARCH_UNAVAILABLE", appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestSearch_MissingIndexIsUnavailable(t *testing.T) {
	f := newFixture(t, SearchOptions{})

	_, err := f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityCategory, Query: "lamp"})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestSearch_UserFields(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.addUser(t, "u1", "alice@shop.test", "Alice", "Smith")
	f.addUser(t, "u2", "bob@shop.test", "Bob", "Alison")
	f.bootstrap(t)

	res, err := f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityUser, Query: "smith"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, res.IDs())

	res, err = f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityUser, Query: "shop"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestSearch_FuzzyOnRequest(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.addProduct(t, "p1", "wireless mouse", "")
	f.bootstrap(t)
	ctx := context.Background()

	res, err := f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "mosue"})
	require.NoError(t, err)
	assert.Zero(t, res.Total, "no typo tolerance by default")

	res, err = f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "mosue", Fuzzy: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, res.IDs())
	assert.True(t, res.Relaxed)
}

func TestSearch_FuzzyFallback(t *testing.T) {
	f := newFixture(t, SearchOptions{FuzzyFallback: true})
	f.addProduct(t, "p1", "wireless mouse", "")
	f.bootstrap(t)
	ctx := context.Background()

	res, err := f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "mouse"})
	require.NoError(t, err)
	assert.False(t, res.Relaxed)
	assert.Equal(t, 1, f.engine.searches)

	res, err = f.search.Search(ctx, SearchRequest{Entity: domain.EntityProduct, Query: "mosue"})
	require.NoError(t, err)
	assert.True(t, res.Relaxed)
	assert.Equal(t, []string{"p1"}, res.IDs())
	assert.Equal(t, 3, f.engine.searches, "zero-hit query was reissued once")
}

func TestSearch_UsesCache(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.seedProducts(t, 2, "lamp")
	f.search = NewSearchService(f.engine, f.registry, f.cache, SearchOptions{}, discardLogger())
	f.bootstrap(t)
	ctx := context.Background()
	req := SearchRequest{Entity: domain.EntityProduct, Query: "lamp"}

	first, err := f.search.Search(ctx, req)
	require.NoError(t, err)
	second, err := f.search.Search(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.IDs(), second.IDs())
	assert.Equal(t, 1, f.engine.searches)

	f.addProduct(t, "p-new", "lamp", "")
	require.NoError(t, f.projector.ProjectByID(ctx, domain.EntityProduct, "p-new"))
	third, err := f.search.Search(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, third.Total, "projection invalidated the cached page")
	assert.Equal(t, 2, f.engine.searches)
}

func TestSearch_CacheFailureIsBypassed(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	f.seedProducts(t, 1, "lamp")
	f.bootstrap(t)
	f.cache.err = fmt.Errorf("redis: connection refused")
	f.search = NewSearchService(f.engine, f.registry, f.cache, SearchOptions{}, discardLogger())

	res, err := f.search.Search(context.Background(), SearchRequest{Entity: domain.EntityProduct, Query: "lamp"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestSearch_UnknownEntity(t *testing.T) {
	f := newFixture(t, SearchOptions{})
	_, err := f.search.Search(context.Background(), SearchRequest{Entity: "orders", Query: "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Offset   int `json:"-"`
}

// Options controls how Params are read from a request.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultOptions returns a page size of 10 bounded by 100.
func DefaultOptions() Options {
	return Options{DefaultPageSize: 10, MaxPageSize: 100}
}

// FromRequest extracts `page` and `page_size` from the query string.
// Missing or malformed values fall back to page 1 and the default size;
// sizes above the maximum are clamped to it.
func FromRequest(r *http.Request, opts Options) Params {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultOptions().DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultOptions().MaxPageSize
	}

	p := Params{Page: 1, PageSize: opts.DefaultPageSize}

	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		p.PageSize = min(v, opts.MaxPageSize)
	}

	p.Offset = (p.Page - 1) * p.PageSize
	return p
}

// TotalPages returns the number of pages needed for total items.
func (p Params) TotalPages(total int) int {
	if p.PageSize <= 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}

// Page is the paginated list envelope returned by list and search endpoints.
type Page[T any] struct {
	Count      int     `json:"count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
	Results    []T     `json:"results"`
}

// NewPage builds a Page for results, with next/previous links derived from
// the request URL. Results is never null in the encoded output.
func NewPage[T any](r *http.Request, results []T, total int, p Params) Page[T] {
	if results == nil {
		results = []T{}
	}
	totalPages := p.TotalPages(total)

	page := Page[T]{
		Count:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
		Results:    results,
	}
	if p.Page < totalPages {
		next := pageURL(r, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(r, p.Page-1)
		page.Previous = &prev
	}
	return page
}

// pageURL rewrites the request URL to point at page n. The link to the first
// page carries no page parameter.
func pageURL(r *http.Request, n int) string {
	u := url.URL{
		Scheme: scheme(r),
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	q := r.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

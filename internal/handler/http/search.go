package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/service"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
	"github.com/NurulloMahmud/tafakkur/pkg/httputil"
	"github.com/NurulloMahmud/tafakkur/pkg/pagination"
)

// SearchHandler serves the per-entity search endpoints.
type SearchHandler struct {
	search   *service.SearchService
	hydrator *service.Hydrator
	logger   *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(search *service.SearchService, hydrator *service.Hydrator, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{search: search, hydrator: hydrator, logger: logger}
}

// SearchPage is the paginated search envelope. Relaxed reports whether the
// fuzzy clause took part in the query.
type SearchPage struct {
	pagination.Page[any]
	Relaxed bool `json:"relaxed"`
}

// Products handles GET /api/v1/products/search
func (h *SearchHandler) Products(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.EntityProduct)
}

// Categories handles GET /api/v1/categories/search
func (h *SearchHandler) Categories(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.EntityCategory)
}

// Users handles GET /api/v1/users/search
func (h *SearchHandler) Users(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.EntityUser)
}

func (h *SearchHandler) serve(w http.ResponseWriter, r *http.Request, entity domain.EntityType) {
	q := r.URL.Query()

	// Malformed paging falls back to defaults, matching the list endpoints.
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	var fuzzy bool
	if v := q.Get("fuzzy"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("fuzzy must be a boolean"), h.logger)
			return
		}
		fuzzy = b
	}

	res, err := h.search.Search(r.Context(), service.SearchRequest{
		Entity:   entity,
		Query:    q.Get("q"),
		Page:     page,
		PageSize: size,
		Fuzzy:    fuzzy,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	hydrated, err := h.hydrator.Hydrate(r.Context(), entity, res)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	params := pagination.Params{Page: res.Page, PageSize: res.PageSize}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SearchPage{
		Page:    pagination.NewPage(r, hydrated.Results, hydrated.Total, params),
		Relaxed: hydrated.Relaxed,
	}})
}

package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultPageSize = 12

// SearchProducts never fails on backend errors: the shop page shows an empty result.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	page, err := h.catalog.SearchProducts(ctx, params)
	if err != nil {
		h.logger.Warn("product search failed", zap.Error(err))
		page = backend.ProductPage{Content: []backend.Product{}, TotalPages: 1}
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.logger.Warn("list categories failed", zap.Error(err))
		categories = []backend.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func parseSearchParams(q url.Values) (backend.SearchParams, error) {
	p := backend.SearchParams{
		Keyword:    q.Get("keyword"),
		CategoryID: q.Get("categoryId"),
		PageSize:   defaultPageSize,
		SortBy:     q.Get("sortBy"),
		SortOrder:  q.Get("sortOrder"),
	}

	if v := q.Get("pageNumber"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, invalidParamError("pageNumber")
		}
		p.PageNumber = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, invalidParamError("pageSize")
		}
		p.PageSize = n
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &p.MinPrice, "maxPrice": &p.MaxPrice} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return p, invalidParamError(name)
		}
		*dst = &d
	}
	return p, nil
}

type invalidParamError string

func (e invalidParamError) Error() string {
	return "invalid query parameter " + string(e)
}

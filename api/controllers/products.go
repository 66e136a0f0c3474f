package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rinaldiihsan/sixstreet-sub001/api/responses"
	"github.com/rinaldiihsan/sixstreet-sub001/api/validators"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/catalog"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/auth"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/pagination"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/types"
)

// ProductList returns grouped products: one entry per base product with its
// size variants folded in.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		opts, err := parseListOptions(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListGroups(r.Context(), auth.AccessToken(r.Context()), opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessPage(w, catalog.NewGroupDTOs(page.Items), types.Meta{
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		})
	}
}

func ProductGroupDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		groupID := validators.SanitizeString(chi.URLParam(r, "groupId"), 64)
		if groupID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "group id is required"))
			return
		}

		detail, err := svc.GetGroup(r.Context(), auth.AccessToken(r.Context()), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.NewGroupDetailDTO(detail))
	}
}

func parseListOptions(r *http.Request) (catalog.ListOptions, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
	if err != nil {
		return catalog.ListOptions{}, err
	}
	size, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return catalog.ListOptions{}, err
	}
	inStock, err := validators.ParseQueryBool(r, "in_stock", false)
	if err != nil {
		return catalog.ListOptions{}, err
	}
	sortOrder, err := catalog.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		return catalog.ListOptions{}, err
	}
	groupBy, err := catalog.ParseGroupKey(r.URL.Query().Get("group_by"))
	if err != nil {
		return catalog.ListOptions{}, err
	}
	return catalog.ListOptions{
		GroupBy:     groupBy,
		Query:       validators.SanitizeString(r.URL.Query().Get("q"), 120),
		CategoryID:  validators.SanitizeString(r.URL.Query().Get("category"), 64),
		InStockOnly: inStock,
		Sort:        sortOrder,
		Pagination:  pagination.Params{Page: page, PageSize: size},
	}, nil
}

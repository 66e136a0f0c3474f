package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rinaldiihsan/sixstreet-sub001/api/responses"
	"github.com/rinaldiihsan/sixstreet-sub001/api/validators"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/regions"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
)

func RegionProvinces(svc regions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "regions service unavailable"))
			return
		}
		items, err := svc.Provinces(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func RegionCities(svc regions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "regions service unavailable"))
			return
		}
		provinceID := validators.SanitizeString(chi.URLParam(r, "provinceId"), 16)
		items, err := svc.Cities(r.Context(), provinceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func RegionSubdistricts(svc regions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "regions service unavailable"))
			return
		}
		cityID := validators.SanitizeString(chi.URLParam(r, "cityId"), 16)
		items, err := svc.Subdistricts(r.Context(), cityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

package controllers

import (
	"context"
	"net/http"

	"github.com/rinaldiihsan/sixstreet-sub001/api/responses"
	"github.com/rinaldiihsan/sixstreet-sub001/api/validators"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/shipping"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
)

// ShippingQuoter is the aggregator surface the quote endpoint uses.
type ShippingQuoter interface {
	QuoteAll(ctx context.Context, destinationID string) (shipping.Result, error)
	QuoteCourier(ctx context.Context, destinationID, courierCode string) (*shipping.CourierQuotes, error)
}

type shippingQuotesResponse struct {
	Quotes         []shipping.CourierQuotes `json:"quotes"`
	FailedCouriers []string                 `json:"failed_couriers"`
}

// ShippingQuotes quotes every registered courier for a destination, or just
// one when the courier query parameter is present. It does not touch the
// checkout session.
func ShippingQuotes(svc ShippingQuoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		destination, err := validators.RequireQuery(r, "destination", 16)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if courier := validators.SanitizeString(r.URL.Query().Get("courier"), 16); courier != "" {
			quotes, err := svc.QuoteCourier(r.Context(), destination, courier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, shippingQuotesResponse{
				Quotes:         []shipping.CourierQuotes{*quotes},
				FailedCouriers: []string{},
			})
			return
		}

		result, err := svc.QuoteAll(r.Context(), destination)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := shippingQuotesResponse{Quotes: result.Quotes, FailedCouriers: result.Failed}
		if resp.Quotes == nil {
			resp.Quotes = []shipping.CourierQuotes{}
		}
		if resp.FailedCouriers == nil {
			resp.FailedCouriers = []string{}
		}
		responses.WriteSuccess(w, resp)
	}
}

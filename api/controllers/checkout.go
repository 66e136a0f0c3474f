package controllers

import (
	"net/http"
	"strings"

	"github.com/rinaldiihsan/sixstreet-sub001/api/middleware"
	"github.com/rinaldiihsan/sixstreet-sub001/api/responses"
	"github.com/rinaldiihsan/sixstreet-sub001/api/validators"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/checkout"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/notify"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
)

type sessionResponse struct {
	*checkout.Session
	Status checkout.Status `json:"status"`
}

func newSessionResponse(s *checkout.Session) sessionResponse {
	return sessionResponse{Session: s, Status: s.Status()}
}

type calculateShippingRequest struct {
	DestinationID string `json:"destination_id" validate:"omitempty,max=16"`
}

func CheckoutGet(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		session, err := svc.Get(r.Context(), middleware.CheckoutSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

func CheckoutSetAddress(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var addr checkout.AddressSnapshot
		if err := validators.DecodeJSONBody(r, &addr); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.SetSelectedAddress(r.Context(), middleware.CheckoutSessionFromContext(r.Context()), addr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutCalculateShipping recalculates quotes. Without an explicit
// destination the selected address's subdistrict is used. A failed batch is
// reported through the returned session, not as an HTTP error.
func CheckoutCalculateShipping(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		ctx := r.Context()
		sid := middleware.CheckoutSessionFromContext(ctx)

		var req calculateShippingRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		destination := strings.TrimSpace(req.DestinationID)
		if destination == "" {
			current, err := svc.Get(ctx, sid)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if current.SelectedAddress != nil {
				destination = current.SelectedAddress.SubdistrictID
			}
		}

		session, err := svc.CalculateShipping(ctx, sid, destination)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

func CheckoutSelectShipping(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var selection checkout.ShippingSelection
		if err := validators.DecodeJSONBody(r, &selection); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.SetSelectedShipping(r.Context(), middleware.CheckoutSessionFromContext(r.Context()), selection)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

func CheckoutClear(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		if err := svc.ClearCheckout(r.Context(), middleware.CheckoutSessionFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// CheckoutNotifications drains the pending toasts for the session.
func CheckoutNotifications(notifier notify.Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notifier == nil {
			responses.WriteSuccess(w, []notify.Notification{})
			return
		}
		items, err := notifier.Drain(r.Context(), middleware.CheckoutSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []notify.Notification{}
		}
		responses.WriteSuccess(w, items)
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/brickfield/brickfield-backend/api/middleware"
	"github.com/brickfield/brickfield-backend/api/responses"
	"github.com/brickfield/brickfield-backend/api/validators"
	"github.com/brickfield/brickfield-backend/internal/refunds"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
)

// AdminListPendingRefunds returns the review queue, oldest first.
func AdminListPendingRefunds(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		items, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AdminApproveRefund fixes the refund amount and charges it back through the
// gateway.
func AdminApproveRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		requestID, err := uuidParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload approveRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UserIDFromContext(r.Context())
		if actor == "" {
			actor = "admin"
		}

		request, err := svc.Approve(r.Context(), requestID, payload.AmountCents, strings.TrimSpace(payload.Notes), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// AdminRejectRefund declines the request; notes are mandatory so the
// customer learns why.
func AdminRejectRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		requestID, err := uuidParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload rejectRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UserIDFromContext(r.Context())
		if actor == "" {
			actor = "admin"
		}

		request, err := svc.Reject(r.Context(), requestID, strings.TrimSpace(payload.Notes), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

type approveRefundRequest struct {
	AmountCents int    `json:"amount_cents" validate:"required,min=1"`
	Notes       string `json:"notes,omitempty"`
}

type rejectRefundRequest struct {
	Notes string `json:"notes" validate:"required,min=3"`
}

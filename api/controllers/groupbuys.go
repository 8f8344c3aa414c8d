package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandisetu/mandisetu-backend/api/middleware"
	"github.com/mandisetu/mandisetu-backend/api/responses"
	"github.com/mandisetu/mandisetu-backend/api/validators"
	"github.com/mandisetu/mandisetu-backend/internal/groupbuys"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
	pkgerrors "github.com/mandisetu/mandisetu-backend/pkg/errors"
	"github.com/mandisetu/mandisetu-backend/pkg/logger"
	"github.com/mandisetu/mandisetu-backend/pkg/pagination"
)

type joinGroupBuyRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
}

type updateGroupBuyStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListGroupBuys returns open, unexpired deals for the vendor marketplace view.
func ListGroupBuys(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group buys service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		var hubID *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("hubId")); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid hub id"))
				return
			}
			hubID = &parsed
		}

		result, err := svc.ListOpen(r.Context(), hubID, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListSupplierGroupBuys returns the supplier's view of deals they can accept or
// already own.
func ListSupplierGroupBuys(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group buys service unavailable"))
			return
		}

		supplierID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		var status *enums.GroupBuyStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseGroupBuyStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		result, err := svc.ListForSupplier(r.Context(), supplierID, status, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// JoinGroupBuy commits the authenticated vendor to a deal.
func JoinGroupBuy(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group buys service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupBuyID, err := parseGroupBuyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload joinGroupBuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Join(r.Context(), groupbuys.JoinInput{
			GroupBuyID: groupBuyID,
			UserID:     userID,
			Quantity:   payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AcceptGroupBuy lets a supplier claim an open deal's aggregated demand.
func AcceptGroupBuy(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group buys service unavailable"))
			return
		}

		supplierID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupBuyID, err := parseGroupBuyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Accept(r.Context(), groupbuys.AcceptInput{
			GroupBuyID: groupBuyID,
			SupplierID: supplierID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdateGroupBuyStatus drives a lifecycle transition on an accepted deal.
func UpdateGroupBuyStatus(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group buys service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupBuyID, err := parseGroupBuyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateGroupBuyStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseGroupBuyStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		result, err := svc.UpdateStatus(r.Context(), groupbuys.UpdateStatusInput{
			GroupBuyID: groupBuyID,
			Status:     status,
			ActorID:    actor,
			ActorRole:  enums.UserRole(middleware.RoleFromContext(r.Context())),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseGroupBuyID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "groupBuyId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group buy id")
	}
	return id, nil
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

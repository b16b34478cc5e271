package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mgastelum/freshmart-backend/api/responses"
	"github.com/mgastelum/freshmart-backend/api/validators"
	ordersvc "github.com/mgastelum/freshmart-backend/internal/orders"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
	"github.com/mgastelum/freshmart-backend/pkg/logger"
)

// AdminOrderList lets managers page through every order, optionally
// filtered by status or customer.
func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters ordersvc.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			uid, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id filter"))
				return
			}
			filters.UserID = &uid
		}

		result, err := svc.ListAll(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

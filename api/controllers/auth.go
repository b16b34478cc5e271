package controllers

import (
	"net/http"
	"strings"

	"github.com/mgastelum/freshmart-backend/api/middleware"
	"github.com/mgastelum/freshmart-backend/api/responses"
	"github.com/mgastelum/freshmart-backend/api/validators"
	authsvc "github.com/mgastelum/freshmart-backend/internal/auth"
	cartsvc "github.com/mgastelum/freshmart-backend/internal/cart"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
	"github.com/mgastelum/freshmart-backend/pkg/logger"
)

// AuthRegister creates a customer account and logs it in. Any guest
// cart identified by X-Session-Id is folded into the new account.
func AuthRegister(svc authsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body authsvc.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mergeGuestCart(r, carts, logg, result)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AuthLogin exchanges credentials for a token pair and merges any
// guest cart into the customer's persisted cart.
func AuthLogin(svc authsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body authsvc.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mergeGuestCart(r, carts, logg, result)
		responses.WriteSuccess(w, result)
	}
}

func AuthRefresh(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body authsvc.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refresh(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func AuthLogout(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		token := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if err := svc.Logout(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// mergeGuestCart best-effort folds the session cart into the account.
// Login never fails because the merge did; the degradation is logged.
func mergeGuestCart(r *http.Request, carts cartsvc.Service, logg *logger.Logger, result *authsvc.LoginResponse) {
	if carts == nil || result == nil || result.User == nil {
		return
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get("X-Session-Id"))
	}
	if sessionID == "" {
		return
	}

	if err := carts.MergeOnLogin(r.Context(), sessionID, result.User.ID); err != nil && logg != nil {
		ctx := logg.WithFields(r.Context(), map[string]any{
			"session_id": sessionID,
			"user_id":    result.User.ID.String(),
			"error":      err.Error(),
		})
		logg.Warn(ctx, "cart.merge_on_login.failed")
	}
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mgastelum/freshmart-backend/api/middleware"
	cartsvc "github.com/mgastelum/freshmart-backend/internal/cart"
	ordersvc "github.com/mgastelum/freshmart-backend/internal/orders"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
)

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// identityFromRequest builds the cart identity from whatever the
// middleware chain resolved: authenticated user, session header, or both.
func identityFromRequest(r *http.Request) (cartsvc.Identity, error) {
	identity := cartsvc.Identity{
		SessionID: middleware.SessionIDFromContext(r.Context()),
	}

	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return identity, nil
	}

	uid, err := uuid.Parse(raw)
	if err != nil {
		return cartsvc.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	identity.UserID = &uid
	return identity, nil
}

// actorFromRequest resolves the authenticated actor for order operations.
func actorFromRequest(r *http.Request) (ordersvc.Actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return ordersvc.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(raw)
	if err != nil {
		return ordersvc.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return ordersvc.Actor{
		UserID: uid,
		Role:   enums.MemberRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return uid, nil
}

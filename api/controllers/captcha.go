package controllers

import (
	"net/http"

	"github.com/mgastelum/freshmart-backend/api/responses"
	captchasvc "github.com/mgastelum/freshmart-backend/internal/captcha"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
	"github.com/mgastelum/freshmart-backend/pkg/logger"
)

// CaptchaNew issues a fresh challenge for the registration form.
func CaptchaNew(svc captchasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "captcha service unavailable"))
			return
		}

		challenge, err := svc.New(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, challenge)
	}
}

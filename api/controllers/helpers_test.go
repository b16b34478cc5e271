package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// newTestRouter mounts a handler under a chi pattern so URL params resolve.
func newTestRouter(pattern string, handler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Handle(pattern, handler)
	return r
}

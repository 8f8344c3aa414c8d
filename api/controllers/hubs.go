package controllers

import (
	"net/http"

	"github.com/mandisetu/mandisetu-backend/api/responses"
	"github.com/mandisetu/mandisetu-backend/internal/hubs"
	pkgerrors "github.com/mandisetu/mandisetu-backend/pkg/errors"
	"github.com/mandisetu/mandisetu-backend/pkg/logger"
)

// ListHubs returns every pickup hub, ordered by name.
func ListHubs(repo hubs.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hubs repository unavailable"))
			return
		}

		hubList, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, hubList)
	}
}

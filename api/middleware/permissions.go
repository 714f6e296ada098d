package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/internal/access"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/permissions"
)

// RequireCommunityPermission gates a route subtree on one permission flag in
// the community named by the communityId URL parameter.
func RequireCommunityPermission(gate *access.Gate, flag permissions.Flag, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			communityID, err := uuid.Parse(chi.URLParam(r, "communityId"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid communityId"))
				return
			}

			if err := gate.RequirePermission(r.Context(), UserIDFromContext(r.Context()), communityID, flag); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

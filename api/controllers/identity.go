package controllers

import (
	"net/http"
	"time"

	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/api/validators"
	pkgauth "github.com/davazquez/commonroom-backend/pkg/auth"
	"github.com/davazquez/commonroom-backend/pkg/config"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

type sessionRequest struct {
	ExternalID string `json:"externalId" validate:"required,min=1,max=255"`
	Handle     string `json:"handle" validate:"required,min=1,max=60"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Handle    string `json:"handle"`
	ExpiresIn int    `json:"expiresIn"`
}

// IdentitySession exchanges an external identity for a signed access token,
// creating the internal user row on first sight. Upstream identity
// verification happens at the edge; this endpoint trusts its caller.
func IdentitySession(cfg config.JWTConfig, users middleware.UserResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input sessionRequest
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := users.Resolve(r.Context(), input.ExternalID, input.Handle)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user"))
			return
		}

		token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
			ExternalID: user.ExternalID,
			Handle:     user.Handle,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}

		responses.WriteSuccess(w, sessionResponse{
			Token:     token,
			UserID:    user.ID.String(),
			Handle:    user.Handle,
			ExpiresIn: cfg.ExpirationMinutes * 60,
		})
	}
}

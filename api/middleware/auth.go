package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/davazquez/commonroom-backend/api/responses"
	pkgauth "github.com/davazquez/commonroom-backend/pkg/auth"
	"github.com/davazquez/commonroom-backend/pkg/config"
	"github.com/davazquez/commonroom-backend/pkg/db/models"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

// UserResolver maps the external identity carried in a token to the internal
// user row, creating it on first sight.
type UserResolver interface {
	Resolve(ctx context.Context, externalID, handle string) (*models.User, error)
}

// Auth validates a bearer token, resolves the internal user, and seeds the
// request context. Requests without valid credentials are rejected.
func Auth(cfg config.JWTConfig, users UserResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			ctx, err := authenticate(r.Context(), cfg, users, logg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves credentials when present and lets anonymous requests
// through untouched. Handlers see uuid.Nil for the caller in that case; the
// access gate downstream decides what anonymous callers may read.
func OptionalAuth(cfg config.JWTConfig, users UserResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			// A token that is present but invalid is still an error; silently
			// downgrading to anonymous would mask expired sessions.
			ctx, err := authenticate(r.Context(), cfg, users, logg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, users UserResolver, logg *logger.Logger, token string) (context.Context, error) {
	claims, err := pkgauth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if strings.TrimSpace(claims.ExternalID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing subject")
	}

	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user resolver unavailable")
	}

	user, err := users.Resolve(ctx, claims.ExternalID, claims.Handle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user")
	}

	ctx = WithUserID(ctx, user.ID)
	ctx = withHandle(ctx, user.Handle)
	if logg != nil {
		ctx = logg.WithUserID(ctx, user.ID.String())
	}
	return ctx, nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/pkg/config"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Commonroom-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the backing stores answer before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Commonroom-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]pinger{
			"db":    db,
			"redis": redis,
		}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

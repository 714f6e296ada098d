package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/api/validators"
	"github.com/davazquez/commonroom-backend/internal/votes"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

// CastVote records or flips the caller's vote and returns the target's totals.
func CastVote(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input votes.CastVoteInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		targetType, err := enums.ParseVoteTargetType(input.TargetType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target type"))
			return
		}
		targetID, err := uuid.Parse(input.TargetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target id"))
			return
		}
		direction, err := enums.ParseVoteDirection(input.Direction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid direction"))
			return
		}

		dto, err := svc.Cast(r.Context(), middleware.UserIDFromContext(r.Context()), targetType, targetID, direction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// RetractVote withdraws the caller's vote; retracting a vote that does not
// exist is a no-op and still returns current totals.
func RetractVote(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetType, err := enums.ParseVoteTargetType(chi.URLParam(r, "targetType"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target type"))
			return
		}
		targetID, err := uuidParam(r, "targetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Retract(r.Context(), middleware.UserIDFromContext(r.Context()), targetType, targetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

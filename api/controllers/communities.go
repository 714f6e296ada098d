package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/api/validators"
	"github.com/davazquez/commonroom-backend/internal/communities"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

// CreateCommunity provisions a community owned by the caller.
func CreateCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input communities.CreateCommunityInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func GetCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func GetCommunityBySlug(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}

		dto, err := svc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func ListCommunities(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func DeleteCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), communityID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func AddModerator(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AddModerator(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "added"})
	}
}

func RemoveModerator(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveModerator(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

package controllers

import (
	"net/http"

	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/api/validators"
	"github.com/davazquez/commonroom-backend/internal/posts"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

func CreatePost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input posts.CreatePostInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreatePost(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func GetPost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetPost(r.Context(), middleware.UserIDFromContext(r.Context()), postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func DeletePost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePost(r.Context(), middleware.UserIDFromContext(r.Context()), postID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ListPosts(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListPosts(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CreateComment(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input posts.CreateCommentInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateComment(r.Context(), middleware.UserIDFromContext(r.Context()), postID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func ListComments(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListComments(r.Context(), middleware.UserIDFromContext(r.Context()), postID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

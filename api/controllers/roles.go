package controllers

import (
	"net/http"

	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/internal/roles"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

// ListRoles returns the community's role catalog, highest position first.
func ListRoles(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListRoles(r.Context(), communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AttachRole(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		membershipID, err := uuidParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roleID, err := uuidParam(r, "roleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AttachRole(r.Context(), membershipID, roleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "attached"})
	}
}

func DetachRole(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		membershipID, err := uuidParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roleID, err := uuidParam(r, "roleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DetachRole(r.Context(), membershipID, roleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "detached"})
	}
}

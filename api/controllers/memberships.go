package controllers

import (
	"net/http"

	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/api/validators"
	"github.com/davazquez/commonroom-backend/internal/memberships"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

// JoinCommunity creates or revives the caller's membership row. The response
// status reports whether they are active immediately or queued for approval.
func JoinCommunity(svc memberships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input memberships.JoinInput
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &input); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		dto, err := svc.RequestOrJoin(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func LeaveCommunity(svc memberships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Leave(r.Context(), middleware.UserIDFromContext(r.Context()), communityID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "left"})
	}
}

func GetOwnMembership(svc memberships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetOwn(r.Context(), middleware.UserIDFromContext(r.Context()), communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func ListPendingMemberships(svc memberships.Service, logg *logger.Logger) http.HandlerFunc {
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

		page, err := svc.ListPending(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// DecideMembership approves or rejects a pending join request.
func DecideMembership(svc memberships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID, err := uuidParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		membershipID, err := uuidParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input memberships.DecisionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := enums.ParseMembershipDecision(input.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		dto, err := svc.Decide(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, membershipID, decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func BanMember(svc memberships.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Ban(r.Context(), middleware.UserIDFromContext(r.Context()), communityID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "banned"})
	}
}

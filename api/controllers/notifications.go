package controllers

import (
	"net/http"

	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/api/responses"
	"github.com/davazquez/commonroom-backend/api/validators"
	"github.com/davazquez/commonroom-backend/internal/notifications"
	"github.com/davazquez/commonroom-backend/pkg/logger"
)

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notificationID, err := uuidParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), middleware.UserIDFromContext(r.Context()), notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

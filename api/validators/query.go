package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/davazquez/commonroom-backend/pkg/errors"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
)

// ParsePageParams reads the shared limit/cursor query parameters. The limit is
// bounds-checked here so handlers reject garbage before touching a service.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer").
				WithDetails(map[string]any{"field": "limit"})
		}
		if value > pagination.MaxLimit {
			return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").
				WithDetails(map[string]any{"field": "limit", "max": pagination.MaxLimit})
		}
		params.Limit = value
	}

	if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
		params.Cursor = cursor
	}

	return params, nil
}

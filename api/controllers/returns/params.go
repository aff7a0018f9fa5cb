package returns

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/returns-engine/api/middleware"
	"github.com/angelmondragon/returns-engine/api/validators"
	internalreturns "github.com/angelmondragon/returns-engine/internal/returns"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/pagination"
)

func viewerFrom(r *http.Request) (internalreturns.Viewer, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return internalreturns.Viewer{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return internalreturns.Viewer{UserID: userID, Role: role}, nil
}

func parsePage(r *http.Request) (pagination.Params, error) {
	limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseAdminFilters(r *http.Request) (internalreturns.ListFilters, error) {
	var (
		filters internalreturns.ListFilters
		err     error
	)
	if filters.OrderID, err = validators.QueryUUID(r, "orderId"); err != nil {
		return filters, err
	}
	if filters.UserID, err = validators.QueryUUID(r, "userId"); err != nil {
		return filters, err
	}
	if filters.Status, err = validators.QueryEnum(r, "status", enums.ParseReturnRequestStatus); err != nil {
		return filters, err
	}
	if filters.Type, err = validators.QueryEnum(r, "type", enums.ParseReturnRequestType); err != nil {
		return filters, err
	}
	return filters, nil
}

func parseStatsWindow(r *http.Request) (internalreturns.StatsWindow, error) {
	var (
		window internalreturns.StatsWindow
		err    error
	)
	if window.From, err = validators.QueryTime(r, "from"); err != nil {
		return window, err
	}
	if window.To, err = validators.QueryTime(r, "to"); err != nil {
		return window, err
	}
	return window, nil
}

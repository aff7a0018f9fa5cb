package middleware

import (
	"net/http"

	"github.com/angelmondragon/returns-engine/api/responses"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// RequireRoles rejects requests whose token role is not in allowed.
func RequireRoles(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.UserRole(RoleFromContext(r.Context()))
			for _, candidate := range allowed {
				if role == candidate {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
				WithDetails(map[string]any{"role": string(role)}))
		})
	}
}

// RequireStaff admits STAFF and ADMIN tokens.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRoles(logg, enums.UserRoleStaff, enums.UserRoleAdmin)
}

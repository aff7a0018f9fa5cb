package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

type identityKey struct{}

// identity is what the auth middleware learned about the caller. Fields are
// kept raw so handlers can tell "absent" from "malformed".
type identity struct {
	userID string
	role   enums.UserRole
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func withIdentity(ctx context.Context, id identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

func UserIDFromContext(ctx context.Context) string {
	return identityFrom(ctx).userID
}

func RoleFromContext(ctx context.Context) string {
	return string(identityFrom(ctx).role)
}

// ActorFromContext returns the authenticated user id and role. ok is false
// when the request carries no parsable identity.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole, bool) {
	current := identityFrom(ctx)
	id, err := uuid.Parse(current.userID)
	if err != nil || id == uuid.Nil || !current.role.IsValid() {
		return uuid.Nil, "", false
	}
	return id, current.role, true
}

// WithActor records a verified caller.
func WithActor(ctx context.Context, userID uuid.UUID, role enums.UserRole) context.Context {
	return withIdentity(ctx, identity{userID: userID.String(), role: role})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	current := identityFrom(ctx)
	current.userID = userID
	return withIdentity(ctx, current)
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	current := identityFrom(ctx)
	current.role = role
	return withIdentity(ctx, current)
}

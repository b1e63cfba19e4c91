package auth

import (
	"context"
	"slices"
)

// Actor is the authenticated caller as seen by the domain services.
type Actor struct {
	UserID string
	Roles  []string
	Groups []string
}

// ActorFromContext collects the identity placed on ctx by JWTMiddleware or
// DevAuthMiddleware. ok is false when no user is present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	uid := UserIDFromContext(ctx)
	if uid == "" {
		return Actor{}, false
	}
	return Actor{
		UserID: uid,
		Roles:  RolesFromContext(ctx),
		Groups: GroupsFromContext(ctx),
	}, true
}

// IsStaff reports whether the actor may act on any appointment.
func (a Actor) IsStaff() bool {
	return slices.Contains(a.Roles, RoleStaff) || slices.Contains(a.Roles, RoleAdmin)
}

// InGroup reports membership of any of the given group names. Empty names
// never match.
func (a Actor) InGroup(names ...string) bool {
	for _, n := range names {
		if n != "" && slices.Contains(a.Groups, n) {
			return true
		}
	}
	return false
}

// WithActor returns a copy of ctx carrying a's identity, as the auth
// middleware would have set it.
func WithActor(ctx context.Context, a Actor) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, a.UserID)
	ctx = context.WithValue(ctx, UserRolesKey, a.Roles)
	return context.WithValue(ctx, UserGroupsKey, a.Groups)
}

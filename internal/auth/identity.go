package auth

import "context"

// Identity is the acting user of a request. The zero value is the anonymous
// visitor.
type Identity struct {
	UserID   string
	Username string
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

// IsAuthenticated reports whether the identity belongs to a signed-in user.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != ""
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, or Anonymous.
func IdentityFrom(ctx context.Context) Identity {
	if ctx == nil {
		return Anonymous
	}
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

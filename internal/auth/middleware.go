package auth

import (
	"errors"
	"net/http"

	"github.com/kuitang/yanote/internal/obs"
	"github.com/kuitang/yanote/internal/urlutil"
)

// Middleware resolves the session cookie into an Identity and gates routes
// that need a signed-in user.
type Middleware struct {
	sessions  *SessionService
	users     *UserService
	loginPath string
	secure    bool
}

// NewMiddleware creates a new auth middleware. Anonymous requests to gated
// routes are redirected to loginPath.
func NewMiddleware(sessions *SessionService, users *UserService, loginPath string, secureCookies bool) *Middleware {
	return &Middleware{
		sessions:  sessions,
		users:     users,
		loginPath: loginPath,
		secure:    secureCookies,
	}
}

// LoadIdentity puts the request's Identity in context. Requests without a
// valid session continue as Anonymous; a stale cookie is cleared.
func (m *Middleware) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := GetFromRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		userID, err := m.sessions.Validate(ctx, sessionID)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				obs.From(ctx).Warn("session_validate_failed", "error", err)
			}
			ClearCookie(w, m.secure)
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetByID(ctx, userID)
		if err != nil {
			obs.From(ctx).Warn("session_user_lookup_failed", "error", err)
			ClearCookie(w, m.secure)
			next.ServeHTTP(w, r)
			return
		}

		ctx = obs.AnnotateUser(ctx, user.ID)
		ctx = WithIdentity(ctx, user.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects anonymous requests to the login page with the
// requested path and query in next.
func (m *Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFrom(r.Context()).IsAuthenticated() {
			http.Redirect(w, r, urlutil.LoginURL(m.loginPath, r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecureCookies reports whether session cookies carry the Secure flag.
func (m *Middleware) SecureCookies() bool {
	return m.secure
}

package web

import (
	"net/http"

	"github.com/kuitang/yanote/internal/obs"
	"github.com/kuitang/yanote/internal/ratelimit"
)

// RegisterRoutes registers every page route on mux. Note pages require a
// signed-in user; login and signup POSTs go through loginLimiter.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, loginLimiter *ratelimit.RateLimiter) {
	gated := func(fn http.HandlerFunc) http.Handler {
		return h.authMW.RequireLogin(fn)
	}
	limited := ratelimit.Middleware(loginLimiter, ratelimit.ClientKey)

	// Public pages
	mux.Handle(pattern("GET", RouteHome), http.HandlerFunc(h.HandleHome))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.Handle(pattern(method, RouteLogin), limited(http.HandlerFunc(h.HandleLogin)))
		mux.Handle(pattern(method, RouteSignup), limited(http.HandlerFunc(h.HandleSignup)))
		mux.Handle(pattern(method, RouteLogout), http.HandlerFunc(h.HandleLogout))
	}

	// Signed-in pages
	mux.Handle(pattern("GET", RouteList), gated(h.HandleList))
	mux.Handle(pattern("GET", RouteSuccess), gated(h.HandleSuccess))
	mux.Handle(pattern("GET", RouteDetail), gated(h.HandleDetail))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.Handle(pattern(method, RouteAdd), gated(h.HandleAdd))
		mux.Handle(pattern(method, RouteEdit), gated(h.HandleEdit))
		mux.Handle(pattern(method, RouteDelete), gated(h.HandleDelete))
	}
}

// NewServer returns the site's root handler: the page routes wrapped in
// request correlation, tracing, access logging and identity loading.
func NewServer(h *Handler, loginLimiter *ratelimit.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, loginLimiter)

	var handler http.Handler = mux
	handler = h.authMW.LoadIdentity(handler)
	handler = obs.AccessLogMiddleware("web", handler)
	handler = obs.TracingMiddleware(handler)
	handler = obs.RequestContextMiddleware(handler)
	return handler
}

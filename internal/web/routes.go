package web

import (
	"fmt"
	"net/url"
	"strings"
)

// Route names.
const (
	RouteHome    = "home"
	RouteLogin   = "login"
	RouteLogout  = "logout"
	RouteSignup  = "signup"
	RouteList    = "list"
	RouteAdd     = "add"
	RouteSuccess = "success"
	RouteDetail  = "detail"
	RouteEdit    = "edit"
	RouteDelete  = "delete"
)

// Routes maps each route name to its URL path. Paths containing {slug}
// take the note slug as their only argument.
var Routes = map[string]string{
	RouteHome:    "/",
	RouteLogin:   "/auth/login/",
	RouteLogout:  "/auth/logout/",
	RouteSignup:  "/auth/signup/",
	RouteList:    "/notes/",
	RouteAdd:     "/add/",
	RouteSuccess: "/done/",
	RouteDetail:  "/note/{slug}/",
	RouteEdit:    "/edit/{slug}/",
	RouteDelete:  "/delete/{slug}/",
}

// Reverse resolves a route name to a path. Routes with a {slug} segment need
// exactly one argument; the others take none.
func Reverse(name string, args ...string) (string, error) {
	path, ok := Routes[name]
	if !ok {
		return "", fmt.Errorf("unknown route %q", name)
	}
	if !strings.Contains(path, "{slug}") {
		if len(args) != 0 {
			return "", fmt.Errorf("route %q takes no arguments, got %d", name, len(args))
		}
		return path, nil
	}
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("route %q needs a slug", name)
	}
	return strings.Replace(path, "{slug}", url.PathEscape(args[0]), 1), nil
}

// MustReverse is Reverse for route names known at compile time.
func MustReverse(name string, args ...string) string {
	path, err := Reverse(name, args...)
	if err != nil {
		panic(err)
	}
	return path
}

// pattern returns the ServeMux pattern for a route: the path anchored with
// {$} so "/notes/" does not match "/notes/anything".
func pattern(method, name string) string {
	return method + " " + Routes[name] + "{$}"
}

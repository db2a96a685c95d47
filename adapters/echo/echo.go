// Package meldecho provides Echo framework integration for meld components.
//
// Mount the message, socket and initial-render routes onto an Echo instance:
//
//	e := echo.New()
//	meldecho.Mount(e, dispatcher)
//
// Or onto a group with middleware, passing the group's prefix:
//
//	g := e.Group("/app", authMiddleware)
//	meldecho.MountGroup(g, "/app", dispatcher)
package meldecho

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/meld"
	"github.com/pthm/meld/lib/transport"
)

// Mount creates a transport handler for d and registers its routes on e.
//
//	meldecho.Mount(e, d, transport.WithMaxMessageBytes(64<<10))
func Mount(e *echo.Echo, d *meld.Dispatcher, opts ...transport.Option) *transport.Handler {
	h := transport.New(d, opts...)
	register(e.Add, h, echo.WrapHandler(h))
	return h
}

// MountGroup registers the transport routes on a group so they share the
// group's middleware. prefix must be the prefix the group was created with.
func MountGroup(g *echo.Group, prefix string, d *meld.Dispatcher, opts ...transport.Option) *transport.Handler {
	h := transport.New(d, opts...)
	register(g.Add, h, echo.WrapHandler(http.StripPrefix(strings.TrimSuffix(prefix, "/"), h)))
	return h
}

type addFunc func(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route

func register(add addFunc, h *transport.Handler, handler echo.HandlerFunc) {
	routes := h.Routes()
	add(http.MethodPost, echoPath(routes[0]), handler)
	add(http.MethodGet, echoPath(routes[1]), handler)
	add(http.MethodGet, echoPath(routes[2]), handler)
}

// echoPath converts chi style {param} segments to Echo's :param.
func echoPath(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			parts[i] = ":" + strings.TrimSuffix(strings.TrimPrefix(p, "{"), "}")
		}
	}
	return strings.Join(parts, "/")
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return meldecho.Render(c, d.Templ("counter"))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}

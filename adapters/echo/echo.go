// Package gcpimgecho provides Echo framework integration for gcpimg
// components.
//
// Mount components onto an Echo instance or group:
//
//	e := echo.New()
//	reg := gcpimgecho.Mount(e)
//	reg.Add(img)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	reg := gcpimgecho.MountGroup(g)
//	reg.Add(img)
package gcpimgecho

import (
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/gcpimg"
	"github.com/pthm/gcpimg/lib/cdn"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key    []byte
	path   string
	logger *slog.Logger
}

// WithKey sets the signing/encryption key for the registry.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the URL path prefix for component routes.
// Defaults to "/_c/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Mount creates a registry and mounts the component handler on an Echo instance.
//
//	e := echo.New()
//	reg := gcpimgecho.Mount(e, gcpimgecho.WithKey(key))
//	reg.Add(img)
func Mount(e *echo.Echo, opts ...Option) *gcpimg.Registry {
	reg, path := newRegistry(opts)
	e.Any(path+"*", echo.WrapHandler(reg.Handler()))
	return reg
}

// MountGroup creates a registry and mounts the component handler on an Echo group.
// This allows components to share middleware with the group (auth, logging, etc.).
func MountGroup(g *echo.Group, opts ...Option) *gcpimg.Registry {
	reg, path := newRegistry(opts)
	g.Any(path+"*", echo.WrapHandler(reg.Handler()))
	return reg
}

func newRegistry(opts []Option) (*gcpimg.Registry, string) {
	o := &options{path: "/_c/"}
	for _, opt := range opts {
		opt(o)
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("gcpimgecho: failed to generate random key: %v", err))
		}
	}

	reg := gcpimg.NewRegistry(key)
	if o.logger != nil {
		reg.Logger = o.logger
	}
	return reg, o.path
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return gcpimgecho.Render(c, page())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}

// Capabilities samples the client capabilities of the Echo request.
func Capabilities(c echo.Context) cdn.Capabilities {
	return gcpimg.CapabilitiesFromRequest(c.Request())
}

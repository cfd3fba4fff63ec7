package gcpimg

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pthm/gcpimg/lib/cdn"
)

// Registry manages component registration and routing.
type Registry struct {
	mu         sync.RWMutex
	mux        *http.ServeMux
	encoder    *Encoder
	components map[string]HXComponent

	// Logger receives registration and routing logs. Defaults to slog.Default().
	Logger *slog.Logger

	// OnError is called when a component request fails.
	// Customize this to handle errors appropriately for your application.
	OnError ErrorHandler
}

// NewRegistry creates a new component registry with the given key.
// Panics if the key cannot back an encoder.
func NewRegistry(key []byte) *Registry {
	enc, err := NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("gcpimg: failed to create encoder: %v", err))
	}

	return &Registry{
		mux:        http.NewServeMux(),
		encoder:    enc,
		components: make(map[string]HXComponent),
		Logger:     slog.Default(),
		OnError:    defaultErrorHandler,
	}
}

// Encoder returns the registry's encoder (used by components).
func (reg *Registry) Encoder() *Encoder {
	return reg.encoder
}

// Add registers components with the registry.
//
// Components that accept an encoder or an error handler receive the
// registry's. Panics on a prefix collision.
func (reg *Registry) Add(components ...HXComponent) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, comp := range components {
		reg.register(comp)
	}
}

func (reg *Registry) register(comp HXComponent) {
	prefix := comp.HXPrefix()
	if _, exists := reg.components[prefix]; exists {
		panic(fmt.Sprintf("gcpimg: prefix collision for %q", prefix))
	}
	if c, ok := comp.(interface{ SetEncoder(*Encoder) }); ok {
		c.SetEncoder(reg.encoder)
	}
	if c, ok := comp.(interface{ SetErrorHandler(ErrorHandler) }); ok {
		c.SetErrorHandler(reg.handleError)
	}
	reg.components[prefix] = comp

	reg.mux.HandleFunc(prefix+"/", comp.HXServeHTTP)
	reg.Logger.Debug("component registered", "prefix", prefix)
}

// Len returns the number of registered components.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.components)
}

func (reg *Registry) handleError(w http.ResponseWriter, r *http.Request, err error) {
	reg.mu.RLock()
	h := reg.OnError
	reg.mu.RUnlock()
	if h == nil {
		h = defaultErrorHandler
	}
	h(w, r, err)
}

// Handler returns the HTTP handler for component routes.
// Mount this at "/_c/" in your application.
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CSRF protection: mutating methods require HX-Request header
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !IsHTMX(r) {
				http.Error(w, "Forbidden: HTMX request required", http.StatusForbidden)
				return
			}
		}

		reg.mux.ServeHTTP(w, r)
	})
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsNotFound(err):
		http.Error(w, "Not found", http.StatusNotFound)
	case IsBadRequest(err):
		http.Error(w, "Bad request", http.StatusBadRequest)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// errorKind labels err for metrics.
func errorKind(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrMissingSource):
		return "missing_src"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, cdn.ErrUnknownAttribute):
		return "unknown_attribute"
	case IsDecryptionError(err):
		return "decrypt"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	}
	return "internal"
}

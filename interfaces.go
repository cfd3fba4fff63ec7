package gcpimg

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pthm/gcpimg/lib/cdn"
	"github.com/pthm/gcpimg/lib/encoding"
)

// Attrs is the raw attribute set of one image, exactly as it would be
// written on a <gcp-img> element. Boolean attributes (play, fixed, blur,
// ...) are present with any value, usually "".
type Attrs map[string]string

// AttributeMap implements encoding.Encodable.
func (a Attrs) AttributeMap() map[string]string { return a }

// Props is what the component route works with: the raw attributes
// decoded from the URL, plus what Hydrate and the request add.
type Props struct {
	Attrs Attrs

	// Image is Attrs parsed and normalized by Hydrate.
	Image cdn.Attributes

	// Caps are sampled from the request that loads the image.
	Caps cdn.Capabilities
}

var (
	_ encoding.Encodable = Props{}
	_ encoding.Decodable = (*Props)(nil)
)

// AttributeMap implements encoding.Encodable.
func (p Props) AttributeMap() map[string]string { return p.Attrs }

// SetAttributeMap implements encoding.Decodable.
func (p *Props) SetAttributeMap(m map[string]string) error {
	p.Attrs = Attrs(m)
	return nil
}

// Hydrater is implemented by components to reconstruct rich values from
// the serialized attributes. Called before every render.
//
// For images, hydration parses and normalizes the attribute strings:
// radius clamping, color validation, and decoding the sizes/config
// literal. A malformed literal fails hydration with ErrParse.
type Hydrater interface {
	Hydrate(ctx context.Context, props *Props) error
}

// Renderer is implemented by components to produce templ output from
// hydrated props. Render should be pure.
type Renderer interface {
	Render(ctx context.Context, props Props) templ.Component
}

// HXComponent is implemented by components the Registry can route to.
//
// HXPrefix returns the unique URL prefix for this component instance.
// HXServeHTTP handles all HTTP requests for the component's routes.
type HXComponent interface {
	HXPrefix() string
	HXServeHTTP(w http.ResponseWriter, r *http.Request)
}

// ErrorHandler renders a failed component request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Metrics receives component counters. See internal/metrics for the
// Prometheus implementation.
type Metrics interface {
	// Rendered counts rendered markup by mode: "lazy", "eager" or "load".
	Rendered(mode string)
	// Failed counts failed requests by error kind.
	Failed(kind string)
}

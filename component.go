package gcpimg

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/a-h/templ"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pthm/gcpimg/lib/cdn"
	"github.com/pthm/gcpimg/lib/encoding"
)

// DefaultCacheSize is the number of parsed attribute sets an Image keeps.
const DefaultCacheSize = 512

// Image is a lazily-loaded CDN image component.
//
//	img := gcpimg.New("gallery")
//	reg.Add(img)
//
//	@img.Lazy(gcpimg.Attrs{"src": src, "config": breakpoints}, placeholder())
//
// Each Image receives a deterministic URL prefix based on its name and
// source location (file:line of the New call), so two images with the same
// name in different places still get distinct routes.
type Image struct {
	name      string
	prefix    string
	sensitive bool
	eager     bool
	encoder   *Encoder
	cdn       cdn.Encoder
	parsed    *lru.Cache[string, cdn.Attributes]
	logger    *slog.Logger
	metrics   Metrics
	onError   ErrorHandler
}

// Option configures an Image.
type Option func(*Image)

// WithConvention selects the CDN token dialect. Defaults to cdn.Picture;
// the zero Convention also means cdn.Picture.
func WithConvention(conv cdn.Convention) Option {
	return func(c *Image) {
		if conv.Name == "" {
			conv = cdn.Picture
		}
		c.cdn = cdn.NewEncoder(conv)
	}
}

// WithEager renders final markup immediately instead of waiting for
// viewport intersection.
func WithEager() Option {
	return func(c *Image) { c.eager = true }
}

// WithLogger sets the component logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Image) { c.logger = l }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Image) { c.metrics = m }
}

// WithCacheSize sets how many parsed attribute sets are kept.
func WithCacheSize(n int) Option {
	return func(c *Image) {
		if cache, err := lru.New[string, cdn.Attributes](n); err == nil {
			c.parsed = cache
		}
	}
}

// New creates an image component with the given name.
//
// By default attributes are signed (visible in URLs but tamper-proof). Call
// .Sensitive() to encrypt them.
func New(name string, opts ...Option) *Image {
	c := &Image{
		name:    name,
		prefix:  "/_c/" + name + "-" + componentHash(name, 1),
		cdn:     cdn.NewEncoder(cdn.Picture),
		logger:  slog.Default(),
		metrics: nopMetrics{},
	}
	c.parsed, _ = lru.New[string, cdn.Attributes](DefaultCacheSize)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sensitive marks the component as sensitive, enabling full encryption of
// the attributes carried in its URLs.
func (c *Image) Sensitive() *Image {
	c.sensitive = true
	return c
}

// Name returns the component's name.
func (c *Image) Name() string { return c.name }

// Prefix returns the component's URL prefix.
func (c *Image) Prefix() string { return c.prefix }

// HXPrefix implements HXComponent.
func (c *Image) HXPrefix() string { return c.prefix }

// IsSensitive returns whether the component seals its attributes.
func (c *Image) IsSensitive() bool { return c.sensitive }

// Convention returns the CDN convention in use.
func (c *Image) Convention() cdn.Convention { return c.cdn.Convention() }

// SetEncoder sets the encoder for this component (called by registry).
func (c *Image) SetEncoder(enc *Encoder) { c.encoder = enc }

// Encoder returns the encoder for this component.
func (c *Image) Encoder() *Encoder { return c.encoder }

// SetErrorHandler sets the failure renderer (called by registry).
func (c *Image) SetErrorHandler(h ErrorHandler) { c.onError = h }

func (c *Image) mode() encoding.Mode {
	if c.sensitive {
		return encoding.Sealed
	}
	return encoding.Signed
}

// Hydrate parses the raw attributes. Parsed sets are cached by their
// canonical form since parsing is a pure function of the attributes.
func (c *Image) Hydrate(ctx context.Context, props *Props) error {
	if props.Attrs["src"] == "" {
		return ErrMissingSource
	}
	key := canonical(props.Attrs)
	if a, ok := c.parsed.Get(key); ok {
		props.Image = a
		return nil
	}
	a, err := cdn.Parse(props.Attrs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHydrationFailed, err)
	}
	c.parsed.Add(key, a)
	props.Image = a
	return nil
}

// Render produces the final <picture> markup for hydrated props.
func (c *Image) Render(ctx context.Context, props Props) templ.Component {
	return Picture(props.Image, c.cdn.Encode(props.Image, props.Caps))
}

// Lazy returns the placeholder wrapper that loads the image when it
// scrolls into view. The placeholder renders until the image has loaded.
//
// Uses HTMX's "intersect once" trigger: the route is requested exactly
// once, the first time the wrapper intersects the viewport.
//
// Attributes are validated before anything is written, so a malformed
// config or sizes value fails the render as it does for Eager.
func (c *Image) Lazy(attrs Attrs, placeholder templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		props := Props{Attrs: attrs}
		if err := c.Hydrate(ctx, &props); err != nil {
			c.logger.Warn("image attributes rejected", "component", c.name, "error", err)
			c.metrics.Failed(errorKind(err))
			return fmt.Errorf("gcpimg: %s: %w", c.name, err)
		}
		c.metrics.Rendered("lazy")
		return host(ctx, w, attrs, LazyAttrs(c.buildURL(attrs), SwapBeforeEnd), placeholder, nil)
	})
}

// Eager returns the wrapper with the final markup already inside, for
// environments without a visibility capability.
func (c *Image) Eager(attrs Attrs, caps cdn.Capabilities, placeholder templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		props := Props{Attrs: attrs, Caps: caps}
		if err := c.Hydrate(ctx, &props); err != nil {
			c.logger.Warn("image attributes rejected", "component", c.name, "error", err)
			c.metrics.Failed(errorKind(err))
			return fmt.Errorf("gcpimg: %s: %w", c.name, err)
		}
		c.metrics.Rendered("eager")
		return host(ctx, w, attrs, templ.Attributes{AttrIntersecting: ""}, placeholder, c.Render(ctx, props))
	})
}

// Tag renders Lazy, or Eager when the component was built WithEager.
func (c *Image) Tag(attrs Attrs, caps cdn.Capabilities, placeholder templ.Component) templ.Component {
	if c.eager {
		return c.Eager(attrs, caps, placeholder)
	}
	return c.Lazy(attrs, placeholder)
}

// HXServeHTTP answers the lazy-load request with the final markup.
func (c *Image) HXServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if path := strings.TrimPrefix(r.URL.Path, c.prefix); path != "/" && path != "" {
		c.fail(w, r, ErrNotFound)
		return
	}

	var props Props
	encoded := r.URL.Query().Get("p")
	if encoded == "" {
		c.fail(w, r, ErrMissingSource)
		return
	}
	if c.encoder == nil {
		c.fail(w, r, fmt.Errorf("gcpimg: %s: no encoder, component not registered", c.name))
		return
	}
	if err := c.encoder.Decode(encoded, c.mode(), &props); err != nil {
		c.fail(w, r, wrapEncodingError(err))
		return
	}
	props.Caps = CapabilitiesFromRequest(r)

	if err := c.Hydrate(r.Context(), &props); err != nil {
		c.fail(w, r, err)
		return
	}

	// The markup depends on the client hints the capabilities came from.
	w.Header().Set("Vary", "Accept, ECT, Save-Data")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), props).Render(r.Context(), w); err != nil {
		c.logger.Error("render failed", "component", c.name, "error", err)
		return
	}
	c.metrics.Rendered("load")
}

func (c *Image) fail(w http.ResponseWriter, r *http.Request, err error) {
	c.metrics.Failed(errorKind(err))
	if IsBadRequest(err) {
		c.logger.Warn("image request rejected", "component", c.name, "path", r.URL.Path, "error", err)
	} else {
		c.logger.Error("image request failed", "component", c.name, "path", r.URL.Path, "error", err)
	}
	if c.onError != nil {
		c.onError(w, r, err)
		return
	}
	defaultErrorHandler(w, r, err)
}

// buildURL constructs the component route with encoded attributes.
func (c *Image) buildURL(attrs Attrs) string {
	path := c.prefix + "/"
	if c.encoder == nil {
		c.logger.Warn("component has no encoder, attributes dropped", "component", c.name)
		return path
	}
	encoded, err := c.encoder.Encode(attrs, c.mode())
	if err != nil {
		c.logger.Error("encode attributes", "component", c.name, "error", err)
		return path
	}
	return path + "?p=" + encoded
}

// canonical is a stable cache key for an attribute set.
func canonical(attrs Attrs) string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(0)
		b.WriteString(attrs[name])
		b.WriteByte(0)
	}
	return b.String()
}

// componentHash generates a deterministic hash based on component name and source location.
func componentHash(name string, skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	var input string
	if ok {
		// Use base filename only for portability across environments
		input = fmt.Sprintf("%s:%d:%s", filepath.Base(file), line, name)
	} else {
		input = name
	}
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:4]) // 8 hex chars
}

type nopMetrics struct{}

func (nopMetrics) Rendered(string) {}
func (nopMetrics) Failed(string)   {}

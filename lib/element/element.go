// Package element models the lifecycle of one lazy image element.
//
// An Element owns its attributes and a small state machine:
//
//	Idle --Attach--> Observing --intersecting entry--> Loaded
//	  \--Attach (no observer)------------------------> Loaded
//
// Detach cancels observation and returns the element to Idle. All methods
// must be called from the single goroutine that owns the element; the
// observer callback is expected on that same goroutine.
package element

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pthm/gcpimg/lib/cdn"
)

// State is the load state of an element.
type State int

const (
	Idle State = iota
	Observing
	Loaded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Observing:
		return "observing"
	case Loaded:
		return "loaded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// AttrIntersecting is set by the element once it has been in view.
const AttrIntersecting = "intersecting"

var (
	ErrUnknownAttribute  = cdn.ErrUnknownAttribute
	ErrReadOnlyAttribute = errors.New("element: read-only attribute")
)

// Options configures an Element. Nil capabilities mean the capability is
// unavailable in the environment.
type Options struct {
	Convention cdn.Convention
	Observer   Observer
	Network    NetworkInfo
	Formats    FormatSupport
	Surface    Surface
	OnEvent    func(Event)
	Logger     *slog.Logger
}

// Element is one lazy image instance.
type Element struct {
	enc      cdn.Encoder
	caps     cdn.Capabilities
	observer Observer
	surface  Surface
	onEvent  func(Event)
	logger   *slog.Logger

	raw       map[string]string
	attrs     cdn.Attributes
	rendition cdn.Rendition
	state     State
	stop      StopFunc
}

// New constructs an Idle element with no attributes. Connection quality
// and format support are sampled here, once.
func New(opts Options) *Element {
	conv := opts.Convention
	if conv.Name == "" {
		conv = cdn.Picture
	}
	caps := cdn.Capabilities{Connection: cdn.Fast}
	if opts.Network != nil {
		caps.Connection = cdn.ConnectionFromEffectiveType(opts.Network.EffectiveType())
	}
	if opts.Formats != nil {
		caps.WebP = opts.Formats.SupportsWebP()
	}
	surface := opts.Surface
	if surface == nil {
		surface = nopSurface{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Element{
		enc:      cdn.NewEncoder(conv),
		caps:     caps,
		observer: opts.Observer,
		surface:  surface,
		onEvent:  opts.OnEvent,
		logger:   logger,
		raw:      make(map[string]string),
	}
}

// State returns the current load state.
func (e *Element) State() State { return e.state }

// Capabilities returns the capabilities sampled at construction.
func (e *Element) Capabilities() cdn.Capabilities { return e.caps }

// Intersecting reports whether the element has come into view.
func (e *Element) Intersecting() bool {
	_, ok := e.raw[AttrIntersecting]
	return ok
}

// Attribute returns the raw value of an attribute.
func (e *Element) Attribute(name string) (string, bool) {
	v, ok := e.raw[name]
	return v, ok
}

// Attributes returns the normalized attributes.
func (e *Element) Attributes() cdn.Attributes { return e.attrs }

// Rendition returns the most recently encoded rendition, assigned or held.
func (e *Element) Rendition() cdn.Rendition { return e.rendition }

// SetAttribute applies an attribute mutation. Writing the value an
// attribute already holds does nothing. A malformed source-set literal is
// returned as a *cdn.ParseError and the attribute keeps its old value.
func (e *Element) SetAttribute(name, value string) error {
	if name == AttrIntersecting {
		return fmt.Errorf("%w: %q", ErrReadOnlyAttribute, name)
	}
	if cur, ok := e.raw[name]; ok && cur == value {
		return nil
	}
	next := e.attrs
	if err := next.Set(name, value); err != nil {
		return err
	}
	e.raw[name] = value
	e.attrs = next
	e.changed(name)
	return nil
}

// RemoveAttribute removes an attribute. Removing an absent attribute does
// nothing.
func (e *Element) RemoveAttribute(name string) error {
	if name == AttrIntersecting {
		return fmt.Errorf("%w: %q", ErrReadOnlyAttribute, name)
	}
	if !cdn.Known(name) {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	if _, ok := e.raw[name]; !ok {
		return nil
	}
	_ = e.attrs.Unset(name)
	delete(e.raw, name)
	e.changed(name)
	return nil
}

func (e *Element) changed(name string) {
	if name == "alt" {
		e.surface.SetAlt(e.attrs.Alt)
		return
	}
	if !cdn.AffectsURL(name) {
		return
	}
	e.rendition = e.enc.Encode(e.attrs, e.caps)
	if e.Intersecting() {
		e.assign()
	}
}

// Attach populates the element from its initial attributes and starts the
// load lifecycle. Without an observer the image is loaded immediately.
// Attaching an element that is not Idle does nothing.
func (e *Element) Attach(initial map[string]string) error {
	if e.state != Idle {
		return nil
	}
	names := make([]string, 0, len(initial))
	for name := range initial {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.SetAttribute(name, initial[name]); err != nil {
			return fmt.Errorf("element: attach: %w", err)
		}
	}

	e.surface.SetAlt(e.attrs.Alt)
	e.rendition = e.enc.Encode(e.attrs, e.caps)

	if e.observer == nil {
		e.logger.Debug("no visibility observer, loading now", "src", e.attrs.Src)
		e.load()
		return nil
	}
	e.state = Observing
	stop := e.observer.Observe(RootMargin, e.handleEntries)
	if e.state != Observing {
		// Delivered inline before Observe returned.
		if stop != nil {
			stop()
		}
		return nil
	}
	e.stop = stop
	e.logger.Debug("observing visibility", "src", e.attrs.Src, "margin", RootMargin)
	return nil
}

// Detach cancels observation and resets the element to Idle.
func (e *Element) Detach() {
	e.stopObserving()
	e.state = Idle
	delete(e.raw, AttrIntersecting)
}

// handleEntries receives one batch of visibility entries.
func (e *Element) handleEntries(entries []Entry) {
	if e.state != Observing {
		return
	}
	for _, entry := range entries {
		if entry.Intersecting {
			e.stopObserving()
			e.load()
			return
		}
	}
}

func (e *Element) load() {
	e.state = Loaded
	if _, ok := e.raw[AttrIntersecting]; !ok {
		e.raw[AttrIntersecting] = ""
	}
	e.assign()
	e.logger.Debug("image assigned", "src", e.rendition.Src)
}

func (e *Element) assign() {
	r := e.rendition
	if r.Src == "" {
		return
	}
	e.surface.SetSources(r.Sources)
	e.surface.SetSrcset(r.Srcset)
	e.surface.SetSrc(r.Src)
}

// OnLoad is called by the environment when the image has loaded.
func (e *Element) OnLoad() {
	e.emit(Event{Type: EventLoadEnd, Success: true})
	e.surface.Reveal()
	e.surface.HidePlaceholder()
	e.stopObserving()
}

// OnError is called by the environment when the image failed to load.
// The placeholder stays visible and nothing is retried.
func (e *Element) OnError() {
	e.emit(Event{Type: EventLoadEnd, Success: false})
	e.stopObserving()
	e.logger.Warn("image failed to load", "src", e.rendition.Src)
}

func (e *Element) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}

func (e *Element) stopObserving() {
	if e.stop == nil {
		return
	}
	e.stop()
	e.stop = nil
}

type nopSurface struct{}

func (nopSurface) SetSrc(string)           {}
func (nopSurface) SetSrcset(string)        {}
func (nopSurface) SetSources([]cdn.Source) {}
func (nopSurface) SetAlt(string)           {}
func (nopSurface) Reveal()                 {}
func (nopSurface) HidePlaceholder()        {}

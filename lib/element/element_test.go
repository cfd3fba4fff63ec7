package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/gcpimg/lib/cdn"
)

const imgURL = "https://lh3.googleusercontent.com/base"

// recordingSurface records every assignment made by an element.
type recordingSurface struct {
	srcs        []string
	srcsets     []string
	sources     [][]cdn.Source
	alt         string
	revealed    bool
	placeholder bool
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{placeholder: true}
}

func (s *recordingSurface) SetSrc(src string)               { s.srcs = append(s.srcs, src) }
func (s *recordingSurface) SetSrcset(srcset string)         { s.srcsets = append(s.srcsets, srcset) }
func (s *recordingSurface) SetSources(sources []cdn.Source) { s.sources = append(s.sources, sources) }
func (s *recordingSurface) SetAlt(alt string)               { s.alt = alt }
func (s *recordingSurface) Reveal()                         { s.revealed = true }
func (s *recordingSurface) HidePlaceholder()                { s.placeholder = false }

func (s *recordingSurface) lastSrc() string {
	if len(s.srcs) == 0 {
		return ""
	}
	return s.srcs[len(s.srcs)-1]
}

// fakeObserver lets a test deliver visibility batches by hand.
type fakeObserver struct {
	margin  string
	cb      func([]Entry)
	observe int
	stops   int
}

func (o *fakeObserver) Observe(margin string, cb func([]Entry)) StopFunc {
	o.margin = margin
	o.cb = cb
	o.observe++
	return func() { o.stops++ }
}

func (o *fakeObserver) deliver(entries ...Entry) {
	o.cb(entries)
}

func newElement(t *testing.T, obs Observer) (*Element, *recordingSurface) {
	t.Helper()
	surface := newRecordingSurface()
	opts := Options{Convention: cdn.Picture, Surface: surface}
	if obs != nil {
		opts.Observer = obs
	}
	return New(opts), surface
}

func TestElement_NoObserverLoadsImmediately(t *testing.T) {
	el, surface := newElement(t, nil)

	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))

	assert.Equal(t, Loaded, el.State())
	assert.True(t, el.Intersecting())
	assert.Equal(t, []string{imgURL + "=v1-e365-nw"}, surface.srcs)
}

func TestElement_OffscreenDoesNotLoad(t *testing.T) {
	obs := &fakeObserver{}
	el, surface := newElement(t, obs)

	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))

	assert.Equal(t, Observing, el.State())
	assert.Equal(t, RootMargin, obs.margin)
	assert.False(t, el.Intersecting())
	assert.Empty(t, surface.srcs)

	obs.deliver(Entry{Intersecting: false})
	assert.Empty(t, surface.srcs)
	assert.False(t, el.Intersecting())
}

func TestElement_LoadsOnIntersection(t *testing.T) {
	obs := &fakeObserver{}
	el, surface := newElement(t, obs)
	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))

	obs.deliver(Entry{Intersecting: false}, Entry{Intersecting: true})

	assert.Equal(t, Loaded, el.State())
	assert.True(t, el.Intersecting())
	assert.Equal(t, []string{imgURL + "=v1-e365-nw"}, surface.srcs)
	assert.Equal(t, 1, obs.stops)

	// Late batches after teardown never re-trigger.
	obs.deliver(Entry{Intersecting: true})
	assert.Len(t, surface.srcs, 1)
}

func TestElement_MutationHeldUntilVisible(t *testing.T) {
	obs := &fakeObserver{}
	el, surface := newElement(t, obs)
	require.NoError(t, el.Attach(map[string]string{"src": imgURL, "rotate": "90"}))

	require.NoError(t, el.SetAttribute("rotate", "270"))
	assert.Empty(t, surface.srcs)
	assert.Equal(t, imgURL+"=v1-e365-nw-r270", el.Rendition().Src)

	obs.deliver(Entry{Intersecting: true})
	assert.Equal(t, []string{imgURL + "=v1-e365-nw-r270"}, surface.srcs)
}

func TestElement_MutationReassignsWhenIntersecting(t *testing.T) {
	el, surface := newElement(t, nil)
	require.NoError(t, el.Attach(map[string]string{"src": imgURL, "rotate": "90"}))
	assert.Equal(t, imgURL+"=v1-e365-nw-r90", surface.lastSrc())

	require.NoError(t, el.SetAttribute("rotate", "270"))
	assert.Equal(t, imgURL+"=v1-e365-nw-r270", surface.lastSrc())

	require.NoError(t, el.SetAttribute("size", "360"))
	assert.Equal(t, imgURL+"=w360-v1-e365-nw-r270", surface.lastSrc())

	require.NoError(t, el.RemoveAttribute("rotate"))
	assert.Equal(t, imgURL+"=w360-v1-e365-nw", surface.lastSrc())
}

func TestElement_SameValueIsNoop(t *testing.T) {
	el, surface := newElement(t, nil)
	require.NoError(t, el.Attach(map[string]string{"src": imgURL, "flip": "v"}))
	require.Len(t, surface.srcs, 1)

	require.NoError(t, el.SetAttribute("flip", "v"))
	require.NoError(t, el.SetAttribute("src", imgURL))
	assert.Len(t, surface.srcs, 1)

	require.NoError(t, el.RemoveAttribute("crop"))
	assert.Len(t, surface.srcs, 1)
}

func TestElement_AltIsApplied(t *testing.T) {
	el, surface := newElement(t, &fakeObserver{})
	require.NoError(t, el.Attach(map[string]string{"alt": "attribute alt"}))
	assert.Equal(t, "attribute alt", surface.alt)

	require.NoError(t, el.SetAttribute("alt", "override alt"))
	assert.Equal(t, "override alt", surface.alt)
	assert.Empty(t, surface.srcs)
}

func TestElement_DefaultAlt(t *testing.T) {
	el, surface := newElement(t, nil)
	surface.alt = "stale"
	require.NoError(t, el.Attach(nil))
	assert.Equal(t, "", surface.alt)
}

func TestElement_IntersectingIsReadOnly(t *testing.T) {
	el, _ := newElement(t, &fakeObserver{})

	assert.ErrorIs(t, el.SetAttribute(AttrIntersecting, ""), ErrReadOnlyAttribute)
	assert.ErrorIs(t, el.RemoveAttribute(AttrIntersecting), ErrReadOnlyAttribute)
	assert.False(t, el.Intersecting())
}

func TestElement_UnknownAttribute(t *testing.T) {
	el, _ := newElement(t, nil)

	assert.ErrorIs(t, el.SetAttribute("srcset", "x"), ErrUnknownAttribute)
	assert.ErrorIs(t, el.RemoveAttribute("srcset"), ErrUnknownAttribute)
	_, ok := el.Attribute("srcset")
	assert.False(t, ok)
}

func TestElement_MalformedConfigFailsAttach(t *testing.T) {
	obs := &fakeObserver{}
	el, surface := newElement(t, obs)

	err := el.Attach(map[string]string{"src": imgURL, "config": "[{'screen':"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cdn.ErrParse)
	assert.Equal(t, Idle, el.State())
	assert.Zero(t, obs.observe)
	assert.Empty(t, surface.srcs)
}

func TestElement_SourceSet(t *testing.T) {
	el, surface := newElement(t, nil)
	require.NoError(t, el.Attach(map[string]string{
		"src":    imgURL,
		"config": `[{"screen":320,"size":320},{"screen":600,"size":640,"source":"ALT"}]`,
	}))

	require.Len(t, surface.srcsets, 1)
	assert.Equal(t, imgURL+"=w320-v1-e365-nw 320w,ALT=w640-v1-e365-nw 600w", surface.srcsets[0])
}

func TestElement_LoadEnd(t *testing.T) {
	var events []Event
	obs := &fakeObserver{}
	surface := newRecordingSurface()
	el := New(Options{Observer: obs, Surface: surface, OnEvent: func(ev Event) { events = append(events, ev) }})
	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))
	obs.deliver(Entry{Intersecting: true})

	el.OnLoad()

	require.Len(t, events, 1)
	assert.Equal(t, Event{Type: EventLoadEnd, Success: true}, events[0])
	assert.True(t, surface.revealed)
	assert.False(t, surface.placeholder)
}

func TestElement_LoadError(t *testing.T) {
	var events []Event
	obs := &fakeObserver{}
	surface := newRecordingSurface()
	el := New(Options{Observer: obs, Surface: surface, OnEvent: func(ev Event) { events = append(events, ev) }})
	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))
	obs.deliver(Entry{Intersecting: true})

	el.OnError()

	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.False(t, surface.revealed)
	assert.True(t, surface.placeholder)
	assert.Len(t, surface.srcs, 1)
}

func TestElement_DetachCancelsObservation(t *testing.T) {
	obs := &fakeObserver{}
	el, surface := newElement(t, obs)
	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))

	el.Detach()
	el.Detach()

	assert.Equal(t, 1, obs.stops)
	assert.Equal(t, Idle, el.State())

	// A stale callback from the cancelled observation is ignored.
	obs.deliver(Entry{Intersecting: true})
	assert.Empty(t, surface.srcs)

	require.NoError(t, el.Attach(nil))
	assert.Equal(t, Observing, el.State())
	assert.Equal(t, 2, obs.observe)
}

func TestElement_ConnectionSampledOnce(t *testing.T) {
	net := &countingNetwork{ect: "3g"}
	el := New(Options{Network: net, Formats: WebP(true)})
	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))
	require.NoError(t, el.SetAttribute("rotate", "90"))

	assert.Equal(t, 1, net.calls)
	assert.Equal(t, cdn.Slow, el.Capabilities().Connection)
	assert.True(t, el.Capabilities().WebP)
	assert.Equal(t, imgURL+"=v3-e365-nw-r90", el.Rendition().Src)
}

func TestElement_FixedNetwork(t *testing.T) {
	el := New(Options{Network: FixedNetwork("4g")})
	assert.Equal(t, cdn.Fast, el.Capabilities().Connection)
}

func TestElement_ObserverFunc(t *testing.T) {
	var cb func([]Entry)
	obs := ObserverFunc(func(margin string, f func([]Entry)) StopFunc {
		cb = f
		return func() {}
	})
	el, surface := newElement(t, obs)
	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))

	cb([]Entry{{Intersecting: true}})
	assert.Len(t, surface.srcs, 1)
}

func TestElement_InlineDeliveryStopsObserver(t *testing.T) {
	var observes, stops int
	obs := ObserverFunc(func(margin string, cb func([]Entry)) StopFunc {
		observes++
		cb([]Entry{{Intersecting: true}})
		return func() { stops++ }
	})
	el, surface := newElement(t, obs)

	require.NoError(t, el.Attach(map[string]string{"src": imgURL}))
	assert.Equal(t, Loaded, el.State())
	assert.Equal(t, 1, observes)
	assert.Equal(t, 1, stops)
	assert.Equal(t, []string{imgURL + "=v1-e365-nw"}, surface.srcs)

	el.Detach()
	assert.Equal(t, 1, stops)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "observing", Observing.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "State(9)", State(9).String())
}

type countingNetwork struct {
	ect   string
	calls int
}

func (n *countingNetwork) EffectiveType() string {
	n.calls++
	return n.ect
}

package element

import "github.com/pthm/gcpimg/lib/cdn"

// RootMargin is the proximity margin passed to the visibility observer.
const RootMargin = "10px"

// Entry is one visibility notification for the observed element.
type Entry struct {
	Intersecting bool
}

// StopFunc cancels an observation. Calling it more than once is safe.
type StopFunc func()

// Observer is the viewport-visibility capability. Observe delivers batches
// of entries to cb until the returned StopFunc is called.
type Observer interface {
	Observe(margin string, cb func([]Entry)) StopFunc
}

// NetworkInfo is the network-quality capability.
type NetworkInfo interface {
	EffectiveType() string
}

// FormatSupport is the next-gen format probe, evaluated once per page.
type FormatSupport interface {
	SupportsWebP() bool
}

// Surface is where the element renders: an <img> inside an optional
// <picture> wrapper, next to a placeholder.
type Surface interface {
	SetSrc(src string)
	SetSrcset(srcset string)
	SetSources(sources []cdn.Source)
	SetAlt(alt string)
	Reveal()
	HidePlaceholder()
}

// EventLoadEnd is the only event an element emits.
const EventLoadEnd = "loadend"

// Event is a lifecycle notification.
type Event struct {
	Type    string
	Success bool
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(margin string, cb func([]Entry)) StopFunc

func (f ObserverFunc) Observe(margin string, cb func([]Entry)) StopFunc {
	return f(margin, cb)
}

// FixedNetwork is a NetworkInfo that always reports the same effective type.
type FixedNetwork string

func (n FixedNetwork) EffectiveType() string { return string(n) }

// WebP is a fixed FormatSupport value.
type WebP bool

func (w WebP) SupportsWebP() bool { return bool(w) }

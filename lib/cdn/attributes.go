package cdn

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Filter kinds.
const (
	FilterBlur     = "blur"
	FilterVignette = "vignette"
	FilterInvert   = "invert"
	FilterBW       = "bw"
)

// Crop kinds.
const (
	CropCircular = "circular"
	CropSmart    = "smart"
)

const (
	MaxRadius     = 100
	DefaultColor  = "000000"
	vignetteShape = "1.4,0"
)

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// ErrUnknownAttribute is returned for attribute names outside the closed set.
var ErrUnknownAttribute = errors.New("cdn: unknown attribute")

// Size is the target rendition size. Height is optional.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether no size was declared.
func (s Size) IsZero() bool {
	return s.Width <= 0
}

// Breakpoint is one responsive source-set entry.
type Breakpoint struct {
	Screen     int    `json:"screen"`
	Size       int    `json:"size"`
	Source     string `json:"source,omitempty"`
	DarkSource string `json:"darksrc,omitempty"`
}

// Attributes is the normalized state of one image element.
//
// The zero value is an element with no attributes. Use Set and Unset to
// apply attribute mutations; every field is already normalized, so the
// encoder never re-validates.
type Attributes struct {
	Src         string
	DarkSrc     string
	Alt         string
	Size        Size
	SourceSet   []Breakpoint
	Rotate      *int
	Flip        string
	Filter      string
	Blur        bool
	Vignette    bool
	Invert      bool
	BW          bool
	Radius      int
	Color       string
	Crop        string
	TTL         *int
	Play        bool
	Fixed       bool
	Placeholder string

	// sizes and config back SourceSet; whichever was set last wins and
	// removing one falls back to the other.
	sizes  []Breakpoint
	config []Breakpoint
}

type setter struct {
	// url reports whether the attribute changes the encoded URL.
	url   bool
	set   func(a *Attributes, v string) error
	unset func(a *Attributes)
}

var setters = map[string]setter{
	"src": {true,
		func(a *Attributes, v string) error { a.Src = v; return nil },
		func(a *Attributes) { a.Src = "" }},
	"darksrc": {true,
		func(a *Attributes, v string) error { a.DarkSrc = v; return nil },
		func(a *Attributes) { a.DarkSrc = "" }},
	"alt": {false,
		func(a *Attributes, v string) error { a.Alt = v; return nil },
		func(a *Attributes) { a.Alt = "" }},
	"size": {true,
		func(a *Attributes, v string) error { a.Size = ParseSize(v); return nil },
		func(a *Attributes) { a.Size = Size{} }},
	"sizes": {true, setSourceSet("sizes", func(a *Attributes) *[]Breakpoint { return &a.sizes }),
		func(a *Attributes) { a.sizes = nil; a.SourceSet = a.config }},
	"config": {true, setSourceSet("config", func(a *Attributes) *[]Breakpoint { return &a.config }),
		func(a *Attributes) { a.config = nil; a.SourceSet = a.sizes }},
	"ttl": {true,
		func(a *Attributes, v string) error { a.TTL = parseNonNegative(v); return nil },
		func(a *Attributes) { a.TTL = nil }},
	"rotate": {true,
		func(a *Attributes, v string) error { a.Rotate = parseNonNegative(v); return nil },
		func(a *Attributes) { a.Rotate = nil }},
	"flip": {true,
		func(a *Attributes, v string) error { a.Flip = v; return nil },
		func(a *Attributes) { a.Flip = "" }},
	"filter": {true,
		func(a *Attributes, v string) error { a.Filter = v; return nil },
		func(a *Attributes) { a.Filter = "" }},
	"blur": {true,
		func(a *Attributes, v string) error { a.Blur = true; return nil },
		func(a *Attributes) { a.Blur = false }},
	"vignette": {true,
		func(a *Attributes, v string) error { a.Vignette = true; return nil },
		func(a *Attributes) { a.Vignette = false }},
	"invert": {true,
		func(a *Attributes, v string) error { a.Invert = true; return nil },
		func(a *Attributes) { a.Invert = false }},
	"bw": {true,
		func(a *Attributes, v string) error { a.BW = true; return nil },
		func(a *Attributes) { a.BW = false }},
	"radius": {true,
		func(a *Attributes, v string) error { a.Radius = NormalizeRadius(v); return nil },
		func(a *Attributes) { a.Radius = 0 }},
	"color": {true,
		func(a *Attributes, v string) error { a.Color = NormalizeColor(v); return nil },
		func(a *Attributes) { a.Color = "" }},
	"crop": {true,
		func(a *Attributes, v string) error { a.Crop = v; return nil },
		func(a *Attributes) { a.Crop = "" }},
	"play": {true,
		func(a *Attributes, v string) error { a.Play = true; return nil },
		func(a *Attributes) { a.Play = false }},
	"fixed": {false,
		func(a *Attributes, v string) error { a.Fixed = true; return nil },
		func(a *Attributes) { a.Fixed = false }},
	"placeholder": {false,
		func(a *Attributes, v string) error { a.Placeholder = v; return nil },
		func(a *Attributes) { a.Placeholder = "" }},
}

func setSourceSet(name string, field func(*Attributes) *[]Breakpoint) func(a *Attributes, v string) error {
	return func(a *Attributes, v string) error {
		set, err := ParseSourceSet(name, v)
		if err != nil {
			return err
		}
		*field(a) = set
		a.SourceSet = set
		return nil
	}
}

// Known reports whether name is a recognized attribute.
func Known(name string) bool {
	_, ok := setters[name]
	return ok
}

// AffectsURL reports whether changing name changes the encoded URL.
func AffectsURL(name string) bool {
	return setters[name].url
}

// AttributeNames returns the recognized attribute names, sorted.
func AttributeNames() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set applies one attribute value. A failed parse leaves a unchanged.
func (a *Attributes) Set(name, value string) error {
	s, ok := setters[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	return s.set(a, value)
}

// Unset removes one attribute.
func (a *Attributes) Unset(name string) error {
	s, ok := setters[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	s.unset(a)
	return nil
}

// Parse builds Attributes from a raw attribute map. Unknown names are
// rejected so that a typo never silently produces a different image.
func Parse(raw map[string]string) (Attributes, error) {
	var a Attributes
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := a.Set(name, raw[name]); err != nil {
			return Attributes{}, err
		}
	}
	return a, nil
}

// FilterKind resolves the active filter: the filter attribute when it
// names a known filter, else the first boolean filter attribute present.
func (a Attributes) FilterKind() string {
	switch a.Filter {
	case FilterBlur, FilterVignette, FilterInvert, FilterBW:
		return a.Filter
	}
	switch {
	case a.Blur:
		return FilterBlur
	case a.Vignette:
		return FilterVignette
	case a.Invert:
		return FilterInvert
	case a.BW:
		return FilterBW
	}
	return ""
}

// VignetteColor returns the normalized vignette color.
func (a Attributes) VignetteColor() string {
	if a.Color == "" {
		return DefaultColor
	}
	return a.Color
}

// HasDark reports whether any dark-scheme source is declared.
func (a Attributes) HasDark() bool {
	if a.DarkSrc != "" {
		return true
	}
	for _, bp := range a.SourceSet {
		if bp.DarkSource != "" {
			return true
		}
	}
	return false
}

// ParseSize parses "W" or "W,H". A missing or non-numeric width yields the
// zero Size.
func ParseSize(v string) Size {
	parts := strings.SplitN(v, ",", 2)
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 {
		return Size{}
	}
	s := Size{Width: w}
	if len(parts) == 2 {
		if h, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && h > 0 {
			s.Height = h
		}
	}
	return s
}

// NormalizeRadius clamps a filter radius to [0, MaxRadius]. Non-numeric
// input is 0.
func NormalizeRadius(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return clampRadius(n)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	switch {
	case errors.Is(err, strconv.ErrSyntax), math.IsNaN(f), f < 0:
		return 0
	case f > MaxRadius:
		return MaxRadius
	}
	return int(f)
}

// NormalizeColor upper-cases a 6-digit hex color; anything else is black.
func NormalizeColor(v string) string {
	if !hexColor.MatchString(v) {
		return DefaultColor
	}
	return strings.ToUpper(v)
}

// parseNonNegative reads a token number. Negative or non-numeric input is
// ignored.
func parseNonNegative(v string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

package cdn

import (
	"fmt"
	"strings"
)

// Convention selects the token dialect understood by the image CDN.
//
// The CDN has grown several generations of URL tokens. A Convention pins
// one of them so that every URL produced for a page is built the same way.
type Convention struct {
	Name string

	// SizeMarker prefixes the target size: "s" (square/legacy) or "w" (width).
	SizeMarker string

	FastQuality string
	SlowQuality string

	// InlineNoWebP appends the "nw" token to every suffix.
	InlineNoWebP bool

	// WebPSources emits separate image/webp <source> entries. Requires
	// InlineNoWebP, since the WebP suffix is derived by replacing "nw".
	WebPSources bool

	// KillAnimation appends "k" unless the play attribute is present.
	KillAnimation bool
}

// Token values shared by every convention.
const (
	TokenNoWebP      = "nw"
	TokenWebP        = "rw"
	TokenNoAnimation = "k"
	TokenCircular    = "cc"
	TokenSmart       = "pp"

	DefaultTTLDays = 365
)

var (
	// Legacy is the original square-sizing dialect.
	Legacy = Convention{
		Name:        "legacy",
		SizeMarker:  "s",
		FastQuality: "v1",
		SlowQuality: "v2",
	}

	// Picture is the width-sizing dialect used with <picture> wrappers.
	Picture = Convention{
		Name:         "picture",
		SizeMarker:   "w",
		FastQuality:  "v1",
		SlowQuality:  "v3",
		InlineNoWebP: true,
		WebPSources:  true,
	}

	// Animated is Picture for animation-capable sources.
	Animated = Convention{
		Name:          "animated",
		SizeMarker:    "w",
		FastQuality:   "v1",
		SlowQuality:   "v3",
		InlineNoWebP:  true,
		WebPSources:   true,
		KillAnimation: true,
	}
)

// ConventionByName looks up a built-in convention.
func ConventionByName(name string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Picture.Name:
		return Picture, nil
	case Legacy.Name:
		return Legacy, nil
	case Animated.Name:
		return Animated, nil
	}
	return Convention{}, fmt.Errorf("cdn: unknown convention %q", name)
}

// quality returns the quality token for the connection class.
func (c Convention) quality(conn Connection) string {
	if conn == Slow {
		return c.SlowQuality
	}
	return c.FastQuality
}

func (c Convention) webp() bool {
	return c.WebPSources && c.InlineNoWebP
}

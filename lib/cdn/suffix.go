package cdn

import (
	"strconv"
	"strings"
)

// tokens is an ordered list of CDN option tokens.
type tokens []string

func (t *tokens) add(tok string) {
	if tok != "" {
		*t = append(*t, tok)
	}
}

func (t tokens) String() string {
	return strings.Join(t, "-")
}

// Suffix encodes the option tokens appended to every resource URL.
//
// The CDN reads tokens positionally, so the order here is fixed: quality,
// ttl, no-webp, no-animation, rotate, flip, crop, filter.
func Suffix(a Attributes, conv Convention, conn Connection) string {
	var t tokens
	t.add(conv.quality(conn))
	t.add(ttlToken(a.TTL))
	if conv.InlineNoWebP {
		t.add(TokenNoWebP)
	}
	if conv.KillAnimation && !a.Play {
		t.add(TokenNoAnimation)
	}
	if a.Rotate != nil {
		t.add("r" + strconv.Itoa(*a.Rotate))
	}
	t.add(flipToken(a.Flip))
	t.add(cropToken(a.Crop))
	t.add(filterToken(a))
	return t.String()
}

// WebPSuffix turns a no-webp suffix into its WebP-affirming twin. It
// returns "" when the suffix carries no "nw" token.
func WebPSuffix(suffix string) string {
	parts := strings.Split(suffix, "-")
	for i, p := range parts {
		if p == TokenNoWebP {
			parts[i] = TokenWebP
			return strings.Join(parts, "-")
		}
	}
	return ""
}

func ttlToken(days *int) string {
	if days == nil {
		return "e" + strconv.Itoa(DefaultTTLDays)
	}
	return "e" + strconv.Itoa(*days)
}

func flipToken(flip string) string {
	switch flip {
	case "h", "v":
		return "f" + flip
	}
	return ""
}

func cropToken(crop string) string {
	switch crop {
	case CropCircular:
		return TokenCircular
	case CropSmart:
		return TokenSmart
	}
	return ""
}

func filterToken(a Attributes) string {
	radius := strconv.Itoa(clampRadius(a.Radius))
	switch a.FilterKind() {
	case FilterBlur:
		return "fSoften=1," + radius + ",0"
	case FilterVignette:
		return "fVignette=1," + radius + "," + vignetteShape + "," + a.VignetteColor()
	case FilterInvert:
		return "fInvert=0"
	case FilterBW:
		return "fbw=0"
	}
	return ""
}

func clampRadius(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxRadius:
		return MaxRadius
	}
	return n
}

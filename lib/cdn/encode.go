package cdn

import (
	"strconv"
	"strings"
)

// Media and type conditions used on <source> entries.
const (
	MediaDark = "(prefers-color-scheme: dark)"
	TypeWebP  = "image/webp"
)

// Source is one alternate <source> entry of a picture wrapper.
type Source struct {
	Srcset string
	Media  string
	Type   string
}

// Rendition is everything a rendering surface needs for one element.
type Rendition struct {
	Suffix  string
	Src     string
	Srcset  string
	Sources []Source
}

// Encoder turns Attributes into CDN URLs for one convention.
type Encoder struct {
	conv Convention
}

// NewEncoder returns an encoder for conv.
func NewEncoder(conv Convention) Encoder {
	return Encoder{conv: conv}
}

// Convention returns the encoder's convention.
func (e Encoder) Convention() Convention {
	return e.conv
}

// Suffix is the option suffix for a under caps.
func (e Encoder) Suffix(a Attributes, caps Capabilities) string {
	return Suffix(a, e.conv, caps.Connection)
}

// Encode derives the full rendition. It is a pure function of its inputs.
// Without a src the rendition is empty.
func (e Encoder) Encode(a Attributes, caps Capabilities) Rendition {
	if a.Src == "" {
		return Rendition{}
	}
	suffix := e.Suffix(a, caps)
	r := Rendition{
		Suffix: suffix,
		Src:    e.URL(a.Src, a.Size, suffix),
		Srcset: e.SourceSet(a.Src, a.SourceSet, suffix),
	}
	r.Sources = e.sources(a, caps, suffix)
	return r
}

// URL joins src, the optional size prefix and suffix. With a size the
// form is {src}={marker}{width}-{suffix}; without it, {src}={suffix}.
func (e Encoder) URL(src string, size Size, suffix string) string {
	if size.IsZero() {
		return src + "=" + suffix
	}
	var b strings.Builder
	b.WriteString(src)
	b.WriteString("=")
	b.WriteString(e.conv.SizeMarker)
	b.WriteString(strconv.Itoa(size.Width))
	if size.Height > 0 {
		b.WriteString("-h")
		b.WriteString(strconv.Itoa(size.Height))
	}
	b.WriteString("-")
	b.WriteString(suffix)
	return b.String()
}

// SourceSet builds a srcset value. Entries missing a screen or a size are
// skipped; entry sources override src.
func (e Encoder) SourceSet(src string, set []Breakpoint, suffix string) string {
	return e.sourceSet(set, suffix, func(bp Breakpoint) string {
		if bp.Source != "" {
			return bp.Source
		}
		return src
	})
}

// DarkSourceSet builds the dark-scheme srcset. Each entry prefers its own
// dark source, then darkSrc, then the light URL of the entry.
func (e Encoder) DarkSourceSet(src, darkSrc string, set []Breakpoint, suffix string) string {
	return e.sourceSet(set, suffix, func(bp Breakpoint) string {
		switch {
		case bp.DarkSource != "":
			return bp.DarkSource
		case darkSrc != "":
			return darkSrc
		case bp.Source != "":
			return bp.Source
		}
		return src
	})
}

func (e Encoder) sourceSet(set []Breakpoint, suffix string, url func(Breakpoint) string) string {
	entries := make([]string, 0, len(set))
	for _, bp := range set {
		if bp.Screen == 0 || bp.Size == 0 {
			continue
		}
		entries = append(entries, url(bp)+"="+e.conv.SizeMarker+strconv.Itoa(bp.Size)+"-"+suffix+" "+strconv.Itoa(bp.Screen)+"w")
	}
	return strings.Join(entries, ",")
}

// sources orders the picture entries: dark before light, WebP before the
// fallback format. The light fallback is the <img> itself.
func (e Encoder) sources(a Attributes, caps Capabilities, suffix string) []Source {
	var webpSuffix string
	if e.conv.webp() && caps.WebP {
		webpSuffix = WebPSuffix(suffix)
	}

	var out []Source
	if a.HasDark() {
		dark := func(sfx string) string {
			if len(a.SourceSet) > 0 {
				if set := e.DarkSourceSet(a.Src, a.DarkSrc, a.SourceSet, sfx); set != "" {
					return set
				}
			}
			src := a.DarkSrc
			if src == "" {
				src = a.Src
			}
			return e.URL(src, a.Size, sfx)
		}
		if webpSuffix != "" {
			out = append(out, Source{Srcset: dark(webpSuffix), Media: MediaDark, Type: TypeWebP})
		}
		out = append(out, Source{Srcset: dark(suffix), Media: MediaDark})
	}
	if webpSuffix != "" {
		srcset := e.SourceSet(a.Src, a.SourceSet, webpSuffix)
		if srcset == "" {
			srcset = e.URL(a.Src, a.Size, webpSuffix)
		}
		out = append(out, Source{Srcset: srcset, Type: TypeWebP})
	}
	return out
}

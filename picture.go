package gcpimg

import (
	"context"
	"html"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/gcpimg/lib/cdn"
	"github.com/pthm/gcpimg/lib/element"
)

// AttrIntersecting is set on the host wrapper once it has been in view.
const AttrIntersecting = element.AttrIntersecting

// Class names used by the markup. Style them from the page.
const (
	HostClass        = "gcp-img"
	PlaceholderClass = "gcp-img-placeholder"
)

// Picture renders the final markup for a rendition: a <picture> with its
// alternate sources, dark and WebP first, and the <img> fallback.
//
// The <img> starts aria-hidden and announces completion through the
// loadend handler installed by LoadEndScript.
func Picture(a cdn.Attributes, r cdn.Rendition) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<picture>")
		for _, s := range r.Sources {
			b.WriteString(`<source srcset="`)
			b.WriteString(html.EscapeString(s.Srcset))
			b.WriteString(`"`)
			if s.Media != "" {
				b.WriteString(` media="`)
				b.WriteString(html.EscapeString(s.Media))
				b.WriteString(`"`)
			}
			if s.Type != "" {
				b.WriteString(` type="`)
				b.WriteString(html.EscapeString(s.Type))
				b.WriteString(`"`)
			}
			b.WriteString(">")
		}
		b.WriteString(`<img src="`)
		b.WriteString(html.EscapeString(r.Src))
		b.WriteString(`"`)
		if r.Srcset != "" {
			b.WriteString(` srcset="`)
			b.WriteString(html.EscapeString(r.Srcset))
			b.WriteString(`"`)
		}
		b.WriteString(` alt="`)
		b.WriteString(html.EscapeString(a.Alt))
		b.WriteString(`"`)
		if a.Fixed && !a.Size.IsZero() {
			b.WriteString(` width="`)
			b.WriteString(strconv.Itoa(a.Size.Width))
			b.WriteString(`"`)
			if a.Size.Height > 0 {
				b.WriteString(` height="`)
				b.WriteString(strconv.Itoa(a.Size.Height))
				b.WriteString(`"`)
			}
		}
		b.WriteString(` aria-hidden="true" onload="gcpImgLoadEnd(this,true)" onerror="gcpImgLoadEnd(this,false)">`)
		b.WriteString("</picture>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// host renders the wrapper shared by lazy and eager images: the
// placeholder slot followed by content, if any.
func host(ctx context.Context, w io.Writer, attrs Attrs, extra templ.Attributes, placeholder, content templ.Component) error {
	var b strings.Builder
	b.WriteString(`<div class="`)
	b.WriteString(HostClass)
	b.WriteString(`"`)
	if _, ok := attrs["fixed"]; ok {
		b.WriteString(` data-fixed`)
	}
	writeAttrs(&b, extra)
	b.WriteString(`><div class="`)
	b.WriteString(PlaceholderClass)
	b.WriteString(`" aria-hidden="false"`)
	if name := attrs["placeholder"]; name != "" {
		b.WriteString(` data-slot="`)
		b.WriteString(html.EscapeString(name))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if placeholder != nil {
		if err := placeholder.Render(ctx, w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</div>"); err != nil {
		return err
	}
	if content != nil {
		if err := content.Render(ctx, w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</div>")
	return err
}

// writeAttrs writes attributes in name order. Empty strings and true
// render as bare boolean attributes; false and non-string values are
// skipped.
func writeAttrs(b *strings.Builder, attrs templ.Attributes) {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch v := attrs[name].(type) {
		case string:
			b.WriteString(" ")
			b.WriteString(name)
			if v != "" {
				b.WriteString(`="`)
				b.WriteString(html.EscapeString(v))
				b.WriteString(`"`)
			}
		case bool:
			if v {
				b.WriteString(" ")
				b.WriteString(name)
			}
		}
	}
}

const loadEndScript = `<script>
function gcpImgLoadEnd(img, ok) {
  var host = img.closest(".` + HostClass + `");
  if (ok) {
    img.removeAttribute("aria-hidden");
    var ph = host && host.querySelector(".` + PlaceholderClass + `");
    if (ph) ph.setAttribute("aria-hidden", "true");
  }
  (host || img).dispatchEvent(new CustomEvent("loadend", {bubbles: true, detail: {success: ok}}));
}
</script>`

// LoadEndScript installs the handler that reveals a loaded image, hides
// its placeholder and dispatches the loadend event with {success}.
//
// Add it once to your layout, before the first image:
//
//	@gcpimg.LoadEndScript()
func LoadEndScript() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, loadEndScript)
		return err
	})
}

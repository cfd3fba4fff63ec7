package demo

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/gcpimg"
	"github.com/pthm/gcpimg/lib/cdn"
)

// HTMXSrc is the htmx build the page loads.
const HTMXSrc = "https://unpkg.com/htmx.org@2.0.4"

const style = `<style>
.gcp-img { position: relative; min-height: 120px; }
.gcp-img img { opacity: 0; transition: opacity .3s; }
.gcp-img img:not([aria-hidden]) { opacity: 1; }
.gcp-img-placeholder[aria-hidden="true"] { display: none; }
.spinner { display: block; width: 24px; height: 24px; border: 3px solid #ccc; border-top-color: #333; border-radius: 50%; animation: spin 1s linear infinite; }
@keyframes spin { to { transform: rotate(360deg); } }
</style>`

func raw(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// Spinner is the placeholder shown until an image has loaded.
func Spinner() templ.Component {
	return raw(`<span class="spinner"></span>`)
}

// Page renders the full demo document. caps only matter for eager images.
func (g *Gallery) Page(caps cdn.Capabilities) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!DOCTYPE html><html><head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">` +
			`<title>gcpimg</title><script src="` + HTMXSrc + `"></script>` + style
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := gcpimg.LoadEndScript().Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</head><body><h1>gcpimg</h1><p>Convention: `+
			html.EscapeString(g.Image.Convention().Name)+`</p>`); err != nil {
			return err
		}
		for _, s := range g.Samples {
			if _, err := io.WriteString(w, `<section><h2>`+html.EscapeString(s.Title)+`</h2>`); err != nil {
				return err
			}
			if err := g.Image.Tag(s.Attrs, caps, Spinner()).Render(ctx, w); err != nil {
				return err
			}
			if _, err := io.WriteString(w, `</section>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Package demo holds the page served by `gcpimg serve`.
package demo

import (
	"github.com/pthm/gcpimg"
	"github.com/pthm/gcpimg/lib/cdn"
)

// Sample is one image on the demo page.
type Sample struct {
	Title string
	Attrs gcpimg.Attrs
}

// Samples returns the demo images served from base, a CDN resource URL
// without its "=" suffix.
func Samples(base string) []Sample {
	return []Sample{
		{Title: "Plain", Attrs: gcpimg.Attrs{"src": base, "size": "480", "alt": "Plain"}},
		{Title: "Rotated and flipped", Attrs: gcpimg.Attrs{"src": base, "size": "480", "rotate": "90", "flip": "h", "alt": "Rotated"}},
		{Title: "Responsive", Attrs: gcpimg.Attrs{
			"src":   base,
			"alt":   "Responsive",
			"sizes": `[{'screen':320,'size':320},{'screen':768,'size':720},{'screen':1280,'size':1200}]`,
		}},
		{Title: "Soft blur", Attrs: gcpimg.Attrs{"src": base, "size": "480", "blur": "", "radius": "12", "alt": "Blurred"}},
		{Title: "Vignette", Attrs: gcpimg.Attrs{"src": base, "size": "480", "vignette": "", "radius": "40", "color": "1a2b3c", "alt": "Vignette"}},
		{Title: "Circular crop", Attrs: gcpimg.Attrs{"src": base, "size": "240,240", "crop": "circular", "fixed": "", "alt": "Circle"}},
		{Title: "Black and white", Attrs: gcpimg.Attrs{"src": base, "size": "480", "bw": "", "ttl": "30", "alt": "Black and white"}},
		{Title: "Dark scheme", Attrs: gcpimg.Attrs{"src": base, "darksrc": base, "size": "480", "invert": "", "alt": "Dark"}},
	}
}

// Gallery owns the image component used by the page.
type Gallery struct {
	Image   *gcpimg.Image
	Samples []Sample
}

// Options configures NewGallery.
type Options struct {
	Base       string
	Convention cdn.Convention
	Eager      bool
	Sensitive  bool
	CacheSize  int
	Extra      []gcpimg.Option
}

// NewGallery creates the gallery component.
func NewGallery(o Options) *Gallery {
	opts := append([]gcpimg.Option{gcpimg.WithConvention(o.Convention)}, o.Extra...)
	if o.Eager {
		opts = append(opts, gcpimg.WithEager())
	}
	if o.CacheSize > 0 {
		opts = append(opts, gcpimg.WithCacheSize(o.CacheSize))
	}
	img := gcpimg.New("gallery", opts...)
	if o.Sensitive {
		img.Sensitive()
	}
	return &Gallery{Image: img, Samples: Samples(o.Base)}
}

// Init registers the gallery with the registry.
func (g *Gallery) Init(reg *gcpimg.Registry) {
	reg.Add(g.Image)
}

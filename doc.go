// Package gcpimg renders lazily-loaded, responsive images served by the
// Google image CDN, using Go, templ and HTMX.
//
// An image is described by the same string attributes a <gcp-img> element
// takes (src, darksrc, size, sizes/config, rotate, flip, filter, crop,
// ttl, play, ...). The attributes are translated into a CDN suffix such as
// "v1-e365-nw-r90" and into <picture> markup.
//
// # Lazy loading
//
// An Image component renders a placeholder wrapper carrying
// hx-trigger="intersect once". When the wrapper approaches the viewport,
// HTMX requests the component route and the final <picture> markup is
// appended. The attributes travel in the URL, signed by default:
//
//	img := gcpimg.New("hero")
//	reg := gcpimg.NewRegistry(key)
//	reg.Add(img)
//	http.Handle("/_c/", reg.Handler())
//
//	// In a template:
//	@img.Lazy(gcpimg.Attrs{"src": src, "size": "640", "rotate": "90"}, spinner())
//
// Call .Sensitive() to seal the attributes with AES-GCM instead, so origin
// URLs never appear in the page source.
//
// # Capabilities
//
// The encoder never reads global state. Network quality and WebP support
// are sampled once per request (client hints ECT and Save-Data, the Accept
// header) and passed in explicitly. See CapabilitiesFromRequest.
//
// # Layout
//
//   - lib/cdn: the pure attribute-to-URL encoder
//   - lib/element: the per-element visibility and load state machine
//   - lib/encoding: signed/sealed attribute payloads
package gcpimg

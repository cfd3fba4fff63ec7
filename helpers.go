package gcpimg

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/gcpimg/lib/cdn"
)

// Request headers the capabilities are sampled from.
const (
	HeaderECT      = "ECT"
	HeaderSaveData = "Save-Data"
	HeaderAccept   = "Accept"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    gcpimg.Render(w, r, page())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request originated from HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// ConnectionFromRequest classifies the client's connection from the ECT
// client hint. Save-Data: on counts as slow regardless of ECT. Without
// either header the connection is assumed fast.
func ConnectionFromRequest(r *http.Request) cdn.Connection {
	if strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderSaveData)), "on") {
		return cdn.Slow
	}
	return cdn.ConnectionFromEffectiveType(r.Header.Get(HeaderECT))
}

// SupportsWebP reports whether the request advertises image/webp.
func SupportsWebP(r *http.Request) bool {
	for _, v := range r.Header.Values(HeaderAccept) {
		for _, part := range strings.Split(v, ",") {
			mt, _, _ := strings.Cut(strings.TrimSpace(part), ";")
			if strings.EqualFold(strings.TrimSpace(mt), cdn.TypeWebP) {
				return true
			}
		}
	}
	return false
}

// CapabilitiesFromRequest samples connection quality and WebP support.
func CapabilitiesFromRequest(r *http.Request) cdn.Capabilities {
	return cdn.Capabilities{
		Connection: ConnectionFromRequest(r),
		WebP:       SupportsWebP(r),
	}
}

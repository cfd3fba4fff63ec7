package gcpimg

import "github.com/a-h/templ"

// TriggerIntersectOnce fires the load request the first time the wrapper
// enters the viewport and never again.
const TriggerIntersectOnce = "intersect once"

// LazyAttrs returns the HTMX attributes for a wrapper that fetches url
// once on first intersection and places the response with swap.
//
// Spread them on any element to build your own host markup:
//
//	<div { gcpimg.LazyAttrs(url, gcpimg.SwapBeforeEnd)... }>
//
// The wrapper gains the intersecting attribute right before the request
// goes out, which is the hook for reveal transitions in CSS.
//
// HTMX's intersect trigger takes no root margin, so the request fires on
// actual intersection rather than within element.RootMargin of it.
func LazyAttrs(url string, swap SwapMode) templ.Attributes {
	if swap == "" {
		swap = SwapBeforeEnd
	}
	return templ.Attributes{
		"hx-get":                url,
		"hx-trigger":            TriggerIntersectOnce,
		"hx-swap":               string(swap),
		"hx-on::before-request": "this.setAttribute('" + AttrIntersecting + "','')",
	}
}

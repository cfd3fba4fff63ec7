package gcpimg

// SwapMode defines HTMX swap strategies for how the loaded markup is
// placed relative to the host wrapper.
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode string

const (
	// SwapBeforeEnd appends the picture inside the wrapper, after the
	// placeholder. This is what Lazy uses.
	SwapBeforeEnd SwapMode = "beforeend"

	// SwapInner replaces the wrapper contents, dropping the placeholder
	// as soon as the markup arrives.
	SwapInner SwapMode = "innerHTML"

	// SwapOuter replaces the wrapper itself.
	SwapOuter SwapMode = "outerHTML"
)

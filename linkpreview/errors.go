package linkpreview

import "errors"

// Typed fetch failures. The HTTP layer collapses all of these into one
// opaque client-visible message; the distinctions exist for server-side
// logging and for tests.
var (
	// ErrBlocked wraps a linksafe rejection of the original URL or of a
	// redirect target.
	ErrBlocked = errors.New("linkpreview: target blocked")

	// ErrTimeout covers the total wall-clock budget, redirects included.
	ErrTimeout = errors.New("linkpreview: fetch timed out")

	// ErrTooManyRedirects is returned when the hop cap is exceeded.
	ErrTooManyRedirects = errors.New("linkpreview: too many redirects")

	// ErrBodyTooLarge is returned when the response body exceeds the cap.
	ErrBodyTooLarge = errors.New("linkpreview: response body too large")

	// ErrBadStatus is returned for non-2xx responses.
	ErrBadStatus = errors.New("linkpreview: non-2xx status")
)

package fetcher

import (
	"fmt"
	"net/http"

	"reposift/internal/services"
)

// HTTPError reports a non-success response. It unwraps to the services
// markers so callers can classify it with errors.Is or services.Classify.
type HTTPError struct {
	StatusCode int
	URL        string
	// Attempts is the number of requests made before giving up.
	Attempts int
}

func (e *HTTPError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = "unexpected status"
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("fetch %s: %d %s after %d attempts", e.URL, e.StatusCode, text, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %d %s", e.URL, e.StatusCode, text)
}

// Unwrap exposes the failure markers implied by the status code.
func (e *HTTPError) Unwrap() []error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return []error{services.ErrPermanent, services.ErrUnauthorized}
	case e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500:
		return []error{services.ErrTransient}
	default:
		return []error{services.ErrPermanent}
	}
}

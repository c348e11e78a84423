// Package apierr holds the error taxonomy shared by every hosted-API adapter.
package apierr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrCredentialMissing is returned when a required API key is not configured.
var ErrCredentialMissing = errors.New("credential missing")

const maxBodySnippet = 512

// UpstreamError is a non-2xx response from a hosted API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Body)
}

// CheckResponse returns an *UpstreamError for any non-2xx response.
// The body is read (up to a short snippet) but not closed.
func CheckResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
	return &UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}

// IsUpstream reports whether err wraps an *UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

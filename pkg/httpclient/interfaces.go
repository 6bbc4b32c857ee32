package httpclient

import "context"

// Response is what the transport hands back for a completed request, whatever its status.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client performs a single GET. A non-nil error means the request did not complete
// (dial, TLS, timeout, cancellation); HTTP error statuses are returned as a Response.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

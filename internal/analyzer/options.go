package analyzer

import "net/http"

type clientOptions struct {
	httpClient *http.Client
	onToken    TokenFunc
}

// Option customizes a backend client.
type Option func(*clientOptions)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTokenHandler registers a callback for streamed tokens.
func WithTokenHandler(fn TokenFunc) Option {
	return func(o *clientOptions) {
		o.onToken = fn
	}
}

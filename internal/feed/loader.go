package feed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samvad-hq/samvad-feed-loader/pkg/httpclient"
)

// Loader delivers the current list of feed items.
type Loader interface {
	Load(ctx context.Context) ([]Item, error)
}

// Logger defines the logging surface the loader relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}

// RemoteLoader fetches a JSON feed from a fixed URL through an httpclient.Client.
// It keeps no state between calls, so a single instance is safe for concurrent use.
type RemoteLoader struct {
	url     string
	client  httpclient.Client
	headers map[string]string
	log     Logger
}

// Option customizes a RemoteLoader.
type Option func(*RemoteLoader)

// WithHeaders sets request headers sent with every load.
func WithHeaders(headers map[string]string) Option {
	return func(l *RemoteLoader) {
		if len(headers) == 0 {
			return
		}
		cp := make(map[string]string, len(headers))
		for k, v := range headers {
			cp[k] = v
		}
		l.headers = cp
	}
}

// WithLogger routes rejection diagnostics to log.
func WithLogger(log Logger) Option {
	return func(l *RemoteLoader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewRemoteLoader builds a loader for url. Construction does not touch the network.
func NewRemoteLoader(url string, client httpclient.Client, opts ...Option) *RemoteLoader {
	l := &RemoteLoader{
		url:    url,
		client: client,
		log:    noopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// URL returns the configured feed URL.
func (l *RemoteLoader) URL() string { return l.url }

// Load issues one GET to the configured URL and maps the outcome. Every returned
// error is a *LoadError of kind KindConnectivity or KindInvalidData.
func (l *RemoteLoader) Load(ctx context.Context) ([]Item, error) {
	if l == nil || l.client == nil {
		return nil, connectivity(fmt.Errorf("feed loader is not initialized"))
	}

	resp, err := l.client.Get(ctx, l.url, l.headers)
	if err != nil {
		l.reject(KindConnectivity, err)
		return nil, connectivity(err)
	}
	if resp == nil {
		err := fmt.Errorf("transport returned no response")
		l.reject(KindConnectivity, err)
		return nil, connectivity(err)
	}

	items, err := mapResponse(resp.StatusCode(), resp.Body())
	if err != nil {
		l.reject(KindInvalidData, err)
		return nil, invalidData(err)
	}
	return items, nil
}

// mapResponse accepts only status 200 with a well-formed payload.
func mapResponse(status int, body []byte) ([]Item, error) {
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	return decodeItems(body)
}

func (l *RemoteLoader) reject(kind ErrorKind, cause error) {
	l.log.DebugObj("feed load rejected", "feed_load_error", map[string]any{
		"url":   l.url,
		"kind":  kind.String(),
		"error": cause.Error(),
	})
}

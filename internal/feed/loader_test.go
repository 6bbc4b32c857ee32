package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-feed-loader/pkg/httpclient"
)

type stubResponse struct {
	status int
	body   []byte
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.status }

type outcome struct {
	resp httpclient.Response
	err  error
}

// clientSpy records requested URLs in call order. Each Get blocks until the test
// completes it, unless a fixed outcome is configured.
type clientSpy struct {
	mu      sync.Mutex
	urls    []string
	pending []chan outcome
	fixed   *outcome
	started chan struct{}
}

func newClientSpy() *clientSpy {
	return &clientSpy{started: make(chan struct{}, 16)}
}

func (c *clientSpy) Get(ctx context.Context, u string, _ map[string]string) (httpclient.Response, error) {
	c.mu.Lock()
	c.urls = append(c.urls, u)
	if c.fixed != nil {
		o := *c.fixed
		c.mu.Unlock()
		return o.resp, o.err
	}
	ch := make(chan outcome, 1)
	c.pending = append(c.pending, ch)
	c.mu.Unlock()
	c.started <- struct{}{}

	select {
	case o := <-ch:
		return o.resp, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *clientSpy) requestedURLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.urls...)
}

func (c *clientSpy) completeWithError(err error, at int) {
	c.mu.Lock()
	ch := c.pending[at]
	c.mu.Unlock()
	ch <- outcome{err: err}
}

func (c *clientSpy) completeWithStatus(status int, body []byte, at int) {
	c.mu.Lock()
	ch := c.pending[at]
	c.mu.Unlock()
	ch <- outcome{resp: stubResponse{status: status, body: body}}
}

func (c *clientSpy) respondAlways(status int, body []byte) {
	c.mu.Lock()
	c.fixed = &outcome{resp: stubResponse{status: status, body: body}}
	c.mu.Unlock()
}

func makeSUT(t *testing.T, rawURL string) (*RemoteLoader, *clientSpy) {
	t.Helper()
	if rawURL == "" {
		rawURL = "https://a-url.com"
	}
	client := newClientSpy()
	return NewRemoteLoader(rawURL, client), client
}

// expectResult starts a load, runs action to complete the transport, and asserts
// exactly one result arrives.
func expectResult(t *testing.T, sut *RemoteLoader, client *clientSpy, action func()) Result {
	t.Helper()
	done := LoadAsync(context.Background(), sut)

	select {
	case <-client.started:
	case <-time.After(time.Second):
		t.Fatal("transport was never called")
	}
	action()

	var results []Result
	for r := range done {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	return results[0]
}

func makeItem(t *testing.T, description, location *string, image string) (Item, map[string]any) {
	t.Helper()
	u, err := url.Parse(image)
	require.NoError(t, err)
	item := NewItem(uuid.New(), description, location, u)

	raw := map[string]any{
		"id":    item.ID().String(),
		"image": image,
	}
	if description != nil {
		raw["description"] = *description
	}
	if location != nil {
		raw["location"] = *location
	}
	return item, raw
}

func itemsJSON(t *testing.T, entries ...map[string]any) []byte {
	t.Helper()
	if entries == nil {
		entries = []map[string]any{}
	}
	data, err := json.Marshal(map[string]any{"items": entries})
	require.NoError(t, err)
	return data
}

func strPtr(s string) *string { return &s }

func TestNewRemoteLoaderDoesNotRequestData(t *testing.T) {
	_, client := makeSUT(t, "")
	assert.Empty(t, client.requestedURLs())
}

func TestLoadRequestsDataFromURL(t *testing.T) {
	const u = "https://a-given-url.com"
	sut, client := makeSUT(t, u)
	client.respondAlways(200, itemsJSON(t))

	_, err := sut.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{u}, client.requestedURLs())
}

func TestLoadTwiceRequestsDataFromURLTwice(t *testing.T) {
	const u = "https://a-given-url.com"
	sut, client := makeSUT(t, u)
	client.respondAlways(200, itemsJSON(t))

	_, _ = sut.Load(context.Background())
	_, _ = sut.Load(context.Background())
	assert.Equal(t, []string{u, u}, client.requestedURLs())
}

func TestLoadDeliversConnectivityErrorOnClientError(t *testing.T) {
	sut, client := makeSUT(t, "")

	res := expectResult(t, sut, client, func() {
		client.completeWithError(errors.New("no route to host"), 0)
	})
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrConnectivity)
	assert.NotErrorIs(t, res.Err, ErrInvalidData)
	assert.Nil(t, res.Items)
}

func TestLoadDeliversInvalidDataOnNon200Response(t *testing.T) {
	for _, code := range []int{199, 201, 300, 400, 500} {
		t.Run(fmt.Sprintf("status_%d", code), func(t *testing.T) {
			sut, client := makeSUT(t, "")
			res := expectResult(t, sut, client, func() {
				client.completeWithStatus(code, itemsJSON(t), 0)
			})
			assert.ErrorIs(t, res.Err, ErrInvalidData)
			assert.Equal(t, KindInvalidData, KindOf(res.Err))
		})
	}
}

func TestLoadDeliversInvalidDataOn200WithInvalidJSON(t *testing.T) {
	sut, client := makeSUT(t, "")
	res := expectResult(t, sut, client, func() {
		client.completeWithStatus(200, []byte("Invalid json data"), 0)
	})
	assert.ErrorIs(t, res.Err, ErrInvalidData)
}

func TestLoadDeliversNoItemsOn200WithEmptyList(t *testing.T) {
	sut, client := makeSUT(t, "")
	res := expectResult(t, sut, client, func() {
		client.completeWithStatus(200, []byte(`{"items": []}`), 0)
	})
	require.NoError(t, res.Err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestLoadDeliversItemsOn200WithJSONItems(t *testing.T) {
	sut, client := makeSUT(t, "")
	item1, json1 := makeItem(t, nil, nil, "http://a-url.com")
	item2, json2 := makeItem(t, strPtr("a dummy description"), strPtr("A location"), "http://another-url.com")

	res := expectResult(t, sut, client, func() {
		client.completeWithStatus(200, itemsJSON(t, json1, json2), 0)
	})
	require.NoError(t, res.Err)
	require.Len(t, res.Items, 2)
	assert.True(t, res.Items[0].Equal(item1), "item1 mismatch: %+v", res.Items[0])
	assert.True(t, res.Items[1].Equal(item2), "item2 mismatch: %+v", res.Items[1])
	_, hasDesc := res.Items[0].Description()
	assert.False(t, hasDesc)
	_, hasLoc := res.Items[0].Location()
	assert.False(t, hasLoc)
	assert.Equal(t, item1, res.Items[0])
}

func TestLoadIsNotCachedAcrossCalls(t *testing.T) {
	sut, client := makeSUT(t, "")
	item, raw := makeItem(t, nil, nil, "https://img.example.com/1.png")

	client.respondAlways(200, itemsJSON(t, raw))
	first, err := sut.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].Equal(item))

	client.respondAlways(500, nil)
	_, err = sut.Load(context.Background())
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.Len(t, client.requestedURLs(), 2)
}

func TestLoadDeliversResultOnlyAfterTransportCompletes(t *testing.T) {
	sut, client := makeSUT(t, "")
	done := LoadAsync(context.Background(), sut)
	<-client.started

	select {
	case r := <-done:
		t.Fatalf("result delivered before transport completed: %+v", r)
	case <-time.After(20 * time.Millisecond):
	}

	client.completeWithStatus(200, itemsJSON(t), 0)
	r, ok := <-done
	require.True(t, ok)
	require.NoError(t, r.Err)
	_, ok = <-done
	assert.False(t, ok, "channel must be closed after the single result")
}

func TestConcurrentLoadsAreIndependent(t *testing.T) {
	sut, client := makeSUT(t, "")
	first := LoadAsync(context.Background(), sut)
	<-client.started
	second := LoadAsync(context.Background(), sut)
	<-client.started

	client.completeWithStatus(200, itemsJSON(t), 1)
	client.completeWithError(errors.New("offline"), 0)

	r1 := <-first
	r2 := <-second
	assert.ErrorIs(t, r1.Err, ErrConnectivity)
	require.NoError(t, r2.Err)
	assert.Empty(t, r2.Items)
}

func TestLoadWithoutClientReportsConnectivity(t *testing.T) {
	_, err := NewRemoteLoader("https://a-url.com", nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestLoadSendsConfiguredHeaders(t *testing.T) {
	headers := map[string]string{"Accept": "application/json"}
	client := &headerClient{}
	sut := NewRemoteLoader("https://a-url.com", client, WithHeaders(headers))
	headers["Accept"] = "mutated"

	_, err := sut.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "application/json", client.got["Accept"])
}

type headerClient struct {
	got map[string]string
}

func (h *headerClient) Get(_ context.Context, _ string, headers map[string]string) (httpclient.Response, error) {
	h.got = headers
	return stubResponse{status: 200, body: []byte(`{"items":[]}`)}, nil
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []map[string]any
}

func (r *recordingLogger) DebugObj(_ string, _ string, obj interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := obj.(map[string]any); ok {
		r.msgs = append(r.msgs, m)
	}
}

func TestLoadLogsRejectionReason(t *testing.T) {
	client := newClientSpy()
	client.respondAlways(404, nil)
	log := &recordingLogger{}

	_, err := NewRemoteLoader("https://a-url.com", client, WithLogger(log)).Load(context.Background())
	require.ErrorIs(t, err, ErrInvalidData)
	require.Len(t, log.msgs, 1)
	assert.Equal(t, "invalid data", log.msgs[0]["kind"])
	assert.Contains(t, log.msgs[0]["error"], "404")
}

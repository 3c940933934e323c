package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"cartscout/internal/auth"
	"cartscout/internal/http/server"
	"cartscout/internal/repos"
)

// switchDoer forwards to a real client until it is switched offline.
type switchDoer struct {
	next    Doer
	offline atomic.Bool
	calls   atomic.Int32
}

func (d *switchDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	if d.offline.Load() {
		return nil, errors.New("dial tcp: connection refused")
	}
	return d.next.Do(req)
}

type harness struct {
	fs     afero.Fs
	doer   *switchDoer
	client *Client
	tokens *FileTokenStore
	cache  *Cache
	lists  *OfflineLists
}

// newHarness starts a real API server over an in-memory database and wires a
// client with an in-memory filesystem to it.
func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	iss := auth.NewIssuer("test-access", "test-refresh", 15*time.Minute, time.Hour)
	opts := server.DefaultOptions()
	opts.AccessLog = false
	opts.AuthMax = 1000
	app, _ := server.New(db, iss, opts)
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	fs := afero.NewMemMapFs()
	h := &harness{fs: fs, doer: &switchDoer{next: srv.Client()}}
	h.tokens = NewFileTokenStore(fs, "/state")
	h.client = New(srv.URL, h.tokens)
	h.client.HTTP = h.doer
	h.client.Delay = time.Millisecond
	h.cache = NewCache(fs, "/state/cache")
	h.lists = NewOfflineLists(h.client, h.cache)
	h.lists.Pace = nil
	return h
}

func (h *harness) register(t *testing.T, email string) {
	t.Helper()
	_, err := h.client.Register(context.Background(), email, "correct-horse")
	require.NoError(t, err)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func ptr[T any](v T) *T { return &v }

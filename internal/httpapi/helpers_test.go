package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/peersync/internal/identity"
	"github.com/roach88/peersync/internal/peer"
	"github.com/roach88/peersync/internal/replication"
	"github.com/roach88/peersync/internal/service"
	"github.com/roach88/peersync/internal/store"
	"github.com/roach88/peersync/internal/testutil"
)

const testToken = "test-token"

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// node is one running peer: a real store, services and HTTP server.
type node struct {
	srv    *httptest.Server
	store  *store.Store
	faults *replication.FaultInjector

	mu      sync.Mutex
	handler http.Handler
	hits    atomic.Int64 // requests received
	copies  atomic.Int64 // requests received with X-Replicated: true
}

func (n *node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.hits.Add(1)
	if replication.HeaderValue(r.Header.Get(replication.Header)) {
		n.copies.Add(1)
	}
	n.mu.Lock()
	h := n.handler
	n.mu.Unlock()
	h.ServeHTTP(w, r)
}

// startNode starts an HTTP server whose handler is installed later by wire.
func startNode(t *testing.T) *node {
	t.Helper()
	n := &node{handler: http.NotFoundHandler()}
	n.srv = httptest.NewServer(n)
	t.Cleanup(n.srv.Close)
	return n
}

// wire builds the full stack for n, propagating to peerURL.
func (n *node) wire(t *testing.T, name, peerURL string, threshold int64, ids identity.Generator) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), name+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := peer.DefaultConfig()
	cfg.BaseURL = peerURL
	cfg.Token = testToken
	cfg.Backoff = time.Millisecond
	client, err := peer.NewClient(cfg, quietLogger)
	require.NoError(t, err)

	faults := replication.NewFaultInjector(threshold)
	srv := New(Options{
		ServiceName: name,
		Token:       testToken,
		Users:       service.NewUserService(st, replication.NewUserReplicator(client, faults, quietLogger), ids, quietLogger),
		Orders:      service.NewOrderService(st, replication.NewOrderReplicator(client, faults, quietLogger), ids, quietLogger),
		Deliveries:  service.NewDeliveryService(st, ids, quietLogger),
		Health:      st,
		Logger:      quietLogger,
	})

	n.mu.Lock()
	n.handler = srv
	n.store = st
	n.faults = faults
	n.mu.Unlock()
}

// newPair starts two peers that replicate to each other.
func newPair(t *testing.T, threshold int64) (a, b *node) {
	t.Helper()
	a, b = startNode(t), startNode(t)
	a.wire(t, "a", b.srv.URL, threshold, testutil.NewSequentialGenerator())
	b.wire(t, "b", a.srv.URL, threshold, identity.UUIDv7Generator{})
	return a, b
}

// newSolo starts one peer whose peer is a recording PeerServer.
func newSolo(t *testing.T, threshold int64) (*node, *testutil.PeerServer) {
	t.Helper()
	ps := testutil.NewPeerServer(t)
	n := startNode(t)
	n.wire(t, "a", ps.URL, threshold, testutil.NewSequentialGenerator())
	return n, ps
}

type response struct {
	Status int
	Body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), "body: %s", r.Body)
}

// do sends an authenticated request. body may be nil, a string or any
// JSON-encodable value.
func do(t *testing.T, n *node, method, path string, body any, header ...string) response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, n.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{Status: resp.StatusCode, Body: data}
}

package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/peersync/internal/httpapi"
	"github.com/roach88/peersync/internal/peer"
	"github.com/roach88/peersync/internal/replication"
	"github.com/roach88/peersync/internal/service"
	"github.com/roach88/peersync/internal/store"
)

// harnessToken is the bearer token shared by both nodes.
const harnessToken = "harness-token"

// TraceEvent is one request received by a node.
type TraceEvent struct {
	Seq        int    `json:"seq"`
	Node       string `json:"node"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Replicated bool   `json:"replicated"`
	Status     int    `json:"status"`
}

// Result is the outcome of a scenario.
type Result struct {
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// tracer records requests across both nodes in arrival order.
type tracer struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (t *tracer) begin(node string, r *http.Request) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, TraceEvent{
		Seq:        len(t.events) + 1,
		Node:       node,
		Method:     r.Method,
		Path:       r.URL.Path,
		Replicated: replication.HeaderValue(r.Header.Get(replication.Header)),
	})
	return len(t.events) - 1
}

func (t *tracer) end(idx, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[idx].Status = status
}

func (t *tracer) snapshot() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.events)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// nodeIDs mints deterministic UUIDs with a per-node prefix.
type nodeIDs struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

func (g *nodeIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-0000-7000-8000-%012d", g.prefix, g.n)
}

// node is one running peer.
type node struct {
	name    string
	srv     *httptest.Server
	store   *store.Store
	tracer  *tracer
	handler http.Handler
}

func (n *node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idx := n.tracer.begin(n.name, r)
	sw := &statusWriter{ResponseWriter: w}
	n.handler.ServeHTTP(sw, r)
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n.tracer.end(idx, sw.status)
}

// wire builds the full stack for n, propagating to peerURL.
func (n *node) wire(dir, peerURL string, threshold int64, logger *slog.Logger) error {
	st, err := store.Open(filepath.Join(dir, n.name+".db"))
	if err != nil {
		return fmt.Errorf("node %s: %w", n.name, err)
	}
	n.store = st

	cfg := peer.DefaultConfig()
	cfg.BaseURL = peerURL
	cfg.Token = harnessToken
	cfg.ReadTimeout = 5 * time.Second
	cfg.Backoff = time.Millisecond
	client, err := peer.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.name, err)
	}

	faults := replication.NewFaultInjector(threshold)
	ids := &nodeIDs{prefix: "0000000" + n.name}
	n.handler = httpapi.New(httpapi.Options{
		ServiceName: n.name,
		Token:       harnessToken,
		Users:       service.NewUserService(st, replication.NewUserReplicator(client, faults, logger), ids, logger),
		Orders:      service.NewOrderService(st, replication.NewOrderReplicator(client, faults, logger), ids, logger),
		Deliveries:  service.NewDeliveryService(st, ids, logger),
		Health:      st,
		Logger:      logger,
	})
	return nil
}

// Run executes a scenario on a fresh pair of nodes. The returned error is
// reserved for setup failures; scenario failures are reported in Result.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	return run(ctx, sc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func run(ctx context.Context, sc *Scenario, logger *slog.Logger) (*Result, error) {
	dir, err := os.MkdirTemp("", "peersync-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	threshold := int64(replication.DefaultFaultThreshold)
	if sc.FaultThreshold != nil {
		threshold = *sc.FaultThreshold
	}

	tr := &tracer{}
	nodes := map[string]*node{}
	for _, name := range []string{NodeA, NodeB} {
		n := &node{name: name, tracer: tr}
		n.srv = httptest.NewServer(n)
		nodes[name] = n
	}
	defer func() {
		for _, n := range nodes {
			n.srv.Close()
			if n.store != nil {
				n.store.Close()
			}
		}
	}()

	a, b := nodes[NodeA], nodes[NodeB]
	if err := a.wire(dir, b.srv.URL, threshold, logger); err != nil {
		return nil, err
	}
	if err := b.wire(dir, a.srv.URL, threshold, logger); err != nil {
		return nil, err
	}
	for _, name := range sc.Offline {
		nodes[name].srv.Close()
	}

	result := &Result{Pass: true}
	vars := map[string]string{}
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runStep(ctx, i+1, step, nodes[step.Node], vars, result)
	}
	result.Trace = tr.snapshot()

	for i, as := range sc.Assertions {
		evaluate(ctx, i+1, as, nodes, vars, result)
	}
	if result.Trace == nil {
		result.Trace = []TraceEvent{}
	}
	return result, nil
}

// response is a decoded HTTP response.
type response struct {
	status int
	body   []byte
}

func (r response) json() (any, error) {
	if len(bytes.TrimSpace(r.body)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(r.body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func send(ctx context.Context, n *node, method, path string, body io.Reader, header http.Header) (response, error) {
	req, err := http.NewRequestWithContext(ctx, method, n.srv.URL+path, body)
	if err != nil {
		return response{}, err
	}
	req.Header = header
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, err
	}
	return response{status: resp.StatusCode, body: data}, nil
}

func runStep(ctx context.Context, num int, step Step, n *node, vars map[string]string, result *Result) {
	label := fmt.Sprintf("step %d (%s %s on %s)", num, strings.ToUpper(step.Method), step.Path, step.Node)
	missing := map[string]bool{}
	path := expand(step.Path, vars, missing)

	header := http.Header{}
	if !step.NoAuth {
		header.Set("Authorization", "Bearer "+harnessToken)
	}
	var body io.Reader
	if step.Body != nil {
		payload, err := encodeBody(expandValue(step.Body, vars, missing))
		if err != nil {
			result.fail("%s: %v", label, err)
			return
		}
		body = bytes.NewReader(payload)
		header.Set("Content-Type", "application/json")
	}
	for k, v := range step.Headers {
		header.Set(k, expand(v, vars, missing))
	}
	for name := range missing {
		result.fail("%s: undefined variable %q", label, name)
	}

	resp, err := send(ctx, n, strings.ToUpper(step.Method), path, body, header)
	if err != nil {
		result.fail("%s: %v", label, err)
		return
	}

	if step.Expect != nil {
		if step.Expect.Status != 0 && resp.status != step.Expect.Status {
			result.fail("%s: status = %d, want %d (body: %s)", label, resp.status, step.Expect.Status, strings.TrimSpace(string(resp.body)))
		}
		if step.Expect.Body != nil {
			checkBody(label, resp, expandValue(step.Expect.Body, vars, missing), result)
		}
	}

	if len(step.Save) > 0 {
		got, err := resp.json()
		obj, ok := got.(map[string]any)
		if err != nil || !ok {
			result.fail("%s: cannot save from non-object response", label)
			return
		}
		for name, field := range step.Save {
			v, ok := obj[field].(string)
			if !ok {
				result.fail("%s: response has no string field %q", label, field)
				continue
			}
			vars[name] = v
		}
	}
}

func encodeBody(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(v)
}

func checkBody(label string, resp response, want any, result *Result) {
	got, err := resp.json()
	if err != nil {
		result.fail("%s: response is not JSON: %v", label, err)
		return
	}
	norm, err := normalize(want)
	if err != nil {
		result.fail("%s: %v", label, err)
		return
	}
	for _, problem := range matchSubset("body", norm, got) {
		result.fail("%s: %s", label, problem)
	}
}

// expand replaces ${name} references. Names not in vars are collected in
// missing and left as written.
func expand(s string, vars map[string]string, missing map[string]bool) string {
	var out strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			out.WriteString(s)
			return out.String()
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			out.WriteString(s)
			return out.String()
		}
		end += start
		name := s[start+2 : end]
		out.WriteString(s[:start])
		if v, ok := vars[name]; ok {
			out.WriteString(v)
		} else {
			missing[name] = true
			out.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
}

// expandValue applies expand to every string inside v.
func expandValue(v any, vars map[string]string, missing map[string]bool) any {
	switch t := v.(type) {
	case string:
		return expand(t, vars, missing)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = expandValue(val, vars, missing)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = expandValue(val, vars, missing)
		}
		return out
	default:
		return v
	}
}

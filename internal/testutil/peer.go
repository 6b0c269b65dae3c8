package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/roach88/peersync/internal/domain"
)

// RecordingPeer is an in-memory stand-in for the peer transport. It
// records every call and returns Err (nil by default).
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingPeer struct {
	mu     sync.Mutex
	calls  []string
	users  []domain.UserEnvelope
	orders []domain.OrderEnvelope
	err    error
}

// SetErr makes every following call fail with err.
func (p *RecordingPeer) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Calls returns the calls made so far, formatted "<op> <entity> <id>".
func (p *RecordingPeer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// UserEnvelopes returns the user envelopes sent by create and update.
func (p *RecordingPeer) UserEnvelopes() []domain.UserEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.UserEnvelope(nil), p.users...)
}

// OrderEnvelopes returns the order envelopes sent by create and update.
func (p *RecordingPeer) OrderEnvelopes() []domain.OrderEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderEnvelope(nil), p.orders...)
}

func (p *RecordingPeer) record(format string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
	return p.err
}

func (p *RecordingPeer) CreateUser(_ context.Context, env domain.UserEnvelope) error {
	p.mu.Lock()
	p.users = append(p.users, env)
	p.mu.Unlock()
	return p.record("create user %s", env.ExternalID)
}

func (p *RecordingPeer) UpdateUser(_ context.Context, id string, env domain.UserEnvelope) error {
	p.mu.Lock()
	p.users = append(p.users, env)
	p.mu.Unlock()
	return p.record("update user %s", id)
}

func (p *RecordingPeer) DeleteUser(_ context.Context, id string) error {
	return p.record("delete user %s", id)
}

func (p *RecordingPeer) CreateOrder(_ context.Context, env domain.OrderEnvelope) error {
	p.mu.Lock()
	p.orders = append(p.orders, env)
	p.mu.Unlock()
	return p.record("create order %s", env.ExternalID)
}

func (p *RecordingPeer) UpdateOrder(_ context.Context, id string, env domain.OrderEnvelope) error {
	p.mu.Lock()
	p.orders = append(p.orders, env)
	p.mu.Unlock()
	return p.record("update order %s", id)
}

func (p *RecordingPeer) DeleteOrder(_ context.Context, id string) error {
	return p.record("delete order %s", id)
}

// PeerRequest is one request received by a PeerServer.
type PeerRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// PeerServer is an HTTP peer that records requests and answers with Status
// (204 when zero).
type PeerServer struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	requests []PeerRequest
}

// NewPeerServer starts a PeerServer. It is closed when the test ends.
func NewPeerServer(t interface{ Cleanup(func()) }) *PeerServer {
	p := &PeerServer{}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

// SetStatus sets the status returned for every following request.
func (p *PeerServer) SetStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// Requests returns the requests received so far.
func (p *PeerServer) Requests() []PeerRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PeerRequest(nil), p.requests...)
}

func (p *PeerServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	p.mu.Lock()
	p.requests = append(p.requests, PeerRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	status := p.status
	p.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

package replication

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/peersync/internal/domain"
	"github.com/roach88/peersync/internal/metrics"
)

// Op is the kind of mutation being replicated.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Outcome is the terminal state of one replicated mutation.
type Outcome string

const (
	// OutcomeLocalApplyFailed: the local write failed, propagation was not
	// considered.
	OutcomeLocalApplyFailed Outcome = "local_failed"

	// OutcomeSkipped: written locally; the request came from the peer, so
	// nothing was sent back.
	OutcomeSkipped Outcome = "skipped"

	// OutcomePropagatedOK: written locally and accepted by the peer.
	OutcomePropagatedOK Outcome = "ok"

	// OutcomePropagationFailed: written locally, then propagation failed or
	// was failed on purpose by the fault injector. The local write stands.
	OutcomePropagationFailed Outcome = "failed"
)

// Mutation describes one local write and how to push it to the peer.
type Mutation[E any] struct {
	Op Op

	// ExternalID identifies the entity on both peers. For creates it is
	// minted by the caller before Apply runs.
	ExternalID string

	// Apply performs the local write and returns the saved entity. Errors
	// must already carry a domain code.
	Apply func(ctx context.Context) (E, error)

	// Propagate sends the saved entity to the peer.
	Propagate func(ctx context.Context, saved E) error
}

// Categorizer is implemented by transport errors that know which domain
// error category they belong to.
type Categorizer interface {
	Category() domain.Code
}

// Replicator runs the apply-then-propagate sequence for one entity type.
type Replicator[E any] struct {
	entity string
	faults *FaultInjector
	logger *slog.Logger
}

// NewReplicator returns a Replicator for the named entity type. faults may
// be nil; logger defaults to slog.Default().
func NewReplicator[E any](entity string, faults *FaultInjector, logger *slog.Logger) *Replicator[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replicator[E]{entity: entity, faults: faults, logger: logger}
}

// Apply applies m locally and, unless ctx is marked as propagated, pushes it
// to the peer. On OutcomePropagationFailed the saved entity is returned
// together with the error.
func (r *Replicator[E]) Apply(ctx context.Context, m Mutation[E]) (E, Outcome, error) {
	saved, err := m.Apply(ctx)
	if err != nil {
		r.finish(m, OutcomeLocalApplyFailed, err)
		return saved, OutcomeLocalApplyFailed, err
	}

	if IsPropagated(ctx) {
		r.finish(m, OutcomeSkipped, nil)
		return saved, OutcomeSkipped, nil
	}

	if m.Op == OpCreate {
		r.faults.RegisterSuccess()
		if r.faults.ShouldForceFailureAndReset() {
			metrics.InjectedFailuresTotal.Inc()
			err := domain.NewInjectedFailure(m.ExternalID)
			r.finish(m, OutcomePropagationFailed, err)
			return saved, OutcomePropagationFailed, err
		}
	}

	// The local write is committed; the caller going away must not abort
	// the peer call halfway.
	if err := m.Propagate(context.WithoutCancel(ctx), saved); err != nil {
		err = propagationError(m.ExternalID, err)
		r.finish(m, OutcomePropagationFailed, err)
		return saved, OutcomePropagationFailed, err
	}

	r.finish(m, OutcomePropagatedOK, nil)
	return saved, OutcomePropagatedOK, nil
}

func (r *Replicator[E]) finish(m Mutation[E], outcome Outcome, err error) {
	metrics.PropagationsTotal.WithLabelValues(r.entity, string(m.Op), string(outcome)).Inc()

	attrs := []any{
		"entity", r.entity,
		"op", m.Op,
		"external_id", m.ExternalID,
		"outcome", outcome,
	}
	switch outcome {
	case OutcomePropagationFailed:
		r.logger.Warn("propagation failed", append(attrs, "error", err)...)
	case OutcomeLocalApplyFailed:
		r.logger.Debug("local apply failed", append(attrs, "error", err)...)
	default:
		r.logger.Debug("mutation replicated", attrs...)
	}
}

// propagationError maps a transport failure onto the domain taxonomy.
// Anything that does not say otherwise is an unavailable upstream.
func propagationError(externalID string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	code := domain.CodeUpstreamUnavailable
	var c Categorizer
	if errors.As(err, &c) {
		code = c.Category()
	}

	msg := "peer unavailable"
	switch code {
	case domain.CodeNotFound:
		msg = "peer reported a referenced entity as missing"
	case domain.CodeBadInput:
		msg = "peer rejected the payload"
	}
	return &domain.Error{Code: code, Message: msg, EntityID: externalID, Err: err}
}

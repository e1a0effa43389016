package raft

import raerrors "github.com/sdesai/raft/internal/errors"

// options holds the configurable knobs for a Peer, assembled via functional
// options the way the teacher's own options.go configures its Raft struct.
// Unlike the teacher, this set carries no timing knobs (WithElectionTimeout,
// WithHeartbeatInterval): the core has no wall clock (§5) — timeouts are
// driver-triggered events, not durations.
type options struct {
	logger      Logger
	consistency Consistency
}

func defaultOptions() options {
	return options{
		logger:      NewNopLogger(),
		consistency: Eventual,
	}
}

// Option configures a Peer at construction time.
type Option func(*options) error

// WithLogger overrides the Peer's logger. The default is a no-op logger.
func WithLogger(logger Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return raerrors.New("raft: logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithConsistency selects the consistency mode used when answering
// QueryRequests (§4.4.10). The default is Eventual.
func WithConsistency(consistency Consistency) Option {
	return func(o *options) error {
		if consistency != Eventual && consistency != Strong {
			return raerrors.Errorf("raft: unrecognized consistency mode %v", consistency)
		}
		o.consistency = consistency
		return nil
	}
}

package grpcraft

import (
	"time"

	"github.com/sdesai/raft"
	raerrors "github.com/sdesai/raft/internal/errors"
)

// options configures Server and Client. Unlike the deterministic core,
// this package sits outside it and is free to use wall-clock timers — the
// teacher's WithElectionTimeout/WithHeartbeatInterval shape (min/max
// validated functional options) reappears here, repurposed as gRPC dial and
// stream-retry tunables, since the core itself has no use for them (§5).
type options struct {
	logger       raft.Logger
	dialTimeout  time.Duration
	retryBackoff time.Duration
}

func defaultOptions() options {
	return options{
		logger:       raft.NewNopLogger(),
		dialTimeout:  5 * time.Second,
		retryBackoff: 250 * time.Millisecond,
	}
}

// Option configures a Server or Client, matching the core's own
// functional-options shape.
type Option func(*options) error

// WithLogger overrides the default no-op logger.
func WithLogger(logger raft.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithDialTimeout bounds how long Dial waits for the initial connection.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return raerrors.Errorf("grpcraft: dial timeout must be positive, got %s", d)
		}
		o.dialTimeout = d
		return nil
	}
}

// WithRetryBackoff records a positive stream-retry backoff. Neither Client
// nor Server reads it; Client does not reconnect a dropped stream.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return raerrors.Errorf("grpcraft: retry backoff must be positive, got %s", d)
		}
		o.retryBackoff = d
		return nil
	}
}

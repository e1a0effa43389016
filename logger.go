package raft

import intlogger "github.com/sdesai/raft/internal/logger"

// Logger is the logging contract Peer, Client, and Simulator accept via
// WithLogger. It is a re-export of internal/logger.Logger so that callers
// outside this module (which cannot import an internal/ package) can still
// implement their own adapter.
type Logger = intlogger.Logger

// NewNopLogger returns a Logger that discards everything; it is the default
// used when no WithLogger option is supplied.
func NewNopLogger() Logger { return intlogger.NewNop() }

// NewProductionLogger returns a Logger using zap's production defaults.
func NewProductionLogger() (Logger, error) { return intlogger.NewProduction() }

// NewDevelopmentLogger returns a Logger using zap's development defaults.
func NewDevelopmentLogger() (Logger, error) { return intlogger.NewDevelopment() }

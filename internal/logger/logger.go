// Package logger defines the logging contract consumed by Peer, Client, and
// Simulator and a zap-backed implementation of it.
package logger

import "go.uber.org/zap"

// Logger is the logging contract used throughout this module. It mirrors the
// shape of a conventional structured-logging facade: leveled methods with
// both a variadic and a printf-style variant.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// zapLogger adapts a *zap.SugaredLogger to Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New wraps an existing *zap.Logger.
func New(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

// NewProduction builds a Logger using zap's production defaults (JSON,
// info level and above).
func NewProduction() (Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// NewDevelopment builds a Logger using zap's development defaults (console
// encoding, debug level and above, stack traces on warn).
func NewDevelopment() (Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// NewNop returns a Logger that discards everything. This is the default used
// by Peer/Client/Simulator when no WithLogger option is supplied.
func NewNop() Logger {
	return New(zap.NewNop())
}

func (l *zapLogger) Debug(args ...interface{})                 { l.sugar.Debug(args...) }
func (l *zapLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Info(args ...interface{})                  { l.sugar.Info(args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warn(args ...interface{})                  { l.sugar.Warn(args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Error(args ...interface{})                 { l.sugar.Error(args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }
func (l *zapLogger) Fatal(args ...interface{})                 { l.sugar.Fatal(args...) }
func (l *zapLogger) Fatalf(format string, args ...interface{}) { l.sugar.Fatalf(format, args...) }

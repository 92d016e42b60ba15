// Package loggokit adapts a go-kit logger to the github.com/fclairamb/go-log
// Logger interface used throughout the server and its drivers.
package loggokit

import (
	"os"

	gklog "github.com/go-kit/kit/log"
	gklevel "github.com/go-kit/kit/log/level"

	log "github.com/fclairamb/go-log"
)

type gkLogger struct {
	logger gklog.Logger
}

// New wraps an existing go-kit logger.
func New(logger gklog.Logger) log.Logger {
	return &gkLogger{logger: logger}
}

// NewStdout builds a logfmt logger writing to stdout, a reasonable default
// for a CLI that hasn't configured anything fancier.
func NewStdout() log.Logger {
	return New(gklog.NewLogfmtLogger(gklog.NewSyncWriter(os.Stdout)))
}

func (l *gkLogger) emit(leveled gklog.Logger, event string, keyvals ...interface{}) {
	kv := append([]interface{}{"event", event}, keyvals...)
	_ = leveled.Log(kv...)
}

func (l *gkLogger) Debug(event string, keyvals ...interface{}) {
	l.emit(gklevel.Debug(l.logger), event, keyvals...)
}

func (l *gkLogger) Info(event string, keyvals ...interface{}) {
	l.emit(gklevel.Info(l.logger), event, keyvals...)
}

func (l *gkLogger) Warn(event string, keyvals ...interface{}) {
	l.emit(gklevel.Warn(l.logger), event, keyvals...)
}

func (l *gkLogger) Error(event string, err error, keyvals ...interface{}) {
	kv := append([]interface{}{"err", err}, keyvals...)
	l.emit(gklevel.Error(l.logger), event, kv...)
}

func (l *gkLogger) With(keyvals ...interface{}) log.Logger {
	return New(gklog.With(l.logger, keyvals...))
}

package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
}

type zeroLogger struct {
	zl zerolog.Logger
}

func New(service string) Logger {
	return NewWithWriter(os.Stdout, service)
}

// NewWithWriter writes JSON lines to w.
func NewWithWriter(w io.Writer, service string) Logger {
	hostname, _ := os.Hostname()
	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	zl := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Logger()
	return &zeroLogger{zl: zl}
}

// Nop discards everything.
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

func (l *zeroLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.log(l.zl.Info(), action, message, requestID, details, nil)
}

func (l *zeroLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.log(l.zl.Debug(), action, message, requestID, details, nil)
}

func (l *zeroLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.log(l.zl.Error(), action, message, requestID, details, err)
}

func (l *zeroLogger) log(ev *zerolog.Event, action, message, requestID string, details map[string]interface{}, err error) {
	ev = ev.Str("action", action).Str("request_id", requestID)
	if len(details) > 0 {
		ev = ev.Interface("details", details)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(message)
}

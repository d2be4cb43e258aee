// Package obslog wraps go.uber.org/zap with the seven-level severity
// taxonomy this codebase's components are written against: verb, info,
// noti, warn, crit, fatal, debug. zap itself only distinguishes Debug,
// Info, Warn, Error and Fatal, so the finer levels are carried as a
// "severity" field layered on top of the nearest zap level, letting any
// zap-aware sink (console, JSON, a log aggregator's query language) still
// filter on the coarse level while a structured-log consumer can recover
// the original taxonomy from the field.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Severity is the original verb/info/noti/warn/crit/fatal/debug taxonomy:
// verb is noisy, performance-affecting tracing; info is routine,
// moderate-volume events; noti is an infrequent event worth a human's
// attention; warn is a minor error that does not affect operation; crit
// may cause partial failure; fatal may crash the process; debug is
// temporary, development-only instrumentation meant to be stripped before
// release (here: simply not emitted unless the logger was built at debug
// level).
type Severity int

const (
	SeverityVerb Severity = iota
	SeverityInfo
	SeverityNoti
	SeverityWarn
	SeverityCrit
	SeverityFatal
	SeverityDebug
)

func (s Severity) String() string {
	switch s {
	case SeverityVerb:
		return "verb"
	case SeverityInfo:
		return "info"
	case SeverityNoti:
		return "noti"
	case SeverityWarn:
		return "warn"
	case SeverityCrit:
		return "crit"
	case SeverityFatal:
		return "fatal"
	case SeverityDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Logger is a channel-scoped logger, optionally further scoped to one
// runtime object (a connection, a strand) via With. The original attaches
// an object identity by pointer address; here it is whatever correlation
// id the caller supplies (see client and server, which both use
// google/uuid ids for this).
type Logger struct {
	zap *zap.Logger
}

// New wraps an existing *zap.Logger, scoped to the given channel (a
// static, code-associated name such as "server" or "client").
func New(base *zap.Logger, channel string) *Logger {
	return &Logger{zap: base.With(zap.String("channel", channel))}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger { return &Logger{zap: zap.NewNop()} }

// With returns a child logger scoped to a single runtime object,
// identified by id (typically a uuid.UUID.String()).
func (l *Logger) With(id string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("object", id))}
}

// Fields returns a child logger with arbitrary additional structured
// fields attached to every subsequent record.
func (l *Logger) Fields(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

func (l *Logger) log(level zapcore.Level, sev Severity, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(level, msg); ce != nil {
		ce.Write(append(fields, zap.String("severity", sev.String()))...)
	}
}

// Verb logs a high-volume, performance-affecting trace event.
func (l *Logger) Verb(msg string, fields ...zap.Field) { l.log(zapcore.DebugLevel, SeverityVerb, msg, fields...) }

// Info logs a routine, moderate-volume event.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.log(zapcore.InfoLevel, SeverityInfo, msg, fields...) }

// Noti logs an infrequent event worth a human's attention.
func (l *Logger) Noti(msg string, fields ...zap.Field) { l.log(zapcore.InfoLevel, SeverityNoti, msg, fields...) }

// Warn logs a minor error that does not affect operation.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.log(zapcore.WarnLevel, SeverityWarn, msg, fields...) }

// Crit logs a critical error that may cause partial failure.
func (l *Logger) Crit(msg string, fields ...zap.Field) { l.log(zapcore.ErrorLevel, SeverityCrit, msg, fields...) }

// Fatal logs a fatal error and terminates the process, matching zap's own
// Fatal semantics.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, append(fields, zap.String("severity", SeverityFatal.String()))...)
}

// Debug logs temporary, development-only instrumentation.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.log(zapcore.DebugLevel, SeverityDebug, msg, fields...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }

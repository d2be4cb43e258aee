package obslog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseThreshold maps one of the seven severity names to the zapcore level
// it is built on: verb and debug collapse onto Debug, info and noti onto
// Info, crit onto Error. Accepts the names case-sensitively, matching
// the CLI's `--log/-l` flag values.
func ParseThreshold(name string) (zapcore.Level, error) {
	switch name {
	case "verb", "debug":
		return zapcore.DebugLevel, nil
	case "info", "noti":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "crit":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return 0, fmt.Errorf("obslog: unknown severity threshold %q", name)
	}
}

// NewBase builds the root *zap.Logger console sink every channel-scoped
// Logger in the process is derived from, writing to stderr at the given
// threshold.
func NewBase(threshold zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		threshold,
	)
	return zap.New(core)
}

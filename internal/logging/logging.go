// Package logging builds the process logger.
//
// All packages log through a [logr.Logger]; the backend is zap. Loggers are
// handed to request and background contexts with logr.NewContext and read back
// with logr.FromContextOrDiscard.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger.
type Options struct {
	// Development enables the console encoder and debug (V(1)) output.
	Development bool
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
}

// New returns a logr.Logger backed by zap.
func New(opts Options) (logr.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return logr.Discard(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

package container

import (
	"fmt"

	"github.com/samber/do"
	"go.uber.org/zap"
)

// NewLogger builds a zap logger from the log options. "json" selects the
// production encoder, anything else the development console encoder.
func NewLogger(format, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg.Level = lvl

	return cfg.Build()
}

// LoggerPackage provides the application logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat, opts.LogLevel)
	})
}

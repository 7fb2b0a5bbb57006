package app

import (
	"io"
	"os"

	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

// prodLogSample is the per-message burst kept each second in prod before
// sampling drops to one in a hundred.
const prodLogSample = 100

// NewLogger builds the process logger every command starts from. Service
// name and version are always attached; extra fields follow them.
func NewLogger(cfg config.Config, fields ...any) *logging.Logger {
	return newLogger(os.Stdout, cfg, fields...)
}

func newLogger(w io.Writer, cfg config.Config, fields ...any) *logging.Logger {
	opts := logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Fields: append([]any{"service", cfg.ServiceName, "version", cfg.ServiceVersion}, fields...),
	}
	if cfg.AppEnv == config.EnvProd {
		opts.Sample = prodLogSample
	}
	return logging.New(w, opts)
}

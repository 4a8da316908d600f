package executor

import (
	"io"
	"log/slog"
)

// Option is a functional option for configuring an executor.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used to report recovered panics and dropped tasks.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func run(logger *slog.Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}

package logging

import (
	"log/slog"
	"os"

	btclog "github.com/btcsuite/btclog/v2"
)

// New builds the daemon's logger: a console handler at Info level plus a
// rotating file handler under logDir, fanned out through a HandlerSet so
// every log statement reaches both. Console output goes to stderr, not
// stdout: stdout carries the process-ready line and, under the stdio
// agent transport, JSON-RPC frames, per spec §6. The returned closer
// closes the pipe feeding the file rotator and must be called on
// shutdown.
func New(logDir string) (*slog.Logger, func() error, error) {
	consoleHandler := btclog.NewDefaultHandler(os.Stderr)

	fileWriter := NewRotatingLogWriter()
	cfg := DefaultLogRotatorConfig()
	cfg.LogDir = logDir
	if err := fileWriter.InitLogRotator(cfg); err != nil {
		return nil, nil, err
	}
	fileHandler := btclog.NewDefaultHandler(fileWriter)

	set := NewHandlerSet(consoleHandler, fileHandler)

	return slog.New(set), fileWriter.Close, nil
}

// Subsystem returns a copy of logger tagged with the given subsystem
// name, following the corpus's SUBS-tagged-sub-logger convention. If
// logger was not built by New, it is returned unchanged.
func Subsystem(logger *slog.Logger, tag string) *slog.Logger {
	hs, ok := logger.Handler().(*HandlerSet)
	if !ok {
		return logger
	}

	sub, ok := hs.SubSystem(tag).(slog.Handler)
	if !ok {
		return logger
	}

	return slog.New(sub)
}

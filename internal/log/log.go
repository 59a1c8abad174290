// Package log provides structured logging for snapsearch.
// It wraps zap with defaults suited to a process whose stdout may carry the
// MCP protocol: everything is written to stderr.
package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	mu     sync.Mutex
)

// Init configures the global logger.
// Valid levels: "debug", "info", "warn", "error". Format is "json" or "console".
func Init(level, format string) {
	mu.Lock()
	defer mu.Unlock()
	logger = build(level, format)
	zap.ReplaceGlobals(logger.Desugar())
}

func build(level, format string) *zap.SugaredLogger {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller()).Sugar()
}

// L returns the global logger, initializing it at info level on first use.
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build("info", "console")
	}
	return logger
}

// Named returns a child logger scoped to a component.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

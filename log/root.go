package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	VerifyMonitoring = "vfy_mod"   // verification failures and resolution trouble
	ScanMonitoring   = "scan_mod"  // pre-analysis pass progress
	CacheMonitoring  = "cache_mod" // verdict store
	CLIMonitoring    = "cli_mod"   // dexscan command
)

var root atomic.Value

func init() {
	root.Store(NewLogger(DiscardHandler()))
}

func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToUpper(lvl) {
	case "MAX", "MAXVERBOSITY":
		return levelMaxVerbosity, nil
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "CRIT", "CRITICAL":
		return LevelCrit, nil
	default:
		return 0, fmt.Errorf("invalid level: %s", lvl)
	}
}

// InitLogger installs a stderr logger at the given level. format is "text"
// or "json".
func InitLogger(logLevel, format string) error {
	logLvl, err := ParseLevel(logLevel)
	if err != nil {
		return err
	}
	var h slog.Handler
	switch format {
	case "", "text":
		h = NewTerminalHandlerWithLevel(os.Stderr, logLvl)
	case "json":
		h = NewJSONHandlerWithLevel(os.Stderr, logLvl)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	SetDefault(NewLogger(h))
	return nil
}

// NewTerminalHandlerWithLevel returns a text handler writing records at or
// above lvl to w.
func NewTerminalHandlerWithLevel(w io.Writer, lvl slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if l, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, levelLabel(l))
				}
			}
			return a
		},
	})
}

func NewJSONHandlerWithLevel(w io.Writer, lvl slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
}

type discardHandler struct{}

func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, r slog.Record) error {
	return nil
}

func (h *discardHandler) Enabled(_ context.Context, level slog.Level) bool {
	return false
}

func (h *discardHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *discardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	root.Store(l)
	if lg, ok := l.(*logger); ok {
		slog.SetDefault(lg.inner)
	}
}

// Root returns the root logger
func Root() Logger {
	return root.Load().(Logger)
}

// --- Module management ---
// moduleEnabled keeps track of whether a module's trace and debug output is
// enabled. Verifications run on many goroutines, so access is guarded.
var (
	moduleMu      sync.RWMutex
	moduleEnabled = map[string]bool{
		VerifyMonitoring: false,
		ScanMonitoring:   false,
		CacheMonitoring:  false,
		CLIMonitoring:    false,
	}
)

// EnableModule enables logging for the specified module.
func EnableModule(module string) {
	moduleMu.Lock()
	defer moduleMu.Unlock()
	moduleEnabled[module] = true
}

// DisableModule disables logging for the specified module.
func DisableModule(module string) {
	moduleMu.Lock()
	defer moduleMu.Unlock()
	moduleEnabled[module] = false
}

// EnableModules enables a comma-separated list of modules; "all" enables
// every known module.
func EnableModules(modules string) {
	for _, m := range strings.Split(modules, ",") {
		m = strings.TrimSpace(m)
		switch m {
		case "":
		case "all":
			for _, known := range KnownModules() {
				EnableModule(known)
			}
		default:
			EnableModule(m)
		}
	}
}

func KnownModules() []string {
	moduleMu.RLock()
	defer moduleMu.RUnlock()
	out := make([]string, 0, len(moduleEnabled))
	for m := range moduleEnabled {
		out = append(out, m)
	}
	return out
}

// isModuleEnabled checks if logging is enabled for the given module.
func isModuleEnabled(module string) bool {
	moduleMu.RLock()
	defer moduleMu.RUnlock()
	return moduleEnabled[module]
}

// Trace logs a message at the trace level for a specific module.
func Trace(module string, msg string, ctx ...interface{}) {
	if !isModuleEnabled(module) {
		return
	}
	Root().Write(LevelTrace, module, msg, ctx...)
}

// Debug logs a message at the debug level for a specific module.
func Debug(module string, msg string, ctx ...interface{}) {
	if !isModuleEnabled(module) {
		return
	}
	Root().Write(LevelDebug, module, msg, ctx...)
}

// Info, Warn and Error are never filtered by module.
func Info(module string, msg string, ctx ...interface{}) {
	Root().Write(LevelInfo, module, msg, ctx...)
}

func Warn(module string, msg string, ctx ...interface{}) {
	Root().Write(LevelWarn, module, msg, ctx...)
}

func Error(module string, msg string, ctx ...interface{}) {
	Root().Write(LevelError, module, msg, ctx...)
}

package log

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuffer(t *testing.T, lvl slog.Level) *bytes.Buffer {
	t.Helper()
	prev := Root()
	buf := &bytes.Buffer{}
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(buf, lvl)))
	t.Cleanup(func() { SetDefault(prev) })
	return buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":    LevelTrace,
		"DEBUG":    LevelDebug,
		"info":     LevelInfo,
		"warning":  LevelWarn,
		"error":    LevelError,
		"critical": LevelCrit,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestModuleFiltering(t *testing.T) {
	buf := withBuffer(t, LevelTrace)

	DisableModule(ScanMonitoring)
	Debug(ScanMonitoring, "hidden")
	assert.Empty(t, buf.String())

	EnableModule(ScanMonitoring)
	t.Cleanup(func() { DisableModule(ScanMonitoring) })
	Debug(ScanMonitoring, "shown", "offset", 4)
	out := buf.String()
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "module=scan_mod")
	assert.Contains(t, out, "offset=4")
}

func TestWarnIsNeverFiltered(t *testing.T) {
	buf := withBuffer(t, LevelInfo)
	DisableModule(VerifyMonitoring)
	Warn(VerifyMonitoring, "rejected", "code", "B4")
	assert.Contains(t, buf.String(), "level=\"WARN \"")
	assert.Contains(t, buf.String(), "code=B4")
}

func TestJSONHandler(t *testing.T) {
	prev := Root()
	buf := &bytes.Buffer{}
	SetDefault(NewLogger(NewJSONHandlerWithLevel(buf, LevelInfo)))
	t.Cleanup(func() { SetDefault(prev) })

	Error(CacheMonitoring, "open failed", "path", "/tmp/x")
	out := buf.String()
	assert.Contains(t, out, `"module":"cache_mod"`)
	assert.Contains(t, out, `"path":"/tmp/x"`)
	assert.Contains(t, out, `"level":"ERROR"`)
}

func TestInitLoggerRejectsBadInput(t *testing.T) {
	prev := Root()
	t.Cleanup(func() { SetDefault(prev) })
	assert.Error(t, InitLogger("loud", "text"))
	assert.Error(t, InitLogger("info", "xml"))
	assert.NoError(t, InitLogger("info", "json"))
}

func TestOddArguments(t *testing.T) {
	buf := withBuffer(t, LevelInfo)
	Info(CLIMonitoring, "odd", "dangling")
	assert.Contains(t, buf.String(), errorKey)
}

func TestEnableModulesList(t *testing.T) {
	EnableModules("scan_mod, cache_mod")
	t.Cleanup(func() {
		DisableModule(ScanMonitoring)
		DisableModule(CacheMonitoring)
	})
	assert.True(t, isModuleEnabled(ScanMonitoring))
	assert.True(t, isModuleEnabled(CacheMonitoring))
	assert.False(t, isModuleEnabled(CLIMonitoring))
}

func TestConcurrentWrites(t *testing.T) {
	buf := &lockedBuffer{}
	prev := Root()
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(buf, LevelInfo)))
	t.Cleanup(func() { SetDefault(prev) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			EnableModule(VerifyMonitoring)
			Warn(VerifyMonitoring, "concurrent", "worker", i)
		}(i)
	}
	wg.Wait()
	DisableModule(VerifyMonitoring)
	assert.Equal(t, 16, strings.Count(buf.String(), "concurrent"))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

package log_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ethanolivertroy/sap-compass/internal/log"
)

func TestWithPrefix(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log.SetLogger(zap.New(core))
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	log.WithPrefix("normalizer").Warn("Optional source not found", log.FilePath("scan.json"), log.CVE("CVE-2024-0001"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "normalizer", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, map[string]any{
		"file_path": "scan.json",
		"cve_id":    "CVE-2024-0001",
	}, entries[0].ContextMap())
}

func TestInit(t *testing.T) {
	l, err := log.Init("debug", true)
	require.NoError(t, err)
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = log.Init("bogus", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel), "unknown levels fall back to info")
}

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := Init(Config{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	Info().Str("component", "test").Msg("hello")
	Debug().Int("attempt", 2).Msg("retrying")
	Error().Str("op", "close").Msg("failed")
	Std("[Test] ", true).Printf("from std logger")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), "from std logger")
	assert.Contains(t, string(data), `"level":"debug"`)
	assert.Contains(t, string(data), `"level":"error"`)
	assert.Equal(t, zerolog.DebugLevel, Logger.GetLevel())
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	closer, err := Init(Config{Level: "verbose"})
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, zerolog.InfoLevel, Logger.GetLevel())
}

func TestHertzLevel(t *testing.T) {
	assert.Equal(t, hlog.LevelDebug, hertzLevel(zerolog.DebugLevel))
	assert.Equal(t, hlog.LevelWarn, hertzLevel(zerolog.WarnLevel))
	assert.Equal(t, hlog.LevelInfo, hertzLevel(zerolog.InfoLevel))
	assert.Equal(t, hlog.LevelFatal, hertzLevel(zerolog.PanicLevel))
}

func TestStd_Discard(t *testing.T) {
	l := Std("[Test] ", false)
	l.Printf("discarded")
	assert.Empty(t, l.Prefix())
}

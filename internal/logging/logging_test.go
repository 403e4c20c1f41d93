package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupEmptyPathIsNop(t *testing.T) {
	logger, closer, err := Setup("", "debug")
	require.NoError(t, err)
	require.NotNil(t, closer)
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
	assert.NoError(t, closer.Close())
}

func TestSetupWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvui.log")

	logger, closer, err := Setup(path, "warn")
	require.NoError(t, err)
	logger.Info().Msg("dropped")
	logger.Warn().Str("topic", "room/temp").Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "kept", record["message"])
	assert.Equal(t, "room/temp", record["topic"])
	assert.Equal(t, "kvui", record["app"])
	assert.Contains(t, record, "time")
}

func TestSetupInvalidLevel(t *testing.T) {
	_, _, err := Setup(filepath.Join(t.TempDir(), "kvui.log"), "loud")
	assert.Error(t, err)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Console(&buf, "")
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

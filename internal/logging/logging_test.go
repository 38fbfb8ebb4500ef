package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, setup(&buf, "warn", "json"))

	log.Info().Msg("hidden")
	log.Warn().Str("hostname", "node-a").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "node-a", entry["hostname"])
	assert.Equal(t, "shown", entry["message"])
}

func TestSetupConsole(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, setup(&buf, "debug", "console"))
	log.Debug().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
}

func TestSetupErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, setup(&buf, "loud", "json"))
	assert.Error(t, setup(&buf, "info", "xml"))
}

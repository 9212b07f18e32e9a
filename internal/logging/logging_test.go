package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-keygrant/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestInitWriterJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logging.InitWriter(&buf, "PROD", "warn")

	log.Info().Msg("dropped")
	log.Warn().Str("token_id", "ab").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["message"])
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "ab", entry["token_id"])
}

func TestInitWriterBadLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logging.InitWriter(&buf, "PROD", "loud")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	log.Ctx(context.Background()).Info().Msg("via context")
	require.Contains(t, buf.String(), "via context")
}

func TestInitWriterConsole(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logging.InitWriter(&buf, "dev", "debug")
	log.Debug().Msg("hello console")
	require.Contains(t, buf.String(), "hello console")
	require.False(t, json.Valid(buf.Bytes()))
}

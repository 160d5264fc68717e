package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	}
	for in, want := range cases {
		level, err := ParseLevel(in)
		require.NoError(t, err, "level %q", in)
		assert.Equal(t, want, level, "level %q", in)
	}
}

func TestParseLevelUnknown(t *testing.T) {
	_, err := ParseLevel("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log level "loud"`)
}

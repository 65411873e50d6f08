package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-baby-meals/internal/log"
)

func TestGetLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want    slog.Level
		wantErr bool
	}{
		"error":   {want: slog.LevelError},
		"WARN":    {want: slog.LevelWarn},
		"warning": {want: slog.LevelWarn},
		"info":    {want: slog.LevelInfo},
		"Debug":   {want: slog.LevelDebug},
		"trace":   {wantErr: true},
	}

	for input, tc := range tcs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(input)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	t.Run("json handler writes json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h, err := log.NewHandler(&buf, log.Options{Level: "info", Format: "json"})
		require.NoError(t, err)

		slog.New(h).Info("meal logged", slog.String("baby_id", "b1"))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "meal logged", line["msg"])
		assert.Equal(t, "b1", line["baby_id"])
		assert.NotContains(t, line, "source")
	})

	t.Run("source only when asked", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h, err := log.NewHandler(&buf, log.Options{Level: "debug", Format: "json", Source: true})
		require.NoError(t, err)

		slog.New(h).Debug("seeded catalog")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Contains(t, line, "source")
	})

	t.Run("level filters debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h, err := log.NewHandler(&buf, log.Options{Level: "warn", Format: "logfmt"})
		require.NoError(t, err)

		slog.New(h).Debug("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("text handler", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h, err := log.NewHandler(&buf, log.Options{Level: "info", Format: "text", Prefix: "baby-meals"})
		require.NoError(t, err)

		slog.New(h).Info("hello")
		assert.Contains(t, buf.String(), "hello")
		assert.Contains(t, buf.String(), "baby-meals")
		assert.NotContains(t, buf.String(), "\x1b[", "no color when not writing to a terminal")
	})

	t.Run("bad format", func(t *testing.T) {
		t.Parallel()

		_, err := log.NewHandler(&bytes.Buffer{}, log.Options{Level: "info", Format: "xml"})
		require.ErrorIs(t, err, log.ErrInvalidArgument)
		require.ErrorIs(t, err, log.ErrUnknownLogFormat)
	})
}

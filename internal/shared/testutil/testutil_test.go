package testutil

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records and levels", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		require.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.Len(t, handler.RecordsByLevel(slog.LevelError), 1)
	})

	t.Run("keeps With attrs and groups", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "trial_manager")).
			WithGroup("req").
			Info("grouped", slog.String("id", "r-1"))

		records := handler.Records()
		require.Len(t, records, 1)
		assert.Equal(t, "trial_manager", records[0].Attrs["component"])
		assert.Equal(t, "r-1", records[0].Attrs["req.id"])
	})

	t.Run("derived loggers share records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		child := logger.With(slog.String("a", "b"))

		logger.Info("one")
		child.Info("two")

		assert.Equal(t, 2, handler.Count())
		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})

	t.Run("finds text in attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Warn("activation failed", slog.String("error", "key ABCD-EFGH rejected"))

		assert.True(t, handler.ContainsText("ABCD-EFGH"))
		assert.False(t, handler.ContainsText("ZZZZ"))
		AssertLogContains(t, handler, slog.LevelWarn, "activation")
		AssertNoErrors(t, handler)
	})
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	c := NewClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), c.Now())
	c.Advance(-time.Hour)
	assert.Equal(t, start.Add(35*time.Hour), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())
}

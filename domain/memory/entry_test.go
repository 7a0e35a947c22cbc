package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoryd/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewEntry(t *testing.T) {
	t.Run("assigns id, timestamp, and defaults", func(t *testing.T) {
		before := float64(time.Now().UnixNano()) / float64(time.Second)
		entry, err := NewEntry(NewEntryParams{
			UserID:  "user-1",
			Content: "hello",
		})
		after := float64(time.Now().UnixNano()) / float64(time.Second)

		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "user-1", entry.UserID)
		assert.Equal(t, RoleUser, entry.Role)
		assert.Equal(t, DefaultImportance, entry.Importance)
		assert.GreaterOrEqual(t, entry.Timestamp, before)
		assert.LessOrEqual(t, entry.Timestamp, after)
	})

	t.Run("unique ids per entry", func(t *testing.T) {
		a, err := NewEntry(NewEntryParams{UserID: "u", Content: "a"})
		require.NoError(t, err)
		b, err := NewEntry(NewEntryParams{UserID: "u", Content: "b"})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("requires user_id", func(t *testing.T) {
		_, err := NewEntry(NewEntryParams{Content: "hello"})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("requires content", func(t *testing.T) {
		_, err := NewEntry(NewEntryParams{UserID: "user-1"})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewEntry(NewEntryParams{UserID: "u", Content: "c", Role: "moderator"})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("accepts each valid role", func(t *testing.T) {
		for _, role := range []Role{RoleUser, RoleAssistant, RoleSystem} {
			entry, err := NewEntry(NewEntryParams{UserID: "u", Content: "c", Role: role})
			require.NoError(t, err)
			assert.Equal(t, role, entry.Role)
		}
	})

	t.Run("importance boundaries are inclusive", func(t *testing.T) {
		low, err := NewEntry(NewEntryParams{UserID: "u", Content: "c", Importance: floatPtr(0.0)})
		require.NoError(t, err)
		assert.Equal(t, 0.0, low.Importance)

		high, err := NewEntry(NewEntryParams{UserID: "u", Content: "c", Importance: floatPtr(1.0)})
		require.NoError(t, err)
		assert.Equal(t, 1.0, high.Importance)
	})

	t.Run("rejects out-of-range importance", func(t *testing.T) {
		for _, v := range []float64{-0.1, 1.5} {
			_, err := NewEntry(NewEntryParams{UserID: "u", Content: "c", Importance: floatPtr(v)})
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		}
	})
}

func TestEntryTags(t *testing.T) {
	entry := &Entry{Tags: []string{"work", "pref:timezone"}}

	assert.True(t, entry.HasTag("work"))
	assert.False(t, entry.HasTag("home"))
	assert.True(t, entry.HasAnyTag([]string{"home", "work"}))
	assert.False(t, entry.HasAnyTag([]string{"home", "travel"}))
	assert.False(t, entry.HasAnyTag(nil))
}

func TestEntryTime(t *testing.T) {
	entry := &Entry{Timestamp: 1700000000.25}
	got := entry.Time().UTC()

	assert.Equal(t, int64(1700000000), got.Unix())
	assert.InDelta(t, 250*time.Millisecond, time.Duration(got.Nanosecond()), float64(time.Millisecond))
}

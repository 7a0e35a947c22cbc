package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoryd/domain/memory"
	"memoryd/pkg/errors"
	"memoryd/pkg/utils"
)

// atHour returns an epoch timestamp daysAgo days back at the given UTC hour
func atHour(daysAgo, hour int) float64 {
	day := time.Now().UTC().AddDate(0, 0, -daysAgo)
	start, _ := utils.DayBounds(day)
	return start + float64(hour)*3600
}

func TestInsightServiceLongTermSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.appendAt(t, "user-1", "standup notes", atHour(1, 9), withRole(memory.RoleUser), withTags("work"))
	env.appendAt(t, "user-1", "review feedback", atHour(2, 9), withRole(memory.RoleUser), withTags("work"))
	env.appendAt(t, "user-1", "gym session", atHour(2, 18), withRole(memory.RoleUser), withTags("health"))
	env.appendAt(t, "user-1", "shipped the release", atHour(3, 14), withRole(memory.RoleSystem), withImportance(0.9), withTags("work"))

	summary, err := env.insight.LongTermSummary(ctx, SummaryParams{UserID: "user-1", Days: 30})
	require.NoError(t, err)

	assert.Equal(t, 30, summary.PeriodDays)
	assert.Equal(t, 4, summary.TotalMemories)

	require.NotNil(t, summary.Patterns.MostActiveHour)
	assert.Equal(t, 9, *summary.Patterns.MostActiveHour)
	assert.Equal(t, 3, summary.Patterns.DaysWithActivity)
	assert.Equal(t, map[string]int{"user": 3, "system": 1}, summary.Patterns.RoleDistribution)
	assert.InDelta(t, (0.5+0.5+0.5+0.9)/4, summary.Patterns.AverageImportance, 1e-9)

	assert.Equal(t, []string{"work", "health"}, summary.FrequentTopics)

	require.Len(t, summary.ImportantEvents, 1)
	assert.Equal(t, "shipped the release", summary.ImportantEvents[0].Content)

	assert.Contains(t, summary.ContextSummary, "Total interactions: 4")
	assert.Contains(t, summary.ContextSummary, "- shipped the release")
	assert.Contains(t, summary.ContextSummary, "Common topics: work, health")
}

func TestInsightServiceLongTermSummaryValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("zero days defaults", func(t *testing.T) {
		summary, err := env.insight.LongTermSummary(ctx, SummaryParams{UserID: "user-1"})
		require.NoError(t, err)
		assert.Equal(t, DefaultAnalysisDays, summary.PeriodDays)
	})

	t.Run("rejects out-of-range days", func(t *testing.T) {
		for _, days := range []int{-1, MaxAnalysisDays + 1} {
			_, err := env.insight.LongTermSummary(ctx, SummaryParams{UserID: "user-1", Days: days})
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		}
	})

	t.Run("empty window", func(t *testing.T) {
		summary, err := env.insight.LongTermSummary(ctx, SummaryParams{UserID: "nobody"})
		require.NoError(t, err)
		assert.Zero(t, summary.TotalMemories)
		assert.Nil(t, summary.Patterns.MostActiveHour)
		assert.Equal(t, "No long-term context available.", summary.ContextSummary)
	})
}

func TestPreferenceExtraction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := utils.NowUnixSeconds()
	env.appendAt(t, "user-1", "Timezone is PST", now-5000, withTags("pref:timezone"))
	env.appendAt(t, "user-1", "Prefers plain text email", now-4000, withTags("pref:email_format"))
	// later value for the same preference wins
	env.appendAt(t, "user-1", "Timezone is EST", now-3000, withTags("pref:timezone"))
	// malformed prefix carries no name
	env.appendAt(t, "user-1", "ignored", now-2000, withTags("pref:"))

	summary, err := env.insight.LongTermSummary(ctx, SummaryParams{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"timezone":     "Timezone is EST",
		"email_format": "Prefers plain text email",
	}, summary.UserPreferences)
}

func TestInsightServiceUserProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	newest := atHour(1, 8)
	env.appendAt(t, "user-1", "morning check-in", newest)
	env.appendAt(t, "user-1", "another morning", atHour(2, 8))
	env.appendAt(t, "user-1", "critical incident report", atHour(2, 20), withImportance(0.95))
	env.appendAt(t, "user-1", "useful background", atHour(3, 20), withImportance(0.7))
	env.appendAt(t, "user-1", "Timezone is EST", atHour(4, 10), withTags("pref:timezone"))

	profile, err := env.insight.UserProfile(ctx, "user-1", false)
	require.NoError(t, err)

	assert.Equal(t, 5, profile.TotalInteractions)
	assert.Equal(t, map[string]string{"timezone": "Timezone is EST"}, profile.Preferences)
	assert.Equal(t, 2, profile.InteractionPatterns[8])
	assert.Equal(t, 2, profile.InteractionPatterns[20])
	assert.Equal(t, 1, profile.InteractionPatterns[10])

	// key context is importance descending
	require.Len(t, profile.KeyContext, 2)
	assert.Equal(t, "critical incident report", profile.KeyContext[0])
	assert.Equal(t, "useful background", profile.KeyContext[1])

	// last_updated reflects the newest entry, not the time of the call
	assert.Equal(t, time.Unix(int64(newest), 0).UTC().Format(time.RFC3339), profile.LastUpdated)
}

func TestInsightServiceUserProfileEmpty(t *testing.T) {
	env := newTestEnv(t)

	profile, err := env.insight.UserProfile(context.Background(), "nobody", false)
	require.NoError(t, err)
	assert.Zero(t, profile.TotalInteractions)
	assert.Empty(t, profile.LastUpdated)
}

func TestInsightServiceUserProfileRecentWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.appendAt(t, "user-1", "recent", utils.NowUnixSeconds()-3600)
	env.appendAt(t, "user-1", "ancient", utils.NowUnixSeconds()-60*24*3600)

	all, err := env.insight.UserProfile(ctx, "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalInteractions)

	recent, err := env.insight.UserProfile(ctx, "user-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, recent.TotalInteractions)
}

func TestInsightServiceSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := utils.NowUnixSeconds()
	env.appendAt(t, "user-1", "Deploy the staging environment", now-300)
	env.appendAt(t, "user-1", "lunch plans", now-200, withTags("Deployment"))
	env.appendAt(t, "user-1", "unrelated note", now-100)
	env.appendAt(t, "user-1", "old deploy notes", now-10*24*3600)
	env.appendAt(t, "user-1", "threaded deploy", now-50, withThread("t1"))

	t.Run("case-insensitive over content and tags", func(t *testing.T) {
		got, err := env.insight.Search(ctx, SearchParams{UserID: "user-1", Query: "deploy"})
		require.NoError(t, err)
		require.Len(t, got, 4)
		// newest first
		assert.Equal(t, "threaded deploy", got[0].Content)
		assert.Equal(t, "lunch plans", got[1].Content)
		assert.Equal(t, "Deploy the staging environment", got[2].Content)
		assert.Equal(t, "old deploy notes", got[3].Content)
	})

	t.Run("days window narrows the scan", func(t *testing.T) {
		got, err := env.insight.Search(ctx, SearchParams{UserID: "user-1", Query: "deploy", Days: intPtr(7)})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("thread filter applies before matching", func(t *testing.T) {
		got, err := env.insight.Search(ctx, SearchParams{UserID: "user-1", Query: "deploy", ThreadID: "t1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "threaded deploy", got[0].Content)
	})

	t.Run("limit caps results", func(t *testing.T) {
		got, err := env.insight.Search(ctx, SearchParams{UserID: "user-1", Query: "deploy", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("requires a non-blank query", func(t *testing.T) {
		for _, q := range []string{"", "   "} {
			_, err := env.insight.Search(ctx, SearchParams{UserID: "user-1", Query: q})
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		}
	})

	t.Run("rejects oversized limit", func(t *testing.T) {
		_, err := env.insight.Search(ctx, SearchParams{UserID: "user-1", Query: "x", Limit: MaxSearchLimit + 1})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})
}

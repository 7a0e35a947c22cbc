package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"memoryd/domain/memory"
	"memoryd/pkg/errors"
	"memoryd/pkg/utils"
)

// Analysis limits
const (
	MaxAnalysisDays     = 365
	DefaultAnalysisDays = 30
	MaxSearchLimit      = 100
	DefaultSearchLimit  = 20
)

// preferenceTagPrefix marks tags whose most recent content becomes the
// user's current value for that preference name
const preferenceTagPrefix = "pref:"

// SummaryParams scopes a long-term analysis window. Days zero means the
// default of 30.
type SummaryParams struct {
	UserID   string
	ThreadID string
	Days     int
}

// SearchParams scopes a free-text search. Limit zero means the default of
// 20; Days nil means the whole log.
type SearchParams struct {
	UserID   string
	Query    string
	ThreadID string
	Days     *int
	Limit    int
}

// InsightService mines long-term patterns, builds user profiles, and serves
// keyword search. Like the context service it reads exclusively through the
// memory service's query path.
type InsightService struct {
	mem    *MemoryService
	logger *zap.Logger
}

// NewInsightService creates an insight service over the memory service
func NewInsightService(mem *MemoryService, logger *zap.Logger) *InsightService {
	return &InsightService{mem: mem, logger: logger}
}

// LongTermSummary mines up to a year of entries for activity patterns,
// frequent topics, important events, and preference tags
func (s *InsightService) LongTermSummary(ctx context.Context, params SummaryParams) (*LongTermSummary, error) {
	if params.UserID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}
	days := params.Days
	if days == 0 {
		days = DefaultAnalysisDays
	}
	if days < 0 || days > MaxAnalysisDays {
		return nil, errors.NewValidationErrorf("days must be in [1, %d] (got %d)", MaxAnalysisDays, params.Days)
	}

	start := utils.NowUnixSeconds() - float64(days)*24*3600
	entries, err := s.mem.Query(ctx, memory.Query{
		UserID:    params.UserID,
		ThreadID:  params.ThreadID,
		StartTime: &start,
		Limit:     memory.MaxQueryLimit,
	})
	if err != nil {
		return nil, err
	}

	summary := &LongTermSummary{
		UserID:          params.UserID,
		ThreadID:        params.ThreadID,
		PeriodDays:      days,
		TotalMemories:   len(entries),
		Patterns:        analyzePatterns(entries),
		FrequentTopics:  topTags(entries, topicCount),
		ImportantEvents: importantEvents(entries, importantEventsCap),
		UserPreferences: extractPreferences(entries),
	}
	summary.ContextSummary = contextSummary(entries, summary.FrequentTopics)
	return summary, nil
}

// UserProfile builds the derivative per-user view: interaction counts, the
// current preference values, common topics, an hour-of-day histogram, and
// the high-importance context entries
func (s *InsightService) UserProfile(ctx context.Context, userID string, includeRecent bool) (*UserProfile, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}

	q := memory.Query{UserID: userID, Limit: memory.MaxQueryLimit}
	if includeRecent {
		start := utils.NowUnixSeconds() - float64(DefaultAnalysisDays)*24*3600
		q.StartTime = &start
	}
	entries, err := s.mem.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	profile := &UserProfile{
		UserID:            userID,
		TotalInteractions: len(entries),
		Preferences:       extractPreferences(entries),
		CommonTopics:      topTags(entries, topicCount),
		KeyContext:        keyContext(entries),
	}
	// last_updated is the newest timestamp observed, not the wall clock
	var latest *memory.Entry
	for _, e := range entries {
		profile.InteractionPatterns[e.Time().UTC().Hour()]++
		if latest == nil || e.Timestamp > latest.Timestamp {
			latest = e
		}
	}
	if latest != nil {
		profile.LastUpdated = latest.Time().UTC().Format(time.RFC3339)
	}
	return profile, nil
}

// Search finds entries whose content (or any tag) contains the query,
// case-insensitively, most recent first
func (s *InsightService) Search(ctx context.Context, params SearchParams) ([]*memory.Entry, error) {
	if params.UserID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}
	if strings.TrimSpace(params.Query) == "" {
		return nil, errors.NewValidationError("query is required")
	}
	limit := params.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit < 0 || limit > MaxSearchLimit {
		return nil, errors.NewValidationErrorf("limit must be in [1, %d] (got %d)", MaxSearchLimit, params.Limit)
	}
	if params.Days != nil && *params.Days <= 0 {
		return nil, errors.NewValidationErrorf("days must be positive (got %d)", *params.Days)
	}

	q := memory.Query{
		UserID:   params.UserID,
		ThreadID: params.ThreadID,
		Limit:    memory.MaxQueryLimit,
	}
	if params.Days != nil {
		start := utils.NowUnixSeconds() - float64(*params.Days)*24*3600
		q.StartTime = &start
	}
	entries, err := s.mem.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(params.Query)
	matched := make([]*memory.Entry, 0, limit)
	for _, e := range entries {
		if matchesSearch(e, needle) {
			matched = append(matched, e)
			if len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func matchesSearch(e *memory.Entry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Content), needle) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// analyzePatterns mines activity patterns from a window of entries
func analyzePatterns(entries []*memory.Entry) Patterns {
	patterns := Patterns{RoleDistribution: map[string]int{}}
	if len(entries) == 0 {
		return patterns
	}

	var hourCounts [24]int
	days := map[string]struct{}{}
	totalImportance := 0.0
	for _, e := range entries {
		hourCounts[e.Time().UTC().Hour()]++
		days[utils.DayKey(e.Timestamp)] = struct{}{}
		patterns.RoleDistribution[string(e.Role)]++
		totalImportance += e.Importance
	}

	best := 0
	for h := 1; h < 24; h++ {
		// strict greater keeps ties on the smallest hour
		if hourCounts[h] > hourCounts[best] {
			best = h
		}
	}
	patterns.MostActiveHour = &best
	patterns.DaysWithActivity = len(days)
	patterns.AverageImportance = totalImportance / float64(len(entries))
	return patterns
}

// importantEvents returns entries at or above the critical importance
// threshold, capped, most recent first
func importantEvents(entries []*memory.Entry, max int) []*memory.Entry {
	events := []*memory.Entry{}
	for _, e := range entries {
		if e.Importance >= importanceCritical {
			events = append(events, e)
			if len(events) == max {
				break
			}
		}
	}
	return events
}

// extractPreferences resolves every pref:<name> tag to the content of the
// most recent entry carrying it; later entries override earlier ones
func extractPreferences(entries []*memory.Entry) map[string]string {
	byTime := make([]*memory.Entry, len(entries))
	copy(byTime, entries)
	sort.SliceStable(byTime, func(i, j int) bool {
		return byTime[i].Timestamp < byTime[j].Timestamp
	})

	prefs := map[string]string{}
	for _, e := range byTime {
		for _, t := range e.Tags {
			if name, ok := strings.CutPrefix(t, preferenceTagPrefix); ok && name != "" {
				prefs[name] = e.Content
			}
		}
	}
	return prefs
}

// keyContext returns truncated contents of the high-importance entries,
// importance descending, capped
func keyContext(entries []*memory.Entry) []string {
	key := []*memory.Entry{}
	for _, e := range entries {
		if e.Importance >= importanceKeyEvent {
			key = append(key, e)
		}
	}
	sort.SliceStable(key, func(i, j int) bool {
		return key[i].Importance > key[j].Importance
	})
	if len(key) > keyContextCap {
		key = key[:keyContextCap]
	}

	out := make([]string, 0, len(key))
	for _, e := range key {
		out = append(out, truncate(e.Content, 150))
	}
	return out
}

// contextSummary is the deterministic textual rollup of a long-term window
func contextSummary(entries []*memory.Entry, topics []string) string {
	if len(entries) == 0 {
		return "No long-term context available."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total interactions: %d", len(entries))

	events := importantEvents(entries, 3)
	if len(events) > 0 {
		b.WriteString("\nKey events:")
		for _, e := range events {
			b.WriteString("\n- " + truncate(e.Content, 100))
		}
	}
	if len(topics) > 0 {
		fmt.Fprintf(&b, "\nCommon topics: %s", strings.Join(topics, ", "))
	}
	return b.String()
}

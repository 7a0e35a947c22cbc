package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"memoryd/domain/memory"
	"memoryd/pkg/errors"
	"memoryd/pkg/utils"
)

// Window limits
const (
	MaxWindowDays        = 30
	MaxConversationHours = 168
	DefaultConvHours     = 24
)

// DailyParams scopes a single-day context. Date nil means today in the
// deployment's reference timezone (UTC).
type DailyParams struct {
	UserID         string
	ThreadID       string
	Date           *time.Time
	IncludeSummary bool
}

// WindowParams scopes a multi-day context window
type WindowParams struct {
	UserID   string
	ThreadID string
	Days     int
}

// ConversationParams scopes a sliding-lookback conversation rollup.
// Hours zero means the default of 24.
type ConversationParams struct {
	UserID   string
	ThreadID string
	Hours    int
}

// ContextService assembles calendar-day and sliding-window views. It is a
// pure reader: every byte it returns came through the memory service's
// query path.
type ContextService struct {
	mem    *MemoryService
	logger *zap.Logger
}

// NewContextService creates a context service over the memory service
func NewContextService(mem *MemoryService, logger *zap.Logger) *ContextService {
	return &ContextService{mem: mem, logger: logger}
}

// Daily computes one calendar day's context: entry count, chronological
// entries, and an optional heuristic summary
func (s *ContextService) Daily(ctx context.Context, params DailyParams) (*DailyContext, error) {
	if params.UserID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}

	date := time.Now().UTC()
	if params.Date != nil {
		date = params.Date.UTC()
	}

	entries, err := s.dayEntries(ctx, params.UserID, params.ThreadID, date)
	if err != nil {
		return nil, err
	}

	result := &DailyContext{
		Date:        date.Format(time.DateOnly),
		UserID:      params.UserID,
		ThreadID:    params.ThreadID,
		MemoryCount: len(entries),
		Memories:    entries,
	}
	if params.IncludeSummary {
		result.Summary = dailySummary(entries)
	}
	return result, nil
}

// Window stitches the last N daily contexts together, most recent day
// first. Each day is computed independently; there is no cross-day state.
func (s *ContextService) Window(ctx context.Context, params WindowParams) (*ContextWindow, error) {
	if params.UserID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}
	if params.Days <= 0 || params.Days > MaxWindowDays {
		return nil, errors.NewValidationErrorf("days must be in [1, %d] (got %d)", MaxWindowDays, params.Days)
	}

	now := time.Now().UTC()
	window := &ContextWindow{
		UserID:   params.UserID,
		ThreadID: params.ThreadID,
		Days:     params.Days,
		Contexts: make([]*DailyContext, 0, params.Days),
	}
	for i := 0; i < params.Days; i++ {
		date := now.AddDate(0, 0, -i)
		daily, err := s.Daily(ctx, DailyParams{
			UserID:         params.UserID,
			ThreadID:       params.ThreadID,
			Date:           &date,
			IncludeSummary: true,
		})
		if err != nil {
			return nil, err
		}
		window.Contexts = append(window.Contexts, daily)
		window.TotalMemories += daily.MemoryCount
	}
	return window, nil
}

// ConversationSummary rolls up the last N hours regardless of calendar
// boundaries: role counts, a deterministic narrative of the earliest user
// messages, frequent topics, and the highest-importance key points.
func (s *ContextService) ConversationSummary(ctx context.Context, params ConversationParams) (*ConversationSummary, error) {
	if params.UserID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}
	hours := params.Hours
	if hours == 0 {
		hours = DefaultConvHours
	}
	if hours < 0 || hours > MaxConversationHours {
		return nil, errors.NewValidationErrorf("hours must be in [1, %d] (got %d)", MaxConversationHours, params.Hours)
	}

	start := utils.NowUnixSeconds() - float64(hours)*3600
	entries, err := s.mem.Query(ctx, memory.Query{
		UserID:    params.UserID,
		ThreadID:  params.ThreadID,
		StartTime: &start,
		Limit:     memory.MaxQueryLimit,
	})
	if err != nil {
		return nil, err
	}

	summary := &ConversationSummary{
		UserID:          params.UserID,
		ThreadID:        params.ThreadID,
		TimeWindowHours: hours,
		TotalExchanges:  len(entries),
		Summary:         conversationNarrative(entries),
		Topics:          topTags(entries, topicCount),
		KeyPoints:       []*memory.Entry{},
	}
	for _, e := range entries {
		switch e.Role {
		case memory.RoleUser:
			summary.UserMessages++
		case memory.RoleAssistant:
			summary.AssistantMessages++
		}
		// entries arrive newest first, so key points stay most recent first
		if e.Importance >= importanceCritical && len(summary.KeyPoints) < keyPointCount {
			summary.KeyPoints = append(summary.KeyPoints, e)
		}
	}
	return summary, nil
}

// dayEntries queries one UTC calendar day and returns it oldest first
func (s *ContextService) dayEntries(ctx context.Context, userID, threadID string, date time.Time) ([]*memory.Entry, error) {
	start, end := utils.DayBounds(date)
	entries, err := s.mem.Query(ctx, memory.Query{
		UserID:    userID,
		ThreadID:  threadID,
		StartTime: &start,
		EndTime:   &end,
		Limit:     memory.MaxQueryLimit,
	})
	if err != nil {
		return nil, err
	}

	// the query's end bound is inclusive; an entry at exactly the next
	// midnight belongs to the next day
	day := make([]*memory.Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Timestamp < end {
			day = append(day, entries[i])
		}
	}
	return day, nil
}

package services

import (
	"memoryd/domain/memory"
)

// DailyContext is one calendar day's view of a user's log. Memories are in
// chronological order because a day narrative reads forward in time.
type DailyContext struct {
	Date        string          `json:"date"`
	UserID      string          `json:"user_id"`
	ThreadID    string          `json:"thread_id,omitempty"`
	MemoryCount int             `json:"memory_count"`
	Summary     string          `json:"summary,omitempty"`
	Memories    []*memory.Entry `json:"memories"`
}

// ContextWindow stitches several daily contexts together, most recent day
// first
type ContextWindow struct {
	UserID        string          `json:"user_id"`
	ThreadID      string          `json:"thread_id,omitempty"`
	Days          int             `json:"days"`
	Contexts      []*DailyContext `json:"contexts"`
	TotalMemories int             `json:"total_memories"`
}

// ConversationSummary is a time-boxed rollup over a sliding lookback window,
// independent of calendar boundaries
type ConversationSummary struct {
	UserID            string          `json:"user_id"`
	ThreadID          string          `json:"thread_id,omitempty"`
	TimeWindowHours   int             `json:"time_window_hours"`
	TotalExchanges    int             `json:"total_exchanges"`
	UserMessages      int             `json:"user_messages"`
	AssistantMessages int             `json:"assistant_messages"`
	Summary           string          `json:"summary"`
	Topics            []string        `json:"topics"`
	KeyPoints         []*memory.Entry `json:"key_points"`
}

// Patterns describes interaction patterns mined from a window of entries
type Patterns struct {
	// Hour of day (0-23) with the most entries; ties break toward the
	// smallest hour. Nil when the window is empty.
	MostActiveHour    *int           `json:"most_active_hour"`
	DaysWithActivity  int            `json:"days_with_activity"`
	RoleDistribution  map[string]int `json:"role_distribution"`
	AverageImportance float64        `json:"average_importance"`
}

// LongTermSummary is the pattern-mined rollup over a multi-week window
type LongTermSummary struct {
	UserID          string            `json:"user_id"`
	ThreadID        string            `json:"thread_id,omitempty"`
	PeriodDays      int               `json:"period_days"`
	TotalMemories   int               `json:"total_memories"`
	Patterns        Patterns          `json:"patterns"`
	FrequentTopics  []string          `json:"frequent_topics"`
	ImportantEvents []*memory.Entry   `json:"important_events"`
	UserPreferences map[string]string `json:"user_preferences"`
	ContextSummary  string            `json:"context_summary"`
}

// UserProfile is the derivative per-user view built from long-term memory
type UserProfile struct {
	UserID              string            `json:"user_id"`
	TotalInteractions   int               `json:"total_interactions"`
	Preferences         map[string]string `json:"preferences"`
	CommonTopics        []string          `json:"common_topics"`
	InteractionPatterns [24]int           `json:"interaction_patterns"`
	KeyContext          []string          `json:"key_context"`
	LastUpdated         string            `json:"last_updated"`
}

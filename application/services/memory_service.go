package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"memoryd/domain/memory"
	"memoryd/infrastructure/persistence/abstractions"
	"memoryd/pkg/errors"
	"memoryd/pkg/observability"
	"memoryd/pkg/utils"
)

// StoreImportantParams carries the fields for the high-importance shortcut
type StoreImportantParams struct {
	UserID   string
	Content  string
	Category string
	ThreadID string
	Metadata map[string]interface{}
}

// ClearParams scopes a bulk delete. With neither optional filter the whole
// log is removed; both filters combine with AND semantics.
type ClearParams struct {
	UserID        string
	ThreadID      string
	OlderThanDays *int
}

// MemoryService owns the append, query, and retention paths. Every read
// above it (daily, window, conversation, long-term, search) goes through
// Query; nothing touches the backend directly.
type MemoryService struct {
	store   abstractions.Store
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewMemoryService creates a memory service over the configured backend
func NewMemoryService(store abstractions.Store, metrics *observability.Collector, logger *zap.Logger) *MemoryService {
	return &MemoryService{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Store validates and appends a new entry. The engine assigns the ID and
// timestamp; callers may not set either.
func (s *MemoryService) Store(ctx context.Context, params memory.NewEntryParams) (*memory.Entry, error) {
	entry, err := memory.NewEntry(params)
	if err != nil {
		return nil, err
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return nil, err
	}
	s.metrics.EntriesAppended.WithLabelValues(s.store.Name()).Inc()
	s.logger.Debug("stored memory entry",
		zap.String("user_id", entry.UserID),
		zap.String("entry_id", entry.ID),
		zap.String("role", string(entry.Role)),
	)
	return entry, nil
}

// StoreImportant appends a system entry tagged with its category and
// "important" at importance 0.9
func (s *MemoryService) StoreImportant(ctx context.Context, params StoreImportantParams) (*memory.Entry, error) {
	if params.Category == "" {
		return nil, errors.NewValidationError("category is required")
	}
	importance := 0.9
	return s.Store(ctx, memory.NewEntryParams{
		UserID:     params.UserID,
		ThreadID:   params.ThreadID,
		Content:    params.Content,
		Role:       memory.RoleSystem,
		Metadata:   params.Metadata,
		Tags:       []string{params.Category, "important"},
		Importance: &importance,
	})
}

// Query loads the user's log, applies every filter, orders newest first,
// and truncates to the limit. Entries sharing a timestamp keep their
// insertion order.
func (s *MemoryService) Query(ctx context.Context, q memory.Query) ([]*memory.Entry, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	entries, skipped, err := s.store.Load(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.metrics.IntegrityWarnings.WithLabelValues(s.store.Name()).Add(float64(skipped))
	}

	matched := make([]*memory.Entry, 0, len(entries))
	for _, e := range entries {
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	s.metrics.QueriesServed.Inc()
	return matched, nil
}

// Clear removes entries by user, optionally restricted to one thread and/or
// an age cutoff, and reports the exact count removed. This is an explicit,
// immediate delete, independent of any backend TTL.
func (s *MemoryService) Clear(ctx context.Context, params ClearParams) (int, error) {
	if params.UserID == "" {
		return 0, errors.NewValidationError("user_id is required")
	}
	if params.OlderThanDays != nil && *params.OlderThanDays < 0 {
		return 0, errors.NewValidationErrorf("older_than_days must be >= 0 (got %d)", *params.OlderThanDays)
	}

	var cutoff *float64
	if params.OlderThanDays != nil {
		c := utils.NowUnixSeconds() - float64(*params.OlderThanDays)*24*3600
		cutoff = &c
	}

	removed, err := s.store.Delete(ctx, params.UserID, func(e *memory.Entry) bool {
		if params.ThreadID != "" && e.ThreadID != params.ThreadID {
			return true
		}
		if cutoff != nil && e.Timestamp >= *cutoff {
			return true
		}
		return false
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.metrics.EntriesDeleted.WithLabelValues(s.store.Name()).Add(float64(removed))
		s.logger.Info("cleared memory entries",
			zap.String("user_id", params.UserID),
			zap.String("thread_id", params.ThreadID),
			zap.Int("removed", removed),
		)
	}
	return removed, nil
}

// Backend exposes the underlying store for readiness checks
func (s *MemoryService) Backend() abstractions.Store {
	return s.store
}

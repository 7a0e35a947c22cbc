package memory

import (
	"memoryd/pkg/errors"
)

// Query limits
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 1000
)

// Query describes a filtered read over one user's log. Zero-valued optional
// fields are treated as absent; Limit zero means "use the default".
type Query struct {
	UserID        string
	ThreadID      string
	StartTime     *float64
	EndTime       *float64
	Tags          []string
	MinImportance *float64
	Role          Role
	Limit         int
}

// Normalize validates the query and applies the default limit
func (q *Query) Normalize() error {
	if q.UserID == "" {
		return errors.NewValidationError("user_id is required")
	}
	if q.Role != "" && !q.Role.Valid() {
		return errors.NewValidationErrorf("role must be one of: user, assistant, system (got %q)", string(q.Role))
	}
	if q.Limit == 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Limit < 0 || q.Limit > MaxQueryLimit {
		return errors.NewValidationErrorf("limit must be in [1, %d] (got %d)", MaxQueryLimit, q.Limit)
	}
	return nil
}

// Matches reports whether an entry satisfies every filter of the query.
// Time bounds are inclusive; tags match on any overlap, not intersection.
func (q *Query) Matches(e *Entry) bool {
	if q.ThreadID != "" && e.ThreadID != q.ThreadID {
		return false
	}
	if q.StartTime != nil && e.Timestamp < *q.StartTime {
		return false
	}
	if q.EndTime != nil && e.Timestamp > *q.EndTime {
		return false
	}
	if q.Role != "" && e.Role != q.Role {
		return false
	}
	if len(q.Tags) > 0 && !e.HasAnyTag(q.Tags) {
		return false
	}
	if q.MinImportance != nil && e.Importance < *q.MinImportance {
		return false
	}
	return true
}

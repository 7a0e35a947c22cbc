package memory

import (
	"time"

	"github.com/google/uuid"

	"memoryd/pkg/errors"
)

// Role identifies who produced an entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the recognized values
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DefaultImportance is assigned when the caller does not supply a score
const DefaultImportance = 0.5

// Entry is the sole persisted entity: one immutable unit of stored memory.
// Entries are never updated after creation; only append and bulk delete
// mutate state. Timestamp is seconds since epoch with sub-second precision,
// assigned by the engine at append time.
type Entry struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	ThreadID   string                 `json:"thread_id,omitempty"`
	Content    string                 `json:"content"`
	Role       Role                   `json:"role"`
	Timestamp  float64                `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Importance float64                `json:"importance"`
}

// NewEntryParams carries caller-supplied fields for a new entry.
// ID and Timestamp are always assigned by the engine.
type NewEntryParams struct {
	UserID     string
	ThreadID   string
	Content    string
	Role       Role
	Metadata   map[string]interface{}
	Tags       []string
	Importance *float64
}

// NewEntry constructs a validated entry, assigning its ID and timestamp
func NewEntry(p NewEntryParams) (*Entry, error) {
	if p.UserID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}
	if p.Content == "" {
		return nil, errors.NewValidationError("content is required")
	}

	role := p.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, errors.NewValidationErrorf("role must be one of: user, assistant, system (got %q)", string(p.Role))
	}

	importance := DefaultImportance
	if p.Importance != nil {
		importance = *p.Importance
		if importance < 0.0 || importance > 1.0 {
			return nil, errors.NewValidationErrorf("importance must be in [0.0, 1.0] (got %v)", importance)
		}
	}

	return &Entry{
		ID:         uuid.New().String(),
		UserID:     p.UserID,
		ThreadID:   p.ThreadID,
		Content:    p.Content,
		Role:       role,
		Timestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
		Metadata:   p.Metadata,
		Tags:       p.Tags,
		Importance: importance,
	}, nil
}

// Time converts the entry timestamp to a time.Time
func (e *Entry) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// HasTag reports whether the entry carries the given tag
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the entry carries at least one of the given tags
func (e *Entry) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}

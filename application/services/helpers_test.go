package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memoryd/domain/memory"
	"memoryd/infrastructure/persistence/abstractions"
	"memoryd/infrastructure/persistence/filelog"
	"memoryd/pkg/observability"
)

type testEnv struct {
	store   abstractions.Store
	memory  *MemoryService
	context *ContextService
	insight *InsightService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := filelog.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	logger := zap.NewNop()
	mem := NewMemoryService(store, observability.NewCollector("test"), logger)
	return &testEnv{
		store:   store,
		memory:  mem,
		context: NewContextService(mem, logger),
		insight: NewInsightService(mem, logger),
	}
}

type entryOpt func(*memory.Entry)

func withThread(id string) entryOpt {
	return func(e *memory.Entry) { e.ThreadID = id }
}

func withRole(role memory.Role) entryOpt {
	return func(e *memory.Entry) { e.Role = role }
}

func withTags(tags ...string) entryOpt {
	return func(e *memory.Entry) { e.Tags = tags }
}

func withImportance(v float64) entryOpt {
	return func(e *memory.Entry) { e.Importance = v }
}

// appendAt writes an entry with a controlled timestamp straight to the store,
// bypassing the service's timestamp assignment
func (env *testEnv) appendAt(t *testing.T, userID, content string, ts float64, opts ...entryOpt) *memory.Entry {
	t.Helper()
	entry, err := memory.NewEntry(memory.NewEntryParams{UserID: userID, Content: content})
	require.NoError(t, err)
	entry.Timestamp = ts
	for _, opt := range opts {
		opt(entry)
	}
	require.NoError(t, env.store.Append(context.Background(), entry))
	return entry
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

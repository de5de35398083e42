package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/scriptdeck/pkg/domain"
)

// RunHistoryContract verifies that a HistoryStore implementation adheres to
// the interface contract. Adapter test suites call this against their own
// backend.
func RunHistoryContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	base := time.Now().Truncate(time.Second)

	entries := []domain.HistoryEntry{
		{Identity: "/scripts/a.sh", Outcome: domain.OutcomeSuccess, StartedAt: base.Add(-3 * time.Minute), EndedAt: base.Add(-3*time.Minute + 2*time.Second)},
		{Identity: "/scripts/b.sh", Outcome: domain.OutcomeFailed, StartedAt: base.Add(-2 * time.Minute), EndedAt: base.Add(-2*time.Minute + time.Second)},
		{Identity: "/scripts/c.sh", Outcome: domain.OutcomeSuccess, StartedAt: base.Add(-1 * time.Minute), EndedAt: base},
	}

	t.Run("Append and Recent", func(t *testing.T) {
		for _, e := range entries {
			require.NoError(t, store.Append(ctx, e))
		}

		got, err := store.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)

		// Newest first.
		assert.Equal(t, domain.ScriptIdentity("/scripts/c.sh"), got[0].Identity)
		assert.Equal(t, domain.ScriptIdentity("/scripts/a.sh"), got[2].Identity)
		assert.Equal(t, domain.OutcomeFailed, got[1].Outcome)
	})

	t.Run("Recent respects limit", func(t *testing.T) {
		got, err := store.Recent(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, domain.ScriptIdentity("/scripts/c.sh"), got[0].Identity)
	})

	t.Run("Recent with zero limit", func(t *testing.T) {
		got, err := store.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

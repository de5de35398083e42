package pool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/scriptdeck/pkg/adapters/memory"
	"github.com/aretw0/scriptdeck/pkg/domain"
)

func TestAcquire_NeverCreatesFreshSessions(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	s1, err := p.Acquire(ctx, domain.ReuseNever, "/a.sh", "/tmp", nil)
	require.NoError(t, err)
	p.MarkSettled(s1.ID, domain.OutcomeSuccess)

	s2, err := p.Acquire(ctx, domain.ReuseNever, "/b.sh", "/tmp", nil)
	require.NoError(t, err)

	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Len(t, factory.Created(), 2)
}

func TestAcquire_SmartReusesSettledSession(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	s1, err := p.Acquire(ctx, domain.ReuseSmart, "/a.sh", "/tmp", nil)
	require.NoError(t, err)
	p.MarkSettled(s1.ID, domain.OutcomeSuccess)

	s2, err := p.Acquire(ctx, domain.ReuseSmart, "/b.sh", "/tmp", nil)
	require.NoError(t, err)

	assert.Equal(t, s1.ID, s2.ID, "a settled session is eligible for smart reuse")
	assert.Equal(t, domain.ScriptIdentity("/b.sh"), s2.Bound())
	assert.Len(t, factory.Created(), 1)
}

func TestAcquire_SmartSkipsRunningSession(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	s1, err := p.Acquire(ctx, domain.ReuseSmart, "/a.sh", "/tmp", nil)
	require.NoError(t, err)

	s2, err := p.Acquire(ctx, domain.ReuseSmart, "/b.sh", "/tmp", nil)
	require.NoError(t, err)

	assert.NotEqual(t, s1.ID, s2.ID, "a running session must not be reused")
	assert.Len(t, factory.Created(), 2)
}

func TestAcquire_AlwaysReusesRegardlessOfStatus(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	s1, err := p.Acquire(ctx, domain.ReuseAlways, "/a.sh", "/tmp", nil)
	require.NoError(t, err)

	s2, err := p.Acquire(ctx, domain.ReuseAlways, "/b.sh", "/tmp", nil)
	require.NoError(t, err)

	assert.Equal(t, s1.ID, s2.ID)
	// Rebinding released the prior binding first.
	assert.Equal(t, domain.ScriptIdentity("/b.sh"), s2.Bound())
}

func TestAcquire_DeadSessionsPrunedLazily(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	s1, err := p.Acquire(ctx, domain.ReuseSmart, "/a.sh", "/tmp", nil)
	require.NoError(t, err)
	p.MarkSettled(s1.ID, domain.OutcomeSuccess)
	factory.Created()[0].Exit()

	s2, err := p.Acquire(ctx, domain.ReuseSmart, "/b.sh", "/tmp", nil)
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID, "a dead session must not be reused")
	assert.Equal(t, 1, p.Counts().Total, "the dead session is pruned on scan")
}

func TestAcquire_FactoryErrorPropagates(t *testing.T) {
	factory := memory.NewFactory()
	factory.Fail(errors.New("no pty available"))
	p := New(factory)

	_, err := p.Acquire(context.Background(), domain.ReuseNever, "/a.sh", "/tmp", nil)
	assert.Error(t, err)
}

func TestAcquire_CeilingTriggersWarning(t *testing.T) {
	factory := memory.NewFactory()
	var warned bool
	var warnTotal int
	p := New(factory,
		WithCeiling(2),
		WithWarnFunc(func(total, ceiling int) {
			warned = true
			warnTotal = total
		}),
	)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Acquire(ctx, domain.ReuseNever, domain.ScriptIdentity(fmt.Sprintf("/s%d.sh", i)), "/tmp", nil)
		require.NoError(t, err)
	}

	assert.True(t, warned, "exceeding the ceiling warns, it does not fail")
	assert.Equal(t, 3, warnTotal)
	assert.Equal(t, 3, p.Counts().Total, "no session was dropped")
}

func TestCounts(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	s1, _ := p.Acquire(ctx, domain.ReuseNever, "/a.sh", "/tmp", nil)
	s2, _ := p.Acquire(ctx, domain.ReuseNever, "/b.sh", "/tmp", nil)
	_, _ = p.Acquire(ctx, domain.ReuseNever, "/c.sh", "/tmp", nil)

	p.MarkSettled(s1.ID, domain.OutcomeSuccess)
	p.MarkSettled(s2.ID, domain.OutcomeFailed)

	c := p.Counts()
	assert.Equal(t, domain.PoolCounts{Total: 3, Running: 1, Completed: 1, Failed: 1}, c)
}

func TestCloseSettled_LeavesRunningSessions(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	s1, _ := p.Acquire(ctx, domain.ReuseNever, "/a.sh", "/tmp", nil)
	_, _ = p.Acquire(ctx, domain.ReuseNever, "/b.sh", "/tmp", nil)
	p.MarkSettled(s1.ID, domain.OutcomeSuccess)

	closed := p.CloseSettled()
	assert.Equal(t, 1, closed)

	c := p.Counts()
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, 1, c.Running)
}

func TestCloseAll(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)
	ctx := context.Background()

	_, _ = p.Acquire(ctx, domain.ReuseNever, "/a.sh", "/tmp", nil)
	_, _ = p.Acquire(ctx, domain.ReuseNever, "/b.sh", "/tmp", nil)

	p.CloseAll()

	assert.Equal(t, 0, p.Counts().Total)
	for _, s := range factory.Created() {
		assert.False(t, s.Alive())
	}
}

func TestRelease_ReturnsSessionToIdle(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)

	s, _ := p.Acquire(context.Background(), domain.ReuseNever, "/a.sh", "/tmp", nil)
	p.Release(s.ID)

	assert.Equal(t, domain.ScriptIdentity(""), s.Bound())
	assert.Equal(t, StatusIdle, s.Status())
}

func TestDestroy_ClosesSurface(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)

	s, _ := p.Acquire(context.Background(), domain.ReuseNever, "/a.sh", "/tmp", nil)
	require.NoError(t, p.Destroy(s.ID, true))

	assert.Equal(t, 0, p.Counts().Total)
	assert.False(t, factory.Created()[0].Alive())
}

func TestWorkdirPassedToFactory(t *testing.T) {
	factory := memory.NewFactory()
	p := New(factory)

	_, err := p.Acquire(context.Background(), domain.ReuseNever, "/x/a.sh", "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/x"}, factory.Workdirs())
}

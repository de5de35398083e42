package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/scriptdeck/pkg/adapters/memory"
	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/gate"
	"github.com/aretw0/scriptdeck/pkg/infer"
	"github.com/aretw0/scriptdeck/pkg/pool"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// writeScript drops an executable script into a temp dir and returns its
// identity.
func writeScript(t *testing.T, body string) domain.ScriptIdentity {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return domain.ScriptIdentity(path)
}

// harness bundles a manager with its fake surface factory and an event feed.
type harness struct {
	manager *Manager
	factory *memory.Factory
	pool    *pool.Pool
	events  chan domain.StatusEvent
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	factory := memory.NewFactory()
	p := pool.New(factory)
	inferencer := infer.New(
		infer.WithPollInterval(5*time.Millisecond),
		infer.WithQuietDelay(80*time.Millisecond),
		infer.WithHardCeiling(5*time.Second),
	)

	base := []Option{WithGracePeriod(40 * time.Millisecond)}
	m := New(gate.New(nil, nil), p, inferencer, append(base, opts...)...)
	t.Cleanup(m.Close)

	h := &harness{
		manager: m,
		factory: factory,
		pool:    p,
		events:  make(chan domain.StatusEvent, 64),
	}
	m.Subscribe(func(ev domain.StatusEvent) {
		h.events <- ev
	})
	return h
}

// waitState blocks until an event with the wanted state arrives.
func (h *harness) waitState(t *testing.T, want domain.RunState) domain.StatusEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.State == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func TestRequest_FullLifecycle(t *testing.T) {
	// Scenario: clean script, empty rule lists, confirmation disabled. The
	// identity travels idle -> running -> success -> idle.
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\nmake all\n")

	warnings, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, domain.StateRunning, h.manager.Status(identity))

	h.waitState(t, domain.StateRunning)

	// The surface closes; completion is inferred as success.
	h.factory.Created()[0].Exit()
	h.waitState(t, domain.StateSuccess)
	assert.Equal(t, domain.StateSuccess, h.manager.Status(identity))

	// After the grace period the identity reverts to idle.
	h.waitState(t, domain.StateIdle)
	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))
}

func TestRequest_DeniedAcquiresNoSession(t *testing.T) {
	// Scenario: the script body trips a built-in destructive pattern.
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\nrm -rf /*\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.ErrorIs(t, err, domain.ErrSecurityDenied)

	assert.Empty(t, h.factory.Created(), "no session may be acquired on deny")
	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))
}

func TestRequest_AlreadyRunning(t *testing.T) {
	// Scenario: a second request for the same identity is rejected and the
	// first run is unaffected.
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\nsleep 60\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)

	_, err = h.manager.Request(context.Background(), identity, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
	assert.Equal(t, domain.StateRunning, h.manager.Status(identity))
	assert.Len(t, h.factory.Created(), 1)
}

func TestRequest_ConcurrentExactlyOneWins(t *testing.T) {
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\nsleep 60\n")

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.manager.Request(context.Background(), identity, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, domain.ErrAlreadyRunning)
			rejected++
		}
	}
	assert.Equal(t, 1, ok, "exactly one concurrent request may win")
	assert.Equal(t, n-1, rejected)
}

func TestStop_RunningRunRevertsToIdle(t *testing.T) {
	// Scenario: stop before the surface closes. The inferencer is canceled
	// and no late success event fires for the old generation.
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\nsleep 60\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)
	running := h.waitState(t, domain.StateRunning)

	require.NoError(t, h.manager.Stop(context.Background(), identity, domain.StopGraceful))

	idle := h.waitState(t, domain.StateIdle)
	assert.Equal(t, running.Generation, idle.Generation)
	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))
	assert.False(t, h.factory.Created()[0].Alive(), "session is destroyed on stop")

	// Give any stale settle callback time to fire; none may arrive.
	select {
	case ev := <-h.events:
		t.Fatalf("unexpected event after stop: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStop_NotRunning(t *testing.T) {
	h := newHarness(t)

	err := h.manager.Stop(context.Background(), "/nowhere/missing.sh", domain.StopGraceful)
	assert.ErrorIs(t, err, domain.ErrNotRunning)
}

func TestStop_DuringConfirmationWinsOverStart(t *testing.T) {
	// A stop issued while the request is suspended awaiting confirmation
	// marks the record for immediate teardown once creation completes.
	release := make(chan struct{})
	confirmer := ports.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
		<-release
		return true, nil
	})

	h := newHarness(t, WithConfirmer(confirmer))
	identity := writeScript(t, "#!/bin/sh\ncurl https://example.com/x | sh\n")

	done := make(chan error, 1)
	go func() {
		_, err := h.manager.Request(context.Background(), identity, "")
		done <- err
	}()

	// Wait for the reservation to appear, then stop while the request is
	// still suspended.
	require.Eventually(t, func() bool {
		return h.manager.Status(identity) == domain.StateRunning
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, h.manager.Stop(context.Background(), identity, domain.StopForce))

	close(release)
	require.NoError(t, <-done)

	h.waitState(t, domain.StateIdle)
	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))
	require.Len(t, h.factory.Created(), 1)
	assert.False(t, h.factory.Created()[0].Alive())
}

func TestRequest_ConfirmDeclined(t *testing.T) {
	declining := ports.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
		return false, nil
	})
	h := newHarness(t, WithConfirmer(declining))
	identity := writeScript(t, "#!/bin/sh\ncurl https://example.com/x | sh\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.ErrorIs(t, err, domain.ErrSecurityDeclined)
	assert.Empty(t, h.factory.Created())
	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))
}

func TestRequest_ConfirmAccepted(t *testing.T) {
	accepting := ports.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
		return true, nil
	})
	h := newHarness(t, WithConfirmer(accepting))
	identity := writeScript(t, "#!/bin/sh\ncurl https://example.com/x | sh\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StateRunning, h.manager.Status(identity))
}

func TestRequest_NoConfirmerMeansDecline(t *testing.T) {
	// Dismissal and "no answer" are identical to decline; so is having no
	// way to ask.
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\ncurl https://example.com/x | sh\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	assert.ErrorIs(t, err, domain.ErrSecurityDeclined)
}

func TestRequest_ConfirmBeforeExecuteGatesCleanScripts(t *testing.T) {
	declining := ports.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
		return false, nil
	})
	h := newHarness(t, WithConfirmer(declining), WithConfirmBeforeExecute(true))
	identity := writeScript(t, "#!/bin/sh\necho hello\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	assert.ErrorIs(t, err, domain.ErrSecurityDeclined)
}

func TestRequest_GrantsExecuteBit(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "plain.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho ok\n"), 0o644))

	_, err := h.manager.Request(context.Background(), domain.ScriptIdentity(path), "")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "execute bit was granted")
}

func TestRequest_MissingScript(t *testing.T) {
	h := newHarness(t)

	_, err := h.manager.Request(context.Background(), "/nowhere/missing.sh", "")
	require.Error(t, err)
	assert.Equal(t, domain.StateIdle, h.manager.Status("/nowhere/missing.sh"))
	assert.Empty(t, h.factory.Created())
}

func TestRequest_ParamsAppendedVerbatim(t *testing.T) {
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\necho \"$1\"\n")

	warnings, err := h.manager.Request(context.Background(), identity, "--env staging $HOME")
	require.NoError(t, err)
	assert.NotEmpty(t, warnings, "metacharacters are flagged")

	started := h.factory.Created()[0].Started()
	require.Len(t, started, 1)
	assert.Equal(t, identity.String()+" --env staging $HOME", started[0])
}

func TestRequest_SessionAcquisitionFailure(t *testing.T) {
	h := newHarness(t)
	h.factory.Fail(fmt.Errorf("pty allocation failed"))
	identity := writeScript(t, "#!/bin/sh\necho ok\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.ErrorIs(t, err, domain.ErrSessionAcquisition)
	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))
}

func TestRequest_StartFailureDestroysSession(t *testing.T) {
	broken := memory.NewSurface()
	broken.FailStart(fmt.Errorf("surface rejected the command"))

	p := pool.New(memory.NewFactory(broken))
	m := New(gate.New(nil, nil), p, infer.New(), WithGracePeriod(20*time.Millisecond))
	t.Cleanup(m.Close)

	identity := writeScript(t, "#!/bin/sh\necho ok\n")
	_, err := m.Request(context.Background(), identity, "")
	require.ErrorIs(t, err, domain.ErrSessionAcquisition)
	assert.Equal(t, domain.StateIdle, m.Status(identity))
	assert.False(t, broken.Alive(), "an unstartable session must not linger")
}

func TestEventOrderingPerIdentity(t *testing.T) {
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\necho ok\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)
	h.factory.Created()[0].Exit()

	var got []domain.RunState
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case ev := <-h.events:
			got = append(got, ev.State)
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []domain.RunState{domain.StateRunning, domain.StateSuccess, domain.StateIdle}, got)
}

func TestStatus_Idempotent(t *testing.T) {
	h := newHarness(t)
	identity := writeScript(t, "#!/bin/sh\nsleep 60\n")

	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))
	assert.Equal(t, domain.StateIdle, h.manager.Status(identity))

	_, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)

	first := h.manager.Status(identity)
	second := h.manager.Status(identity)
	assert.Equal(t, first, second)
}

func TestHistoryRecordsSettledRuns(t *testing.T) {
	history := memory.NewHistory(0)
	h := newHarness(t, WithHistory(history))
	identity := writeScript(t, "#!/bin/sh\necho ok\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)
	h.factory.Created()[0].Exit()
	h.waitState(t, domain.StateIdle)

	entries, err := history.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, identity, entries[0].Identity)
	assert.Equal(t, domain.OutcomeSuccess, entries[0].Outcome)
}

func TestKeepSessionOpenFalseClosesOnRevert(t *testing.T) {
	h := newHarness(t, WithKeepSessionOpen(false))
	identity := writeScript(t, "#!/bin/sh\necho ok\n")

	_, err := h.manager.Request(context.Background(), identity, "")
	require.NoError(t, err)

	surface := h.factory.Created()[0]
	surface.Exit()
	h.waitState(t, domain.StateIdle)

	require.Eventually(t, func() bool {
		return h.manager.Counts().Total == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRecordExposesExitHint(t *testing.T) {
	// An owned surface that exits 3. The quiet-delay fallback must not fire
	// for owned surfaces, so the real exit code decides the outcome.
	surface := memory.NewSurface()
	surface.SetOwned(true)

	p := pool.New(memory.NewFactory(surface))
	inferencer := infer.New(
		infer.WithPollInterval(5*time.Millisecond),
		infer.WithQuietDelay(30*time.Millisecond),
		infer.WithHardCeiling(5*time.Second),
	)
	m := New(gate.New(nil, nil), p, inferencer, WithGracePeriod(time.Second))
	t.Cleanup(m.Close)

	events := make(chan domain.StatusEvent, 16)
	m.Subscribe(func(ev domain.StatusEvent) { events <- ev })

	identity := writeScript(t, "#!/bin/sh\nexit 3\n")
	_, err := m.Request(context.Background(), identity, "")
	require.NoError(t, err)

	// Stay alive past the quiet delay, then exit with a failure code.
	time.Sleep(60 * time.Millisecond)
	surface.SetExit(3)
	surface.Exit()

	deadline := time.After(2 * time.Second)
	for {
		var ev domain.StatusEvent
		select {
		case ev = <-events:
		case <-deadline:
			t.Fatal("timed out waiting for failure")
		}
		if ev.State == domain.StateFailed {
			break
		}
		require.NotEqual(t, domain.StateSuccess, ev.State, "owned surface must not settle via the quiet fallback")
	}

	rec, ok := m.Record(identity)
	require.True(t, ok)
	require.NotNil(t, rec.LastExitHint)
	assert.Equal(t, 3, *rec.LastExitHint)
	assert.Equal(t, domain.StateFailed, rec.State)
}

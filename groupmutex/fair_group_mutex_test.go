package groupmutex

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = time.Millisecond
)

// requestAsync starts a RequestAccess in the background; the returned channel is closed on admission.
func requestAsync(fgm *FairGroupMutex, g types.Group) <-chan struct{} {

	admitted := make(chan struct{})
	go func() {
		fgm.RequestAccess(g)
		close(admitted)
	}()
	return admitted
}

func waitingEventually(t *testing.T, fgm *FairGroupMutex, g types.Group, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return fgm.Status().WaitingOf(g) == n
	}, waitFor, tick)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestFairGroupMutex_AdmitWhenIdle(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()
	fgm.RequestAccess(types.GroupA)

	st := fgm.Status()
	assert.Equal(t, 1, st.ActiveOf(types.GroupA))
	assert.Equal(t, 0, st.WaitingOf(types.GroupA))
	assert.Equal(t, 0, st.ActiveOf(types.GroupB))
}

func TestFairGroupMutex_OpponentBlocksWhileActive(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()
	fgm.RequestAccess(types.GroupA)

	admittedB := requestAsync(fgm, types.GroupB)
	waitingEventually(t, fgm, types.GroupB, 1)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, isClosed(admittedB))
	assert.Equal(t, 0, fgm.Status().ActiveOf(types.GroupB))

	fgm.ReleaseAccess(types.GroupA)
	<-admittedB
	fgm.ReleaseAccess(types.GroupB)
}

func TestFairGroupMutex_ReleaseHandsOverToWaitingGroup(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()
	fgm.RequestAccess(types.GroupA)

	admittedB := requestAsync(fgm, types.GroupB)
	waitingEventually(t, fgm, types.GroupB, 1)

	fgm.ReleaseAccess(types.GroupA)

	select {
	case <-admittedB:
	case <-time.After(waitFor):
		t.Fatal("group B was not admitted after group A drained")
	}

	st := fgm.Status()
	assert.Equal(t, types.GroupB, st.Turn)
	assert.Equal(t, 1, st.ActiveOf(types.GroupB))
	assert.Equal(t, 0, st.ActiveOf(types.GroupA))
	assert.Equal(t, 0, st.WaitingOf(types.GroupB))
}

func TestFairGroupMutex_IntraGroupConcurrency(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()

	first := requestAsync(fgm, types.GroupA)
	second := requestAsync(fgm, types.GroupA)
	<-first
	<-second

	assert.Equal(t, 2, fgm.Status().ActiveOf(types.GroupA))

	fgm.ReleaseAccess(types.GroupA)
	fgm.ReleaseAccess(types.GroupA)
	assert.Equal(t, 0, fgm.Status().ActiveOf(types.GroupA))
}

func TestFairGroupMutex_NewcomerYieldsToWaitingOpponent(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()
	fgm.RequestAccess(types.GroupA)

	admittedB := requestAsync(fgm, types.GroupB)
	waitingEventually(t, fgm, types.GroupB, 1)

	// no B worker is inside, but B is waiting and A already holds the resource.
	secondA := requestAsync(fgm, types.GroupA)
	waitingEventually(t, fgm, types.GroupA, 1)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, isClosed(secondA))
	assert.Equal(t, 1, fgm.Status().ActiveOf(types.GroupA))

	fgm.ReleaseAccess(types.GroupA)
	<-admittedB
	assert.False(t, isClosed(secondA), "second A worker must not overtake the waiting B worker")

	fgm.ReleaseAccess(types.GroupB)
	<-secondA

	st := fgm.Status()
	assert.Equal(t, types.GroupA, st.Turn)
	assert.Equal(t, 1, st.ActiveOf(types.GroupA))
	fgm.ReleaseAccess(types.GroupA)
}

func TestFairGroupMutex_TurnFlipsOnlyWhenGroupDrains(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		initialTurn types.Group
		group       types.Group
	}{
		{name: "A drains with turn A", initialTurn: types.GroupA, group: types.GroupA},
		{name: "A drains with turn B", initialTurn: types.GroupB, group: types.GroupA},
		{name: "B drains with turn A", initialTurn: types.GroupA, group: types.GroupB},
		{name: "B drains with turn B", initialTurn: types.GroupB, group: types.GroupB},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fgm := InitializeFairGroupMutex(WithInitialTurn(tc.initialTurn))

			fgm.RequestAccess(tc.group)
			fgm.RequestAccess(tc.group)

			fgm.ReleaseAccess(tc.group)
			assert.Equal(t, tc.initialTurn, fgm.Status().Turn, "turn must not move while the group is still inside")

			fgm.ReleaseAccess(tc.group)
			assert.Equal(t, tc.group.Opposite(), fgm.Status().Turn)
		})
	}
}

func TestFairGroupMutex_ReleaseWithoutRequestPanics(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()
	assert.Panics(t, func() { fgm.ReleaseAccess(types.GroupB) })

	// the lock is released on panic, the controller stays usable.
	fgm.RequestAccess(types.GroupB)
	fgm.ReleaseAccess(types.GroupB)
	assert.Panics(t, func() { fgm.ReleaseAccess(types.GroupB) })
}

func TestFairGroupMutex_InvalidGroupPanics(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()
	assert.Panics(t, func() { fgm.RequestAccess(types.Group(2)) })
	assert.Panics(t, func() { fgm.ReleaseAccess(types.Group(-1)) })
	assert.Panics(t, func() { InitializeFairGroupMutex(WithInitialTurn(types.Group(3))) })
}

func TestFairGroupMutex_ObserverSeesOrderedTransitions(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	var events []types.StatusEvent
	obs := types.StatusObserverFunc(func(ev types.StatusEvent) {
		events = append(events, ev)
	})

	fgm := InitializeFairGroupMutex(WithObserver(obs), WithClock(mock), WithInitialTurn(types.GroupB))
	fgm.RequestAccess(types.GroupB)
	fgm.RequestAccess(types.GroupB)
	fgm.ReleaseAccess(types.GroupB)
	fgm.ReleaseAccess(types.GroupB)

	require.Len(t, events, 4)
	assert.Equal(t, types.ActionEntered, events[0].Action)
	assert.Equal(t, 1, events[0].Status.ActiveOf(types.GroupB))
	assert.Equal(t, 2, events[1].Status.ActiveOf(types.GroupB))
	assert.Equal(t, types.ActionExited, events[2].Action)
	assert.Equal(t, 1, events[2].Status.ActiveOf(types.GroupB))
	assert.Equal(t, 0, events[3].Status.ActiveOf(types.GroupB))
	assert.Equal(t, types.GroupB, events[2].Status.Turn)
	assert.Equal(t, types.GroupA, events[3].Status.Turn, "the draining release reports the flipped turn")
	for _, ev := range events {
		assert.Equal(t, types.GroupB, ev.Group)
		assert.Equal(t, mock.Now(), ev.Time)
	}
}

func TestFairGroupMutex_MutualExclusionUnderLoad(t *testing.T) {
	t.Parallel()

	const (
		workersPerGroup = 8
		iterations      = 200
	)

	var (
		inside     [2]int32
		violations int32
	)
	obs := types.StatusObserverFunc(func(ev types.StatusEvent) {
		st := ev.Status
		if st.Active[0] != 0 && st.Active[1] != 0 {
			atomic.AddInt32(&violations, 1)
		}
		for i := range st.Active {
			if st.Active[i] < 0 || st.Waiting[i] < 0 {
				atomic.AddInt32(&violations, 1)
			}
		}
	})

	fgm := InitializeFairGroupMutex(WithObserver(obs))

	var wg sync.WaitGroup
	for _, g := range types.Groups {
		for w := 0; w < workersPerGroup; w++ {
			wg.Add(1)
			go func(g types.Group) {
				defer wg.Done()
				for i := 0; i < iterations; i++ {
					fgm.RequestAccess(g)

					atomic.AddInt32(&inside[g.Index()], 1)
					if atomic.LoadInt32(&inside[g.Opposite().Index()]) != 0 {
						atomic.AddInt32(&violations, 1)
					}
					if i%16 == 0 {
						time.Sleep(50 * time.Microsecond)
					}
					atomic.AddInt32(&inside[g.Index()], -1)

					fgm.ReleaseAccess(g)
				}
			}(g)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatalf("workers did not finish, status %+v", fgm.Status())
	}

	assert.Zero(t, atomic.LoadInt32(&violations))

	st := fgm.Status()
	for _, g := range types.Groups {
		assert.Equal(t, 0, st.ActiveOf(g))
		assert.Equal(t, 0, st.WaitingOf(g))
		assert.Equal(t, uint64(workersPerGroup*iterations), st.Admitted[g.Index()])
		assert.Equal(t, st.Admitted[g.Index()], st.Released[g.Index()])
	}
}

func TestFairGroupMutex_RefillingGroupCannotStarveOpponent(t *testing.T) {
	t.Parallel()

	fgm := InitializeFairGroupMutex()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < 6; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				fgm.RequestAccess(types.GroupA)
				time.Sleep(100 * time.Microsecond)
				fgm.ReleaseAccess(types.GroupA)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return fgm.Status().Admitted[types.GroupA.Index()] > 50
	}, waitFor, tick)

	for round := 0; round < 5; round++ {
		admittedB := requestAsync(fgm, types.GroupB)
		select {
		case <-admittedB:
		case <-time.After(5 * time.Second):
			t.Fatalf("group B starved in round %d, status %+v", round, fgm.Status())
		}
		fgm.ReleaseAccess(types.GroupB)
	}

	cancel()
	wg.Wait()
}

func TestFairGroupMutex_RequestAccessContext(t *testing.T) {
	t.Parallel()

	t.Run("admitted immediately", func(t *testing.T) {
		fgm := InitializeFairGroupMutex()
		require.NoError(t, fgm.RequestAccessContext(context.Background(), types.GroupA))
		assert.Equal(t, 1, fgm.Status().ActiveOf(types.GroupA))
		fgm.ReleaseAccess(types.GroupA)
	})

	t.Run("already cancelled", func(t *testing.T) {
		fgm := InitializeFairGroupMutex()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, fgm.RequestAccessContext(ctx, types.GroupA), context.Canceled)
		assert.Equal(t, types.Status{Turn: types.GroupA}, fgm.Status())
	})

	t.Run("deadline rolls back waiting count", func(t *testing.T) {
		fgm := InitializeFairGroupMutex()
		fgm.RequestAccess(types.GroupA)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		err := fgm.RequestAccessContext(ctx, types.GroupB)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		st := fgm.Status()
		assert.Equal(t, 0, st.WaitingOf(types.GroupB))
		assert.Equal(t, 0, st.ActiveOf(types.GroupB))
		assert.Zero(t, st.Admitted[types.GroupB.Index()])

		// with nobody from B waiting, a second A worker is no longer held back.
		fgm.RequestAccess(types.GroupA)
		assert.Equal(t, 2, fgm.Status().ActiveOf(types.GroupA))
	})

	t.Run("cancelled waiter wakes yielding opponents", func(t *testing.T) {
		fgm := InitializeFairGroupMutex()
		fgm.RequestAccess(types.GroupA)

		ctx, cancel := context.WithCancel(context.Background())
		errB := make(chan error, 1)
		go func() {
			errB <- fgm.RequestAccessContext(ctx, types.GroupB)
		}()
		waitingEventually(t, fgm, types.GroupB, 1)

		secondA := requestAsync(fgm, types.GroupA)
		waitingEventually(t, fgm, types.GroupA, 1)

		cancel()
		assert.ErrorIs(t, <-errB, context.Canceled)

		select {
		case <-secondA:
		case <-time.After(waitFor):
			t.Fatal("second A worker stayed blocked after the B waiter left")
		}
		assert.Equal(t, 2, fgm.Status().ActiveOf(types.GroupA))
	})
}

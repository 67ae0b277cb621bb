package groupmutex

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/benbjohnson/clock"
)

/*
a fair two-group mutex. Any number of workers of one group may hold the resource together, never alongside the other group.
If the other group has workers waiting, newcomers of the holding group wait too, and the turn passes to the other group once the holding group drains.
*/
type FairGroupMutex struct {
	mu       sync.Mutex
	condVars [2]*sync.Cond // one wait queue per group, both bound to mu.

	groups [2]groupState
	turn   types.Group // group favoured when both sides are contending.

	admitted [2]uint64
	released [2]uint64

	observers []types.StatusObserver
	clk       clock.Clock
}

// per-group counters, only touched while holding mu.
type groupState struct {
	active  int
	waiting int
}

func InitializeFairGroupMutex(opts ...Option) *FairGroupMutex {

	fgm := &FairGroupMutex{turn: types.GroupA}
	for i := range fgm.condVars {
		fgm.condVars[i] = sync.NewCond(&fgm.mu)
	}
	for _, opt := range opts {
		opt(fgm)
	}
	if fgm.clk == nil {
		fgm.clk = clock.New()
	}
	mustBeValid(fgm.turn)

	return fgm
}

// RequestAccess blocks until a worker of group g may use the resource.
func (fgm *FairGroupMutex) RequestAccess(g types.Group) {

	mustBeValid(g)

	fgm.mu.Lock()
	defer fgm.mu.Unlock()

	fgm.groups[g.Index()].waiting++

	for !fgm.admissible(g) {
		fgm.condVars[g.Index()].Wait()
	}

	fgm.admit(g)
}

/*
RequestAccessContext behaves like RequestAccess, but gives up when ctx is done.
On cancellation the waiting count is rolled back and ctx.Err() is returned; the caller holds nothing.
If the worker becomes admissible at the same moment the context ends, admission wins.
*/
func (fgm *FairGroupMutex) RequestAccessContext(ctx context.Context, g types.Group) error {

	mustBeValid(g)

	if err := ctx.Err(); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		fgm.mu.Lock()
		fgm.condVars[g.Index()].Broadcast()
		fgm.mu.Unlock()
	})
	defer stop()

	fgm.mu.Lock()
	defer fgm.mu.Unlock()

	fgm.groups[g.Index()].waiting++

	for !fgm.admissible(g) {

		if err := ctx.Err(); err != nil {
			fgm.groups[g.Index()].waiting--
			// one waiter less may lift the other group's obligation to yield.
			fgm.condVars[g.Opposite().Index()].Broadcast()
			return err
		}
		fgm.condVars[g.Index()].Wait()
	}

	fgm.admit(g)
	return nil
}

// ReleaseAccess hands back a slot obtained by a matching RequestAccess. It never blocks.
func (fgm *FairGroupMutex) ReleaseAccess(g types.Group) {

	mustBeValid(g)

	fgm.mu.Lock()
	defer fgm.mu.Unlock()

	me := &fgm.groups[g.Index()]
	if me.active == 0 {
		panic(fmt.Sprintf("groupmutex: release of group %s with no active member", g))
	}

	me.active--
	fgm.released[g.Index()]++

	if me.active == 0 {
		fgm.turn = g.Opposite()

		// several waiters of either group may have become eligible at once.
		for _, cv := range fgm.condVars {
			cv.Broadcast()
		}
	}

	fgm.notify(g, types.ActionExited)
}

func (fgm *FairGroupMutex) Status() types.Status {

	fgm.mu.Lock()
	defer fgm.mu.Unlock()

	return fgm.snapshot()
}

// must be called with mu held and the predicate satisfied.
func (fgm *FairGroupMutex) admit(g types.Group) {

	me := &fgm.groups[g.Index()]
	me.waiting--
	me.active++
	fgm.admitted[g.Index()]++

	fgm.notify(g, types.ActionEntered)
}

func (fgm *FairGroupMutex) notify(g types.Group, action types.Action) {

	if len(fgm.observers) == 0 {
		return
	}

	event := types.StatusEvent{
		Group:  g,
		Action: action,
		Status: fgm.snapshot(),
		Time:   fgm.clk.Now(),
	}
	for _, obs := range fgm.observers {
		obs.OnTransition(event)
	}
}

func (fgm *FairGroupMutex) snapshot() types.Status {

	var st types.Status
	for i, gs := range fgm.groups {
		st.Active[i] = gs.active
		st.Waiting[i] = gs.waiting
	}
	st.Turn = fgm.turn
	st.Admitted = fgm.admitted
	st.Released = fgm.released

	return st
}

func mustBeValid(g types.Group) {

	if !g.Valid() {
		panic(fmt.Sprintf("groupmutex: invalid group %d", int(g)))
	}
}

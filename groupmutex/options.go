package groupmutex

import (
	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/benbjohnson/clock"
)

// Option is the type of a config option that can be passed to InitializeFairGroupMutex.
type Option func(*FairGroupMutex)

// WithInitialTurn sets the group favoured on the first tie. The default is types.GroupA.
func WithInitialTurn(g types.Group) Option {
	return func(fgm *FairGroupMutex) {
		fgm.turn = g
	}
}

// WithObserver registers observers notified after every ENTERED/EXITED transition.
func WithObserver(observers ...types.StatusObserver) Option {
	return func(fgm *FairGroupMutex) {
		fgm.observers = append(fgm.observers, observers...)
	}
}

// WithClock sets the clock used to timestamp status events.
// By default it's clock.New(); tests can pass a mock clock.
func WithClock(clk clock.Clock) Option {
	return func(fgm *FairGroupMutex) {
		fgm.clk = clk
	}
}

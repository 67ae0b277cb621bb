package server

import (
	"fmt"
	"io"
	"sync"

	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/gookit/color"
)

// ConsolePrinter writes one status line per transition, e.g.
//
//	[A] ENTERED | Active: (A:1, B:0) Waiting: (A:0, B:2)
type ConsolePrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func InitializeConsolePrinter(w io.Writer) *ConsolePrinter {
	return &ConsolePrinter{w: w}
}

func (cp *ConsolePrinter) OnTransition(event types.StatusEvent) {

	st := event.Status

	cp.mu.Lock()
	defer cp.mu.Unlock()

	fmt.Fprintf(cp.w, "%s %-7s | Active: (A:%d, B:%d) Waiting: (A:%d, B:%d)\n",
		groupTag(event.Group), event.Action,
		st.Active[0], st.Active[1],
		st.Waiting[0], st.Waiting[1],
	)
}

func groupTag(g types.Group) string {

	if g == types.GroupA {
		return color.Cyan.Sprintf("[%s]", g)
	}
	return color.Magenta.Sprintf("[%s]", g)
}

package server

import (
	"sync"

	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"go.uber.org/zap"
)

/*
StatusHub fans status events out to live subscribers (websocket clients).
It is registered as an observer on the fair group mutex, so OnTransition runs under the controller lock:
sends never block, a subscriber whose buffer is full misses the event.
*/
type StatusHub struct {
	RunId string

	mu          sync.Mutex // protects the remaining fields
	subscribers map[int]chan types.StatusEvent
	nextId      int
	bufferSize  int
	dropped     uint64
	closed      bool

	logger *zap.SugaredLogger
}

func InitializeStatusHub(runId string, bufferSize int, lgr *zap.SugaredLogger) *StatusHub {

	if bufferSize <= 0 {
		bufferSize = 64
	}
	if lgr == nil {
		lgr = zap.NewNop().Sugar()
	}

	return &StatusHub{
		RunId:       runId,
		subscribers: make(map[int]chan types.StatusEvent),
		bufferSize:  bufferSize,
		logger:      lgr,
	}
}

func (sh *StatusHub) OnTransition(event types.StatusEvent) {

	event.RunId = sh.RunId

	sh.mu.Lock()
	defer sh.mu.Unlock()

	for id, ch := range sh.subscribers {
		select {
		case ch <- event:
		default:
			sh.dropped++
			sh.logger.Debugf("subscriber %d is slow, dropped %s %s event", id, event.Group, event.Action)
		}
	}
}

// Subscribe registers a new listener. The channel is closed by Unsubscribe or Close.
func (sh *StatusHub) Subscribe() (int, <-chan types.StatusEvent) {

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.nextId++
	ch := make(chan types.StatusEvent, sh.bufferSize)
	if sh.closed {
		close(ch)
		return sh.nextId, ch
	}
	sh.subscribers[sh.nextId] = ch

	sh.logger.Debugf("subscriber %d joined, %d listening", sh.nextId, len(sh.subscribers))
	return sh.nextId, ch
}

func (sh *StatusHub) Unsubscribe(id int) {

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if ch, ok := sh.subscribers[id]; ok {
		delete(sh.subscribers, id)
		close(ch)
		sh.logger.Debugf("subscriber %d left, %d listening", id, len(sh.subscribers))
	}
}

// Close ends every subscription; later subscribers get a closed channel.
func (sh *StatusHub) Close() {

	sh.mu.Lock()
	defer sh.mu.Unlock()

	for id, ch := range sh.subscribers {
		delete(sh.subscribers, id)
		close(ch)
	}
	sh.closed = true
}

func (sh *StatusHub) Dropped() uint64 {

	sh.mu.Lock()
	defer sh.mu.Unlock()

	return sh.dropped
}

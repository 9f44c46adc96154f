// Package recognizer runs external analysis executables and turns their
// line-oriented output into progress, report text and segmentations.
package recognizer

import (
	"sync"

	"annorec/internal/segment"
)

// Host receives everything a recognizer session reports. Calls arrive through
// the session's Dispatcher, never directly from the reader goroutine unless
// the Inline dispatcher is used.
type Host interface {
	SetProgress(progress float32)
	SetProgressMessage(progress float32, message string)
	AppendToReport(text string)
	ErrorOccurred(message string)
	AddSegmentation(seg *segment.Segmentation)
}

// Dispatcher schedules host callbacks on whatever goroutine the host needs.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(fn func())

func (f DispatchFunc) Dispatch(fn func()) { f(fn) }

// Inline runs callbacks on the calling goroutine.
var Inline Dispatcher = DispatchFunc(func(fn func()) { fn() })

// EventQueue runs callbacks one at a time, in submission order, on a single
// goroutine of its own. Hosts that are not safe for concurrent use can share
// one queue across sessions.
type EventQueue struct {
	ch     chan func()
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewEventQueue starts a queue buffering up to size pending callbacks.
func NewEventQueue(size int) *EventQueue {
	q := &EventQueue{
		ch:   make(chan func(), max(1, size)),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *EventQueue) loop() {
	defer close(q.done)
	for fn := range q.ch {
		fn()
	}
}

// Dispatch enqueues fn. Callbacks submitted after Close are dropped.
func (q *EventQueue) Dispatch(fn func()) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	q.ch <- fn
}

// Close stops accepting callbacks and waits until the queued ones ran.
func (q *EventQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
}

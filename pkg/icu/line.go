package icu

import (
	"sync"
	"sync/atomic"
	"time"

	"usdist/pkg/port"
)

// LineTimer is a capture unit driven by the edge events of a GPIO line.
//
// The line reports every edge with a timestamp. LineTimer keeps a software
// counter relative to the last ClearCounter, latches it when an edge of the
// selected type arrives and calls the handler from its own goroutine. Edges
// of the other type are ignored, exactly as a hardware capture unit does not
// fire on them.
type LineTimer struct {
	// rx is the channel to receive the line events
	rx <-chan port.Event

	// enabled is set by Init; events before are dropped
	enabled atomic.Bool
	// tick is the duration of one counter tick in nanoseconds
	tick atomic.Int64
	// edge is the edge that triggers the next capture
	edge atomic.Int32

	// base is the timestamp of counter zero
	base atomic.Int64
	// current is the timestamp of the capture being handled
	current  atomic.Int64
	captured atomic.Uint32

	// cl protects the callback slot
	cl       sync.Mutex
	callback func()

	// quit stops the run loop
	quit chan struct{}
	// done signals that the run loop is stopped
	done chan struct{}
	once sync.Once
}

// NewLineTimer creates a capture unit listening on rx and starts its
// capture goroutine. Capturing begins with Init.
func NewLineTimer(rx <-chan port.Event) *LineTimer {
	t := &LineTimer{
		rx:   rx,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go t.run()
	return t
}

// Init implements Timer.
func (t *LineTimer) Init(cfg Config) {
	t.tick.Store(int64(cfg.Tick()))
	t.edge.Store(int32(cfg.Edge))
	t.enabled.Store(true)
}

// SetCallback implements Timer.
func (t *LineTimer) SetCallback(handler func()) {
	t.cl.Lock()
	t.callback = handler
	t.cl.Unlock()
}

// ClearCounter implements Timer. Called from a handler, counter zero is the
// timestamp of the edge being handled.
func (t *LineTimer) ClearCounter() {
	t.base.Store(t.current.Load())
}

// SetEdge implements Timer.
func (t *LineTimer) SetEdge(edge port.Edge) {
	t.edge.Store(int32(edge))
}

// CapturedValue implements Timer.
func (t *LineTimer) CapturedValue() uint16 {
	return uint16(t.captured.Load())
}

// Close stops the capture goroutine and waits until it is terminated.
// The event source is not closed.
func (t *LineTimer) Close() error {
	t.once.Do(func() { close(t.quit) })
	<-t.done
	return nil
}

// run receives line events until Close is called or the event channel is closed.
func (t *LineTimer) run() {
	defer close(t.done)

	for {
		select {
		case <-t.quit:
			return
		case evt, open := <-t.rx:
			if !open {
				return
			}

			t.capture(evt)
		}
	}
}

// capture latches the counter for a matching edge and calls the handler.
func (t *LineTimer) capture(evt port.Event) {
	if !t.enabled.Load() {
		return
	}

	edge := port.Edge(t.edge.Load())
	if edge != port.EdgeBoth && edge != evt.Type {
		return
	}

	t.current.Store(int64(evt.Timestamp))
	t.captured.Store(uint32(t.counterAt(evt.Timestamp)))

	t.cl.Lock()
	cb := t.callback
	t.cl.Unlock()

	if cb != nil {
		cb()
	}
}

// counterAt returns the 16-bit counter value at timestamp ts.
// The counter wraps around like the hardware register it models.
func (t *LineTimer) counterAt(ts time.Duration) uint16 {
	tick := t.tick.Load()
	if tick <= 0 {
		return 0
	}

	return uint16((int64(ts) - t.base.Load()) / tick)
}

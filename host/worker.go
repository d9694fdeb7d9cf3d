// Package host drives engines: a worker goroutine that owns each engine and
// a console loop that feeds it bursts, input and events.
package host

import (
	"fmt"

	"github.com/chazu/superbasic/vm"
)

// request represents a unit of work to be executed on the engine goroutine.
type request struct {
	fn   func(*vm.Engine) interface{}
	done chan result // nil for posted work
}

// result holds the return value from an engine operation.
type result struct {
	value interface{}
	err   error
}

// Worker serializes all engine access through a single goroutine. The
// engine is single-writer; hosts, library timers and the LSP must all go
// through the worker to avoid data races.
type Worker struct {
	engine   *vm.Engine
	requests chan request
	posted   chan struct{}
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine. The
// engine is attached later with Attach, because library collections need
// the worker's Post before the engine can be built.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan request, 64),
		posted:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			res := w.execute(req.fn)
			if req.done != nil {
				req.done <- res
				continue
			}
			if res.err != nil {
				logger.Errorf("posted work failed: %v", res.err)
			}
			select {
			case w.posted <- struct{}{}:
			default:
			}
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the engine, recovering from panics.
func (w *Worker) execute(fn func(*vm.Engine) interface{}) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn(w.engine)
	}()
	return res
}

// Attach sets the engine later requests operate on.
func (w *Worker) Attach(e *vm.Engine) {
	w.Do(func(*vm.Engine) interface{} {
		w.engine = e
		return nil
	})
}

// Do submits a function for execution on the engine goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*vm.Engine) interface{}) (interface{}, error) {
	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
}

// Post queues fn to run on the engine goroutine without waiting for it.
// Library event sources use it as their dispatcher; Posted fires after each
// posted function has run.
func (w *Worker) Post(fn func()) {
	req := request{fn: func(*vm.Engine) interface{} {
		fn()
		return nil
	}}
	select {
	case w.requests <- req:
	case <-w.quit:
	}
}

// Posted signals that posted work has run since the last receive.
func (w *Worker) Posted() <-chan struct{} {
	return w.posted
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}

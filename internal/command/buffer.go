package command

import "sync"

// Buffer is an unbounded single-consumer FIFO of deferred commands.
//
// Push is safe from any goroutine. A dedicated worker, started by New, drains
// the queue in submission order. Stop drains the queue to quiescence and
// joins the worker; commands pushed after Stop are dropped.
//
// Thread Safety:
//   - Push and Stop are safe for concurrent use.
//   - Commands execute exclusively on the worker goroutine.
type Buffer struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	queue    []func()
	stopped  bool
	done     chan struct{}
}

// New creates a Buffer and starts its worker goroutine.
func New() *Buffer {
	b := &Buffer{
		done: make(chan struct{}),
	}
	b.notEmpty = sync.NewCond(&b.mu)

	go b.run()

	return b
}

// Push enqueues a command for execution on the worker. It never blocks beyond
// the enqueue itself. Pushing a nil command or pushing after Stop is a no-op.
func (b *Buffer) Push(cmd func()) {
	if cmd == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	b.queue = append(b.queue, cmd)
	b.notEmpty.Signal()
}

// Stop drains all pending commands and joins the worker. It is idempotent and
// must not be called from within a command (that would deadlock the drain).
func (b *Buffer) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.stopped = true
	b.notEmpty.Signal()
	b.mu.Unlock()

	<-b.done
}

// run is the worker loop: dequeue one command at a time and execute it with
// no lock held, so commands may Push further commands.
func (b *Buffer) run() {
	defer close(b.done)

	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.stopped {
			b.notEmpty.Wait()
		}
		if len(b.queue) == 0 && b.stopped {
			b.mu.Unlock()
			return
		}
		cmd := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		cmd()
	}
}

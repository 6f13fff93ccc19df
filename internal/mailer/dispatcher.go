package mailer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

// Dispatcher queues messages and sends them from background workers.
type Dispatcher struct {
	sender  Sender
	logger  *zap.Logger
	observe func(outcome string)

	queue   chan Message
	workers int
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewDispatcher creates a dispatcher. observe may be nil.
func NewDispatcher(sender Sender, logger *zap.Logger, workers, queueSize int, observe func(outcome string)) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if observe == nil {
		observe = func(string) {}
	}
	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		observe: observe,
		queue:   make(chan Message, queueSize),
		workers: workers,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Enqueue hands a message to the workers without blocking. It returns false
// when the queue is full or the dispatcher has stopped.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		d.observe("dropped")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.observe("dropped")
		d.logger.Warn("email queue full, dropping message", zap.String("to", msg.To))
		return false
	}
}

// Stop closes the queue and waits for queued messages to be sent.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		d.Start()
	}
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.sender.Send(ctx, msg)
		cancel()
		if err != nil {
			d.observe("failed")
			d.logger.Error("failed to send email", zap.String("to", msg.To), zap.Error(err))
			continue
		}
		d.observe("sent")
	}
}

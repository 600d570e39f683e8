// Package notify delivers progress and result messages to users.
//
// Delivery is best-effort. A Dispatcher queues messages and sends them from
// its own goroutine, so a slow or failing Notifier never holds up a run.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Notifier sends one message to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// Sender is what the workflow talks to. Send must not block.
type Sender interface {
	Send(userID, message string)
}

// Compile-time interface compliance checks.
var (
	_ Notifier = (*WriterNotifier)(nil)
	_ Notifier = Discard{}
	_ Sender   = (*Dispatcher)(nil)
)

// ---------------------------------------------------------------------------
// Notifiers
// ---------------------------------------------------------------------------

// WriterNotifier writes "[user] message" lines to w.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a WriterNotifier.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements Notifier.
func (n *WriterNotifier) Notify(_ context.Context, userID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "[%s] %s\n", userID, message)
	return err
}

// Discard drops every message.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, string, string) error { return nil }

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 10 * time.Second
)

type message struct {
	userID string
	text   string
}

// Dispatcher queues messages for a Notifier.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	onDrop   func()

	queue chan message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets how many messages may wait before Send starts dropping.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan message, n)
		}
	}
}

// WithSendTimeout bounds each Notify call.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger receiving delivery failures.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDropHook is called each time a message is dropped.
func WithDropHook(fn func()) DispatcherOption {
	return func(d *Dispatcher) { d.onDrop = fn }
}

// NewDispatcher starts a Dispatcher delivering to n. Call Close to stop it.
func NewDispatcher(n Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier: n,
		logger:   slog.New(slog.DiscardHandler),
		timeout:  defaultSendTimeout,
		queue:    make(chan message, defaultQueueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.loop()
	return d
}

// Send queues a message. When the queue is full or the dispatcher is
// closed, the message is dropped and logged.
func (d *Dispatcher) Send(userID, text string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(userID, "dispatcher closed")
		return
	}
	select {
	case d.queue <- message{userID: userID, text: text}:
	default:
		d.drop(userID, "queue full")
	}
}

// Close stops accepting messages and waits until queued ones are delivered
// or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for m := range d.queue {
		d.deliver(m)
	}
}

func (d *Dispatcher) deliver(m message) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("notifier panicked", "user_id", m.userID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, m.userID, m.text); err != nil {
		d.logger.Warn("notification not delivered", "user_id", m.userID, "error", err)
	}
}

func (d *Dispatcher) drop(userID, reason string) {
	d.logger.Warn("notification dropped", "user_id", userID, "reason", reason)
	if d.onDrop != nil {
		d.onDrop()
	}
}

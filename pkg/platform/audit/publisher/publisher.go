// Package publisher provides the default audit publisher backed by an audit
// store. It runs synchronously unless an async buffer is configured, in which
// case events are drained by a background goroutine and Close flushes the
// remainder.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "docgate/pkg/platform/audit"
	"docgate/pkg/requestcontext"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox  chan audit.Event
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity. Emit never blocks; events are dropped (and logged)
// when the buffer is full. Compliance events are exempt: they are always
// appended synchronously, since the compliance trail must not be lossy.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event. Missing timestamps and request IDs are filled
// from the context so call sites stay small.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil || event.Category == audit.CategoryCompliance {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, dropping event",
				"action", event.Action,
				"case_id", event.CaseID,
			)
		}
		return nil
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.inbox:
			p.append(event)
		case <-p.done:
			for {
				select {
				case event := <-p.inbox:
					p.append(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) append(event audit.Event) {
	if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
		p.logger.Error("failed to persist audit event",
			"action", event.Action,
			"case_id", event.CaseID,
			"error", err,
		)
	}
}

// Close flushes buffered events and stops the background drain.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

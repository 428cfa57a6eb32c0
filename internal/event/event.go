// Package event is an in-process publish/subscribe bus for domain events.
package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultConcurrency = 64
	defaultTimeout     = 30 * time.Second
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Bus dispatches every published event to its subscriptions. Each
// subscription runs on its own bounded set of slots, so a slow handler only
// delays its own backlog.
type Bus struct {
	wg   sync.WaitGroup
	mu   sync.RWMutex
	subs map[string][]*subscription
}

type subscription struct {
	label   string
	handler Handler
	slots   chan struct{}
	timeout time.Duration
}

type Option func(*subscription)

// WithConcurrency caps how many events the handler processes at once.
func WithConcurrency(n int) Option {
	return func(s *subscription) {
		if n > 0 {
			s.slots = make(chan struct{}, n)
		}
	}
}

// WithTimeout bounds a single handler call.
func WithTimeout(d time.Duration) Option {
	return func(s *subscription) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLabel names the handler in logs.
func WithLabel(label string) Option {
	return func(s *subscription) { s.label = label }
}

// NewBus creates a bus. Call Stop on shutdown to wait for in-flight handlers.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

func (b *Bus) Subscribe(name string, h Handler, opts ...Option) {
	s := &subscription{
		label:   name,
		handler: h,
		slots:   make(chan struct{}, defaultConcurrency),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], s)
}

// Publish hands e to every subscription and returns without waiting for a slot.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs[e.Name()] {
		b.wg.Add(1)
		go b.run(context.WithoutCancel(ctx), s, e)
	}
}

func (b *Bus) run(ctx context.Context, s *subscription, e Event) {
	defer b.wg.Done()

	s.slots <- struct{}{}
	defer func() { <-s.slots }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Err(fmt.Errorf("%v, stack: %s", r, debug.Stack())).
				Str("event", e.Name()).
				Str("handler", s.label).
				Msg("event: handler panic")
		}
	}()

	if err := s.handler(ctx, e); err != nil {
		log.Error().Err(err).Str("event", e.Name()).Str("handler", s.label).Msg("event: handle event failed")
	}
}

// Stop waits for every published event to be handled.
func (b *Bus) Stop() {
	b.wg.Wait()
}

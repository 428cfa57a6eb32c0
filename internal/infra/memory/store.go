package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"live-quiz-service/internal/store"
)

// Store is an in-process implementation of store.Store. With a TTL, records
// expire per store.Bucket the same way the Redis store's keys do.
type Store struct {
	mu          sync.RWMutex
	records     map[string][]byte
	expires     map[string]time.Time
	ttl         time.Duration
	now         func() time.Time
	lastSweep   time.Time
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	path string
	ch   chan store.Event
}

type Option func(*Store)

// WithTTL expires a bucket ttl after its last write. Zero keeps records forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock replaces time.Now for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		records:     make(map[string][]byte),
		expires:     make(map[string]time.Time),
		now:         time.Now,
		subscribers: make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[path]
	if !ok || !s.liveLocked(path, s.now()) {
		return nil, store.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *Store) Set(_ context.Context, path string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(path, value)
	return nil
}

func (s *Store) SetIfAbsent(_ context.Context, path string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[path]; ok && s.liveLocked(path, s.now()) {
		return false, nil
	}
	s.writeLocked(path, value)
	return true, nil
}

func (s *Store) Children(_ context.Context, path string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make(map[string][]byte)
	for p, v := range s.records {
		parent, name := store.Split(p)
		if parent == path && s.liveLocked(p, now) {
			out[name] = slices.Clone(v)
		}
	}
	return out, nil
}

// Len reports how many records are held, expired ones not yet swept included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) writeLocked(path string, value []byte) {
	now := s.now()
	s.records[path] = slices.Clone(value)
	if s.ttl > 0 {
		s.expires[store.Bucket(path)] = now.Add(s.ttl)
		s.sweepLocked(now)
	}
	s.broadcastLocked(path)
}

func (s *Store) liveLocked(path string, now time.Time) bool {
	if s.ttl <= 0 {
		return true
	}
	exp, ok := s.expires[store.Bucket(path)]
	return !ok || now.Before(exp)
}

// sweepLocked drops expired records, at most once per tenth of the TTL.
func (s *Store) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.ttl/10 {
		return
	}
	s.lastSweep = now
	for p := range s.records {
		if !s.liveLocked(p, now) {
			delete(s.records, p)
		}
	}
	for bucket, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, bucket)
		}
	}
}

func (s *Store) Subscribe(ctx context.Context, path string) (<-chan store.Event, func(), error) {
	sub := &subscriber{path: path, ch: make(chan store.Event, 8)}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	sub.ch <- store.Event{Path: path}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, sub)
			close(sub.ch)
			s.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)

	return sub.ch, func() {
		stop()
		unsubscribe()
	}, nil
}

// Subscribers returns the watched paths of live subscriptions.
func (s *Store) Subscribers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.subscribers))
	for sub := range s.subscribers {
		out = append(out, sub.path)
	}
	slices.Sort(out)
	return out
}

func (s *Store) broadcastLocked(path string) {
	ev := store.Event{Path: path}
	for sub := range s.subscribers {
		if !store.Covers(sub.path, path) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Drop the oldest pending event so a slow reader never blocks writers.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- ev
		}
	}
}

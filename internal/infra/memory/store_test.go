package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/store"
	"live-quiz-service/internal/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return NewStore()
	})
}

func TestStoreCancelRemovesSubscriber(t *testing.T) {
	s := NewStore()

	_, cancel, err := s.Subscribe(context.Background(), "sessions/s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got := s.Subscribers(); len(got) != 1 || got[0] != "sessions/s1" {
		t.Fatalf("expected one subscriber, got %v", got)
	}

	cancel()
	cancel()
	if got := s.Subscribers(); len(got) != 0 {
		t.Fatalf("expected subscriber removed, got %v", got)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.Set(ctx, "sessions/s1", []byte("abc")); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, _ := s.Get(ctx, "sessions/s1")
	got[0] = 'z'

	again, _ := s.Get(ctx, "sessions/s1")
	if string(again) != "abc" {
		t.Fatalf("expected stored value untouched, got %q", again)
	}
}

func TestStoreExpiresIdleBuckets(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	s := NewStore(WithTTL(24*time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for _, path := range []string{"sessions/old", "sessionCodes/111111", "participants/old/p1"} {
		if err := s.Set(ctx, path, []byte("x")); err != nil {
			t.Fatalf("set %s: %v", path, err)
		}
	}

	for i := 0; i < 6; i++ {
		now = now.Add(12 * time.Hour)
		for _, path := range []string{"sessions/new", "participants/new/p1"} {
			if err := s.Set(ctx, path, []byte("y")); err != nil {
				t.Fatalf("set %s: %v", path, err)
			}
		}
	}

	for _, path := range []string{"sessions/old", "sessionCodes/111111", "participants/old/p1"} {
		if _, err := s.Get(ctx, path); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected %s expired, got %v", path, err)
		}
	}
	if got, _ := s.Children(ctx, "participants/old"); len(got) != 0 {
		t.Fatalf("expected no participants left, got %v", got)
	}
	if _, err := s.Get(ctx, "sessions/new"); err != nil {
		t.Fatalf("expected live session kept, got %v", err)
	}
	if n := s.Len(); n != 2 {
		t.Fatalf("expected expired records swept, %d left", n)
	}

	ok, err := s.SetIfAbsent(ctx, "sessionCodes/111111", []byte("next"))
	if err != nil || !ok {
		t.Fatalf("expected expired code reusable: ok=%v err=%v", ok, err)
	}
}

func TestStoreWithoutTTLKeepsRecords(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if err := s.Set(ctx, "sessions/s1", []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(365 * 24 * time.Hour)
	if _, err := s.Get(ctx, "sessions/s1"); err != nil {
		t.Fatalf("expected record kept, got %v", err)
	}
}

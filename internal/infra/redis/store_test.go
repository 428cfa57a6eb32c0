package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"live-quiz-service/internal/store"
	"live-quiz-service/internal/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		mr := miniredis.RunT(t)
		return NewStore(newClient(mr), "test", time.Minute)
	})
}

func TestStoreLayoutAndTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	s := NewStore(newClient(mr), "lq", time.Minute)
	ctx := context.Background()

	if err := s.Set(ctx, "participants/s1/p1", []byte(`{"id":"p1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := mr.HGet("lq:participants/s1", "p1"); got != `{"id":"p1"}` {
		t.Fatalf("expected participant stored as hash field, got %q", got)
	}
	if ttl := mr.TTL("lq:participants/s1"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %s", ttl)
	}

	if err := s.Set(ctx, "sessions/s1", []byte(`{"id":"s1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := mr.Get("lq:sessions/s1"); err != nil || got != `{"id":"s1"}` {
		t.Fatalf("expected session stored under its own key, got %q (%v)", got, err)
	}
	if ttl := mr.TTL("lq:sessions/s1"); ttl != time.Minute {
		t.Fatalf("expected session ttl 1m, got %s", ttl)
	}

	ok, err := s.SetIfAbsent(ctx, "sessionCodes/123456", []byte("s1"))
	if err != nil || !ok {
		t.Fatalf("setnx: ok=%v err=%v", ok, err)
	}
	if got, err := mr.Get("lq:sessionCodes/123456"); err != nil || got != "s1" {
		t.Fatalf("expected code mapping, got %q (%v)", got, err)
	}
	if ttl := mr.TTL("lq:sessionCodes/123456"); ttl != time.Minute {
		t.Fatalf("expected code ttl 1m, got %s", ttl)
	}

	sessions, err := s.Children(ctx, "sessions")
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(sessions) != 1 || string(sessions["s1"]) != `{"id":"s1"}` {
		t.Fatalf("unexpected sessions %v", sessions)
	}
}

func TestStoreExpiresIdleSessionsWhileOthersWrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	s := NewStore(newClient(mr), "lq", 24*time.Hour)
	ctx := context.Background()

	for _, path := range []string{"sessions/old", "participants/old/p1"} {
		if err := s.Set(ctx, path, []byte("x")); err != nil {
			t.Fatalf("set %s: %v", path, err)
		}
	}
	if ok, err := s.SetIfAbsent(ctx, "sessionCodes/111111", []byte("old")); err != nil || !ok {
		t.Fatalf("setnx: ok=%v err=%v", ok, err)
	}

	for i := 0; i < 6; i++ {
		mr.FastForward(12 * time.Hour)
		for _, path := range []string{"sessions/new", "participants/new/p1", "sessionCodes/222222"} {
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
	if got, err := s.Children(ctx, "participants/old"); err != nil || len(got) != 0 {
		t.Fatalf("expected no participants left for old session, got %v (%v)", got, err)
	}
	if _, err := s.Get(ctx, "sessions/new"); err != nil {
		t.Fatalf("expected active session kept, got %v", err)
	}

	// The expired code can be handed out again.
	ok, err := s.SetIfAbsent(ctx, "sessionCodes/111111", []byte("next"))
	if err != nil || !ok {
		t.Fatalf("expected expired code reusable: ok=%v err=%v", ok, err)
	}
}

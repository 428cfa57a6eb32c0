// Package storetest holds behaviour tests shared by every store.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/store"
)

const waitFor = 2 * time.Second

// Run exercises s against the store.Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "sessions/nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "sessions/s1", []byte(`{"id":"s1"}`)))
		require.NoError(t, s.Set(ctx, "sessions/s1", []byte(`{"id":"s1","status":"active"}`)))

		got, err := s.Get(ctx, "sessions/s1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"s1","status":"active"}`, string(got))
	})

	t.Run("set if absent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ok, err := s.SetIfAbsent(ctx, "sessionCodes/123456", []byte("s1"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetIfAbsent(ctx, "sessionCodes/123456", []byte("s2"))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Get(ctx, "sessionCodes/123456")
		require.NoError(t, err)
		assert.Equal(t, "s1", string(got))
	})

	t.Run("children", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "participants/s1/p1", []byte("1")))
		require.NoError(t, s.Set(ctx, "participants/s1/p2", []byte("2")))
		require.NoError(t, s.Set(ctx, "participants/s2/p3", []byte("3")))

		got, err := s.Children(ctx, "participants/s1")
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"p1": []byte("1"), "p2": []byte("2")}, got)

		got, err = s.Children(ctx, "participants/none")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("subscribe sees writes below the path", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ch, cancel, err := s.Subscribe(ctx, "participants/s1")
		require.NoError(t, err)
		defer cancel()

		require.Equal(t, store.Event{Path: "participants/s1"}, next(t, ch), "initial event")

		require.NoError(t, s.Set(ctx, "participants/s2/p9", []byte("x")))
		require.NoError(t, s.Set(ctx, "participants/s1/p1", []byte("x")))
		assert.Equal(t, store.Event{Path: "participants/s1/p1"}, next(t, ch))
	})

	t.Run("slow subscriber keeps latest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ch, cancel, err := s.Subscribe(ctx, "sessions/s1")
		require.NoError(t, err)
		defer cancel()

		for i := 0; i < 50; i++ {
			require.NoError(t, s.Set(ctx, "sessions/s1", []byte{byte(i)}))
		}

		var last store.Event
		deadline := time.After(waitFor)
	drain:
		for {
			select {
			case ev := <-ch:
				last = ev
			case <-time.After(200 * time.Millisecond):
				break drain
			case <-deadline:
				break drain
			}
		}
		assert.Equal(t, "sessions/s1", last.Path)

		got, err := s.Get(ctx, "sessions/s1")
		require.NoError(t, err)
		assert.Equal(t, []byte{49}, got)
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		s := newStore(t)
		ctx, stop := context.WithCancel(context.Background())

		ch, cancel, err := s.Subscribe(ctx, "sessions/s1")
		require.NoError(t, err)
		defer cancel()
		next(t, ch)

		stop()
		assertClosed(t, ch)
		cancel()
	})
}

func next(t *testing.T, ch <-chan store.Event) store.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(waitFor):
		t.Fatalf("no event within %s", waitFor)
		return store.Event{}
	}
}

func assertClosed(t *testing.T, ch <-chan store.Event) {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatalf("subscription not closed within %s", waitFor)
		}
	}
}

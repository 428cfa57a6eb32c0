package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/store"
)

// Store implements store.Store on Redis. Each expiry bucket (see
// store.Bucket) is one key with its own TTL: top level records are plain
// strings and participant records are fields of one hash per session, so
// Children of a session is a single HGETALL. Writes publish the record path
// on a change channel that subscribers pattern-match.
//
//	SET     {prefix}:sessions/{id} {value} EX {ttl}
//	HSET    {prefix}:participants/{sid} {pid} {value} + EXPIRE {ttl}
//	PUBLISH {prefix}:changes:{path} {path}
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "livequiz"
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	key, field := s.locate(path)
	var cmd *redis.StringCmd
	if field == "" {
		cmd = s.client.Get(ctx, key)
	} else {
		cmd = s.client.HGet(ctx, key, field)
	}
	v, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", path, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	key, field := s.locate(path)
	pipe := s.client.TxPipeline()
	if field == "" {
		pipe.Set(ctx, key, value, s.ttl)
	} else {
		pipe.HSet(ctx, key, field, value)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	pipe.Publish(ctx, s.changes(path), path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set %s: %w", path, err)
	}
	return nil
}

func (s *Store) SetIfAbsent(ctx context.Context, path string, value []byte) (bool, error) {
	key, field := s.locate(path)
	var (
		ok  bool
		err error
	)
	if field == "" {
		ok, err = s.client.SetNX(ctx, key, value, s.ttl).Result()
	} else {
		ok, err = s.client.HSetNX(ctx, key, field, value).Result()
	}
	if err != nil {
		return false, fmt.Errorf("redis: setnx %s: %w", path, err)
	}
	if !ok {
		return false, nil
	}

	pipe := s.client.Pipeline()
	if field != "" && s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	pipe.Publish(ctx, s.changes(path), path)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis: notify %s: %w", path, err)
	}
	return true, nil
}

func (s *Store) Children(ctx context.Context, path string) (map[string][]byte, error) {
	if store.Bucket(path+"/_") != path {
		return s.scanChildren(ctx, path)
	}
	all, err := s.client.HGetAll(ctx, s.key(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: children %s: %w", path, err)
	}
	out := make(map[string][]byte, len(all))
	for name, v := range all {
		out[name] = []byte(v)
	}
	return out, nil
}

// scanChildren lists top level records, which are separate keys. Keys that
// expire between SCAN and MGET are skipped.
func (s *Store) scanChildren(ctx context.Context, path string) (map[string][]byte, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.key(path)+"/*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scan %s: %w", path, err)
	}

	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: children %s: %w", path, err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		parent, name := store.Split(strings.TrimPrefix(keys[i], s.prefix+":"))
		if parent != path {
			continue
		}
		out[name] = []byte(raw)
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (<-chan store.Event, func(), error) {
	ps := s.client.PSubscribe(ctx, s.changes(path), s.changes(path)+"/*")
	// One confirmation per pattern; after both, no write can be missed.
	for i := 0; i < 2; i++ {
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, nil, fmt.Errorf("redis: subscribe %s: %w", path, err)
		}
	}

	out := make(chan store.Event, 8)
	out <- store.Event{Path: path}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				deliverLatest(out, store.Event{Path: msg.Payload})
			}
		}
	}()

	return out, cancel, nil
}

func deliverLatest(ch chan store.Event, ev store.Event) {
	select {
	case ch <- ev:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
}

// locate returns the key holding path, and the hash field when the record
// shares its bucket with siblings.
func (s *Store) locate(path string) (key, field string) {
	bucket := store.Bucket(path)
	if bucket == path {
		return s.key(path), ""
	}
	_, name := store.Split(path)
	return s.key(bucket), name
}

func (s *Store) key(path string) string {
	return s.prefix + ":" + path
}

func (s *Store) changes(path string) string {
	return s.prefix + ":changes:" + path
}

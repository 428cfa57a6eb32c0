// Package store defines the shared realtime data store the service runs on.
//
// Records live at slash separated paths:
//
//	sessions/{sessionId}                      session JSON
//	sessionCodes/{code}                       session id
//	participants/{sessionId}/{participantId}  participant JSON
//
// Subscribers to a path are notified of writes to the path and to every path
// below it.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for paths that hold no record.
var ErrNotFound = stderrors.New("store: not found")

// Event reports that the record at Path was written.
type Event struct {
	Path string
}

type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, value []byte) error
	// SetIfAbsent writes value only when path holds no record and reports whether it wrote.
	SetIfAbsent(ctx context.Context, path string, value []byte) (bool, error)
	// Children returns the records directly below path keyed by their last path segment.
	Children(ctx context.Context, path string) (map[string][]byte, error)
	// Subscribe delivers one event immediately and then one per write at or
	// below path. Slow readers lose intermediate events but always see the
	// latest one. The channel closes when ctx is done or cancel is called.
	Subscribe(ctx context.Context, path string) (<-chan Event, func(), error)
}

func SessionPath(sessionID string) string {
	return "sessions/" + sessionID
}

func CodePath(code string) string {
	return "sessionCodes/" + code
}

func ParticipantsPath(sessionID string) string {
	return "participants/" + sessionID
}

func ParticipantPath(sessionID, participantID string) string {
	return ParticipantsPath(sessionID) + "/" + participantID
}

// Split returns the parent path and last segment of path.
func Split(path string) (parent, name string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Bucket returns the path that owns the expiry of path. Top level records
// such as sessions/{id} and sessionCodes/{code} are their own bucket;
// deeper records share their parent, so one session's participants expire
// together.
func Bucket(path string) string {
	parent, _ := Split(path)
	if strings.Contains(parent, "/") {
		return parent
	}
	return path
}

// Covers reports whether a subscription to watched sees writes to path.
func Covers(watched, path string) bool {
	return path == watched || strings.HasPrefix(path, watched+"/")
}

func GetJSON(ctx context.Context, s Store, path string, v any) error {
	raw, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.Set(ctx, path, raw)
}

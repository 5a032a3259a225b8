package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by KV.Get for a key that was never set or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// KV is the device-local string key/value storage MindMate persists into.
// Implementations overwrite whole values and must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the KV backend for driver at path.
func Open(driver, path string) (KV, error) {
	switch driver {
	case DriverFile, "":
		return NewFileKV(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// Event represents a single completed exchange of a user and MindMate.
// A record combines the user's message and the reply that was shown.
// Events are expected to be appended in chronological order.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	UserID            int64     `json:"user_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Fallback          bool      `json:"fallback,omitempty"`
	Voice             bool      `json:"voice,omitempty"`
}

// Recorder persists exchanges and answers time-window queries over them.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(event Event) error
	// Between returns the events with from <= Timestamp < to.
	Between(from, to time.Time) ([]Event, error)
}

package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxEventLine = 10 << 20

// FileRecorder is an append-only JSON-lines log of exchanges.
type FileRecorder struct {
	mu   sync.Mutex
	path string
}

// NewFileRecorder creates path's directory; the log itself is created by the
// first Record.
func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create dir: %w", err)
	}
	return &FileRecorder{path: path}, nil
}

func (r *FileRecorder) Record(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("recorder: encode: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: open: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("recorder: write: %w", err)
	}
	return f.Close()
}

// Between returns the events with from <= Timestamp < to, in log order.
// A missing log is empty; lines that fail to decode are skipped.
func (r *FileRecorder) Between(from, to time.Time) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventLine)
	for sc.Scan() {
		var ev Event
		if json.Unmarshal(sc.Bytes(), &ev) != nil {
			continue
		}
		if ev.Timestamp.Before(from) || !ev.Timestamp.Before(to) {
			continue
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("recorder: scan: %w", err)
	}
	return events, nil
}

package speech

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Clip is one recorded utterance. Name carries the file name (and with it the
// audio format) the recognizer should report upstream.
type Clip struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// Recognizer turns a clip into its final transcript.
type Recognizer interface {
	Recognize(ctx context.Context, clip Clip) (string, error)
}

// Field is the text field a capture writes into.
type Field interface {
	Set(text string)
	SetReadOnly(readOnly bool)
}

var errStopped = errors.New("speech: capture stopped")

// Capture is the IDLE/RECORDING state machine around a Recognizer. A nil
// recognizer means the capability is unavailable and the capture never leaves
// IDLE.
type Capture struct {
	rec    Recognizer
	field  Field
	logger *zap.Logger

	mu     sync.Mutex
	state  State
	run    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCapture(rec Recognizer, field Field, logger *zap.Logger) *Capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	close(done)
	return &Capture{rec: rec, field: field, logger: logger, done: done}
}

func (c *Capture) Available() bool { return c.rec != nil }

func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns a channel closed when the current run returns to IDLE. While
// IDLE it returns an already closed channel.
func (c *Capture) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Start clears the field and begins recognising clip. It reports false, and
// does nothing, when the capability is unavailable or a run is in progress.
func (c *Capture) Start(ctx context.Context, clip Clip) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec == nil || c.state == Recording {
		return false
	}
	c.field.Set("")
	c.field.SetReadOnly(true)
	c.state = Recording
	c.run++
	c.done = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.recognize(runCtx, c.run, clip)
	return true
}

func (c *Capture) recognize(ctx context.Context, run uint64, clip Clip) {
	text, err := c.rec.Recognize(ctx, clip)
	c.finish(run, strings.TrimSpace(text), err)
}

// Stop ends the current run. A result arriving afterwards is dropped.
func (c *Capture) Stop() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	c.finish(run, "", errStopped)
}

func (c *Capture) finish(run uint64, text string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording || run != c.run {
		return
	}
	switch {
	case errors.Is(err, errStopped):
		c.logger.Debug("speech capture stopped")
	case err != nil:
		c.logger.Warn("speech recognition failed", zap.Error(err))
	default:
		c.field.Set(text)
	}
	c.cancel()
	c.cancel = nil
	c.state = Idle
	c.field.SetReadOnly(false)
	close(c.done)
}

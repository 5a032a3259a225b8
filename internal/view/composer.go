package view

import "sync"

// Composer is the chat text field. It is read-only to typed input while a
// speech capture is running; the capture itself writes through Set.
type Composer struct {
	mu       sync.Mutex
	text     string
	readOnly bool
}

func NewComposer() *Composer { return &Composer{} }

// Type replaces the text with typed input. It reports false while read-only.
func (c *Composer) Type(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readOnly {
		return false
	}
	c.text = text
	return true
}

func (c *Composer) Set(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

func (c *Composer) SetReadOnly(readOnly bool) {
	c.mu.Lock()
	c.readOnly = readOnly
	c.mu.Unlock()
}

func (c *Composer) ReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readOnly
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Take returns the text and clears the field.
func (c *Composer) Take() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.text
	c.text = ""
	return t
}

// Submit is Type followed by Take under one lock: it returns the typed text,
// leaving the field empty, or false while read-only.
func (c *Composer) Submit(text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readOnly {
		return "", false
	}
	c.text = ""
	return text, true
}

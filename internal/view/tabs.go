// Package view holds the front-end independent panel state: the active tab,
// the journal draft and the chat text field.
package view

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

type Tab string

const (
	TabChat      Tab = "chat"
	TabJournal   Tab = "journal"
	TabResources Tab = "resources"
	TabAbout     Tab = "about"
)

// Tabs lists every tab in navigation order.
var Tabs = []Tab{TabChat, TabJournal, TabResources, TabAbout}

var ErrUnknownTab = errors.New("view: unknown tab")

func ParseTab(s string) (Tab, error) {
	t := Tab(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tabs {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

func (t Tab) Title() string {
	switch t {
	case TabChat:
		return "Chat"
	case TabJournal:
		return "Journal"
	case TabResources:
		return "Resources"
	case TabAbout:
		return "About"
	}
	return string(t)
}

func (t Tab) index() int {
	for i, known := range Tabs {
		if t == known {
			return i
		}
	}
	return -1
}

// Controller tracks which single tab is visible. It starts on the chat tab.
type Controller struct {
	mu     sync.Mutex
	active Tab
}

func NewController() *Controller {
	return &Controller{active: TabChat}
}

func (c *Controller) Active() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) Switch(t Tab) error {
	if t.index() < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTab, t)
	}
	c.mu.Lock()
	c.active = t
	c.mu.Unlock()
	return nil
}

// Next and Prev cycle through Tabs, wrapping around.
func (c *Controller) Next() Tab { return c.step(1) }

func (c *Controller) Prev() Tab { return c.step(-1) }

func (c *Controller) step(d int) Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(Tabs)
	c.active = Tabs[((c.active.index()+d)%n+n)%n]
	return c.active
}

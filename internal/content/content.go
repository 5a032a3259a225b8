// Package content holds the static text of the resources, about and journal
// panels, the prompt suggestions and the footer.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultYAML []byte

type Item struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Link        string `yaml:"link,omitempty"`
	LinkText    string `yaml:"link_text,omitempty"`
}

// LinkLabel returns the link caption, "Learn more" when none is set.
func (i Item) LinkLabel() string {
	if i.LinkText != "" {
		return i.LinkText
	}
	return "Learn more"
}

type Section struct {
	Title  string `yaml:"title"`
	Urgent bool   `yaml:"urgent,omitempty"`
	Items  []Item `yaml:"items"`
}

type Resources struct {
	Title    string    `yaml:"title"`
	Sections []Section `yaml:"sections"`
}

type About struct {
	Title           string   `yaml:"title"`
	Mission         []string `yaml:"mission"`
	DisclaimerTitle string   `yaml:"disclaimer_title"`
	Disclaimer      []string `yaml:"disclaimer"`
}

type Journal struct {
	Intro       string `yaml:"intro"`
	Placeholder string `yaml:"placeholder"`
	Saved       string `yaml:"saved"`
}

type Suggestions struct {
	Intro   string   `yaml:"intro"`
	Prompts []string `yaml:"prompts"`
}

type Content struct {
	Resources   Resources   `yaml:"resources"`
	About       About       `yaml:"about"`
	Journal     Journal     `yaml:"journal"`
	Suggestions Suggestions `yaml:"suggestions"`
	Footer      string      `yaml:"footer"`
}

// Default returns the embedded content.
func Default() *Content {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("content: embedded content.yaml: %v", err))
	}
	return c
}

func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if len(c.Resources.Sections) == 0 {
		return nil, errors.New("parse content: no resource sections")
	}
	return &c, nil
}

// Load reads content from path, or returns Default when path is empty.
func Load(path string) (*Content, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	return Parse(data)
}

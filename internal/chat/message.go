package chat

import "fmt"

// Author identifies who produced a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorAI   Author = "ai"
)

// Valid reports whether a is one of the known authors.
func (a Author) Valid() bool {
	return a == AuthorUser || a == AuthorAI
}

// Message is a single conversation turn. Messages are values and are never
// mutated after creation.
type Message struct {
	Author Author `json:"author"`
	Text   string `json:"text"`
}

func User(text string) Message { return Message{Author: AuthorUser, Text: text} }
func AI(text string) Message   { return Message{Author: AuthorAI, Text: text} }

// Validate checks that every message in h has a known author.
func Validate(h []Message) error {
	for i, m := range h {
		if !m.Author.Valid() {
			return fmt.Errorf("message %d: unknown author %q", i, m.Author)
		}
	}
	return nil
}

// Clone returns a copy of h that shares no backing array with it.
func Clone(h []Message) []Message {
	out := make([]Message, len(h))
	copy(out, h)
	return out
}

// Package compose holds the in-progress input buffers ("slots") the user
// can switch between before speaking. Slots live for the session only.
package compose

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/hammamikhairi/distype/internal/domain"
)

// DefaultSlots is the number of buffers available.
const DefaultSlots = 5

// Slots is a fixed set of text buffers with one active. Safe for
// concurrent use.
type Slots struct {
	mu     sync.Mutex
	bufs   []string
	active int
}

// NewSlots creates n empty slots (DefaultSlots when n <= 0).
func NewSlots(n int) *Slots {
	if n <= 0 {
		n = DefaultSlots
	}
	return &Slots{bufs: make([]string, n)}
}

// Len returns the number of slots.
func (s *Slots) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bufs)
}

// Active returns the 0-based index of the active slot.
func (s *Slots) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Text returns the active slot's text.
func (s *Slots) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufs[s.active]
}

// Set replaces the active slot's text.
func (s *Slots) Set(text string) {
	s.mu.Lock()
	s.bufs[s.active] = text
	s.mu.Unlock()
}

// Append adds text to the active slot, separated by a space.
func (s *Slots) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.bufs[s.active]
	if cur != "" && !strings.HasSuffix(cur, " ") {
		cur += " "
	}
	s.bufs[s.active] = cur + text
}

// Switch saves current as the active slot's text and makes slot n
// (0-based) active, returning its stored text.
func (s *Slots) Switch(n int, current string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.bufs) {
		return "", fmt.Errorf("slot %d: %w", n+1, domain.ErrNoSlot)
	}
	s.bufs[s.active] = current
	s.active = n
	return s.bufs[n], nil
}

// Commit clears the active slot after its text was spoken and returns
// the text.
func (s *Slots) Commit() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.bufs[s.active]
	s.bufs[s.active] = ""
	return text
}

// Names labels each slot for a picker: the first words of its text, or
// placeholder when empty. The active slot is marked with '*'.
func (s *Slots) Names(placeholder string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.bufs))
	for i, b := range s.bufs {
		label := strings.TrimSpace(b)
		if label == "" {
			label = placeholder
		} else if r := []rune(label); len(r) > 24 {
			label = string(r[:21]) + "..."
		}
		mark := " "
		if i == s.active {
			mark = "*"
		}
		out[i] = fmt.Sprintf("%s%d. %s", mark, i+1, label)
	}
	return out
}

// LastWord returns the last complete word of text: the word before a
// trailing space or punctuation. It returns "" while a word is still
// being typed.
func LastWord(text string) string {
	if text == "" {
		return ""
	}
	r := []rune(text)
	last := r[len(r)-1]
	if !unicode.IsSpace(last) && !unicode.IsPunct(last) {
		return ""
	}
	fields := strings.FieldsFunc(text, func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c)
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

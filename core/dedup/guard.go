// Package dedup suppresses repeated commits of the same message.
package dedup

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-duplex/core/events"
)

// DefaultWindow is how long an identical message for the same role is
// treated as a duplicate.
const DefaultWindow = 3 * time.Second

type record struct {
	text string
	at   time.Time
}

type Guard struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[events.Role]record
}

type Option func(*Guard)

func WithWindow(window time.Duration) Option {
	return func(g *Guard) { g.window = window }
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		window: DefaultWindow,
		now:    time.Now,
		last:   map[events.Role]record{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldCommit reports whether text should be committed for role. A commit
// is refused only when the previous commit for the same role carried the
// same text and happened less than the window ago. Accepted commits become
// the new reference.
func (g *Guard) ShouldCommit(role events.Role, text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.last[role]; ok && last.text == text && now.Sub(last.at) < g.window {
		return false
	}

	g.last[role] = record{text: text, at: now}
	return true
}

// Reset forgets every previous commit.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = map[events.Role]record{}
}

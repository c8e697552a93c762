package dedup

import (
	"testing"
	"time"

	"github.com/koscakluka/ema-duplex/core/events"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestShouldCommitSuppressesWithinWindow(t *testing.T) {
	clock := newFakeClock()
	guard := NewGuard(WithClock(clock.Now))

	if !guard.ShouldCommit(events.RoleUser, "hello") {
		t.Fatalf("expected first commit to be accepted")
	}

	clock.Advance(1 * time.Second)
	if guard.ShouldCommit(events.RoleUser, "hello") {
		t.Fatalf("expected duplicate within window to be rejected")
	}

	clock.Advance(2500 * time.Millisecond)
	if !guard.ShouldCommit(events.RoleUser, "hello") {
		t.Fatalf("expected commit after window to be accepted")
	}
}

func TestShouldCommitWindowIsMeasuredFromLastAcceptedCommit(t *testing.T) {
	clock := newFakeClock()
	guard := NewGuard(WithClock(clock.Now))

	guard.ShouldCommit(events.RoleUser, "hello")
	clock.Advance(2 * time.Second)
	guard.ShouldCommit(events.RoleUser, "hello")
	clock.Advance(1500 * time.Millisecond)

	if !guard.ShouldCommit(events.RoleUser, "hello") {
		t.Fatalf("expected rejected duplicates not to extend the window")
	}
}

func TestShouldCommitIsPerRoleAndPerText(t *testing.T) {
	clock := newFakeClock()
	guard := NewGuard(WithClock(clock.Now))

	guard.ShouldCommit(events.RoleUser, "hello")
	if !guard.ShouldCommit(events.RoleAssistant, "hello") {
		t.Fatalf("expected assistant commit to be independent of user commit")
	}
	if !guard.ShouldCommit(events.RoleUser, "hello there") {
		t.Fatalf("expected different text to be accepted")
	}
	if !guard.ShouldCommit(events.RoleUser, "hello") {
		t.Fatalf("expected text to be accepted once a different text was recorded")
	}
}

func TestResetForgetsCommits(t *testing.T) {
	guard := NewGuard(WithClock(newFakeClock().Now))
	guard.ShouldCommit(events.RoleUser, "hello")
	guard.Reset()

	if !guard.ShouldCommit(events.RoleUser, "hello") {
		t.Fatalf("expected commit after reset to be accepted")
	}
}

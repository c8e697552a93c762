package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/ema-duplex/core"
	"github.com/koscakluka/ema-duplex/core/events"
)

func TestModelTracksStatusAndTranscript(t *testing.T) {
	m := newModel(orchestration.NewOrchestrator(orchestration.WithSessionID("s-1")), t.TempDir())

	m.handleEvent(events.NewStatusChanged(events.StatusListening, events.LevelInfo, "Listening..."))
	if !m.recording {
		t.Fatalf("expected listening status to mark recording")
	}
	m.handleEvent(events.NewStatusChanged(events.StatusPartial, events.LevelInfo, "hel"))
	if m.partial != "hel" {
		t.Fatalf("expected partial transcript, got %q", m.partial)
	}
	m.handleEvent(events.NewMessageCommitted(events.RoleUser, "hello"))
	m.handleEvent(events.NewMessageCommitted(events.RoleAssistant, "hi"))
	m.handleEvent(events.NewStatusChanged(events.StatusReady, events.LevelInfo, "Ready to record"))

	if m.recording || m.partial != "" {
		t.Fatalf("expected ready status to clear capture state, got recording=%t partial=%q", m.recording, m.partial)
	}
	if len(m.transcript) != 2 {
		t.Fatalf("expected 2 transcript lines, got %d", len(m.transcript))
	}

	view := m.View()
	for _, want := range []string{"You: hello", "Ema: hi", "Ready to record", "s-1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q, got %q", want, view)
		}
	}
}

func TestSaveClipWithoutClipFails(t *testing.T) {
	m := newModel(orchestration.NewOrchestrator(), t.TempDir())

	msg, ok := m.saveClip()().(clipSavedMsg)
	if !ok || msg.err == nil {
		t.Fatalf("expected save to fail without a clip, got %+v", msg)
	}

	updated, _ := m.Update(msg)
	if status := updated.(model).status; status.Level != events.LevelError {
		t.Fatalf("expected error status, got %+v", status)
	}
}

func TestTypedTextIsSubmittedOnEnter(t *testing.T) {
	m := newModel(orchestration.NewOrchestrator(), t.TempDir())
	m.input.Focus()
	m.input.SetValue("  ")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if updated.(model).input.Focused() {
		t.Fatalf("expected input to blur after submit")
	}
}

func TestLastLinesKeepsTail(t *testing.T) {
	lines := []string{"a", "b\nb", "c"}

	got := lastLines(lines, 3)
	if len(got) != 2 || got[0] != "b\nb" {
		t.Fatalf("expected the last two entries, got %q", got)
	}
	if got := lastLines(lines, 0); got != nil {
		t.Fatalf("expected nothing for zero height, got %q", got)
	}
}

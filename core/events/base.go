package events

import (
	"strings"
	"time"
)

// Kind is "<domain>.<name>", e.g. "assistant_speech.fragment".
type Kind string

// Domain is the part of the kind before the first dot.
func (k Kind) Domain() string {
	domain, _, _ := strings.Cut(string(k), ".")
	return domain
}

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base is embedded by every event.
type Base struct {
	kind Kind
	at   time.Time
}

func NewBase(kind Kind) Base { return Base{kind: kind, at: time.Now()} }

func (b Base) Kind() Kind           { return b.kind }
func (b Base) Timestamp() time.Time { return b.at }

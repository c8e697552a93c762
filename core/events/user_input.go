package events

const (
	// KindUserTranscriptPartial identifies interim recognition text.
	KindUserTranscriptPartial Kind = "user_input.transcript_partial"
	// KindUserTranscriptFinal identifies the end of turn transcript.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
	// KindMessageCommitted identifies a message accepted into history.
	KindMessageCommitted Kind = "conversation.message_committed"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserTranscriptPartial carries interim recognition text.
type UserTranscriptPartial struct {
	Base
	Text string
}

// NewUserTranscriptPartial creates a partial transcript event.
func NewUserTranscriptPartial(text string) UserTranscriptPartial {
	return UserTranscriptPartial{Base: NewBase(KindUserTranscriptPartial), Text: text}
}

// UserTranscriptFinal carries the transcript that ended a turn.
type UserTranscriptFinal struct {
	Base
	Text      string
	Formatted bool
}

// NewUserTranscriptFinal creates a final transcript event.
func NewUserTranscriptFinal(text string, formatted bool) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), Text: text, Formatted: formatted}
}

// Committable reports whether the transcript belongs in conversation history.
func (t UserTranscriptFinal) Committable() bool {
	return t.Formatted && t.Text != ""
}

// MessageCommitted carries a message that passed the duplicate guard.
type MessageCommitted struct {
	Base
	Role Role
	Text string
}

// NewMessageCommitted creates a message committed event.
func NewMessageCommitted(role Role, text string) MessageCommitted {
	return MessageCommitted{Base: NewBase(KindMessageCommitted), Role: role, Text: text}
}

package events

// KindAssistantReply identifies reply text pushed by the backend.
const KindAssistantReply Kind = "assistant_response.reply"

// AssistantReply carries reply text.
type AssistantReply struct {
	Base
	Text string
}

// NewAssistantReply creates an assistant reply event.
func NewAssistantReply(text string) AssistantReply {
	return AssistantReply{Base: NewBase(KindAssistantReply), Text: text}
}

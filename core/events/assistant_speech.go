package events

const (
	// KindAssistantAudioFragment identifies one fragment of synthesized speech.
	KindAssistantAudioFragment Kind = "assistant_speech.fragment"
	// KindAssistantAudioFallback identifies a synthesis failure with a
	// replacement clip.
	KindAssistantAudioFallback Kind = "assistant_speech.fallback"
)

// AssistantAudioFragment carries one fragment of a synthesis turn. Index 1
// (or lower) starts a new turn.
type AssistantAudioFragment struct {
	Base
	Index     int
	Payload   []byte
	EndOfTurn bool
}

// NewAssistantAudioFragment creates an audio fragment event.
func NewAssistantAudioFragment(index int, payload []byte, endOfTurn bool) AssistantAudioFragment {
	return AssistantAudioFragment{
		Base:      NewBase(KindAssistantAudioFragment),
		Index:     index,
		Payload:   payload,
		EndOfTurn: endOfTurn,
	}
}

// AssistantAudioFallback carries the location of a replacement clip.
type AssistantAudioFallback struct {
	Base
	URL string
}

// NewAssistantAudioFallback creates an audio fallback event.
func NewAssistantAudioFallback(url string) AssistantAudioFallback {
	return AssistantAudioFallback{Base: NewBase(KindAssistantAudioFallback), URL: url}
}

package bargein

// Source is an audio source competing for the speaker.
type Source int

const (
	None Source = iota
	Speech
	Fallback
	Preview
)

func (s Source) String() string {
	switch s {
	case None:
		return "none"
	case Speech:
		return "speech"
	case Fallback:
		return "fallback"
	case Preview:
		return "preview"
	default:
		return "unknown"
	}
}

// Trigger is something that happened to the audio sources.
type Trigger int

const (
	// CaptureStarted means the user started talking over everything.
	CaptureStarted Trigger = iota
	// StopAll means the user explicitly silenced all audio.
	StopAll
	// Activate asks for a source to become audible.
	Activate
	// Ended reports that a source ran out of audio.
	Ended
	// Paused reports that a source was paused before it ended.
	Paused
)

func (t Trigger) String() string {
	switch t {
	case CaptureStarted:
		return "capture_started"
	case StopAll:
		return "stop_all"
	case Activate:
		return "activate"
	case Ended:
		return "ended"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Controller is the handle the coordinator uses to act on a source.
type Controller interface {
	// Pending reports whether the source holds audio that has not played.
	Pending() bool
	Stop()
	Pause()
	Resume()
}

package events

// KindStatusChanged identifies a user visible status change.
const KindStatusChanged Kind = "session.status_changed"

type Status string

const (
	StatusReady            Status = "ready"
	StatusListening        Status = "listening"
	StatusPartial          Status = "partial"
	StatusProcessing       Status = "processing"
	StatusFinalTurn        Status = "final_turn"
	StatusConnectionError  Status = "connection_error"
	StatusSessionEnded     Status = "session_ended"
	StatusPlaybackStopped  Status = "playback_stopped"
	StatusPermissionDenied Status = "permission_denied"
	StatusDeviceError      Status = "device_unavailable"
	StatusAutoplayBlocked  Status = "autoplay_blocked"
	StatusFallbackAudio    Status = "fallback_audio"
	StatusPreview          Status = "preview"
	StatusResponse         Status = "response_received"
	StatusError            Status = "error"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// StatusChanged carries a status and the message to show for it.
type StatusChanged struct {
	Base
	Status  Status
	Level   Level
	Message string
}

// NewStatusChanged creates a status changed event.
func NewStatusChanged(status Status, level Level, message string) StatusChanged {
	return StatusChanged{Base: NewBase(KindStatusChanged), Status: status, Level: level, Message: message}
}

package playback

import "errors"

var (
	// ErrDecodeFailure is returned for a fragment that yielded no samples.
	ErrDecodeFailure = errors.New("audio fragment decoded to no samples")
	// ErrAutoplayBlocked is returned when the output device refused to start.
	ErrAutoplayBlocked = errors.New("audio output refused to start")
)

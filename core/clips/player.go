package clips

import (
	"fmt"

	"github.com/koscakluka/ema-duplex/core/playback"
)

// Player plays one clip at a time on its own voice. It is not safe for
// concurrent use.
type Player struct {
	voice   playback.Voice
	playing bool
	paused  bool
}

func NewPlayer(voice playback.Voice) *Player {
	return &Player{voice: voice}
}

// Play replaces whatever the player held with samples and starts them now.
func (p *Player) Play(samples []float32) error {
	p.voice.Clear()
	p.voice.Resume()
	p.playing, p.paused = false, false

	if err := p.voice.Schedule(p.voice.Now(), samples); err != nil {
		return fmt.Errorf("failed to start clip: %w", err)
	}
	p.playing = true
	return nil
}

// Pause holds the clip where it is.
func (p *Player) Pause() {
	if !p.playing || p.paused {
		return
	}
	p.paused = true
	p.voice.Suspend()
}

// Resume continues a paused clip.
func (p *Player) Resume() {
	if !p.paused {
		return
	}
	p.paused = false
	p.voice.Resume()
}

// Stop drops the clip.
func (p *Player) Stop() {
	p.voice.Clear()
	p.voice.Resume()
	p.playing, p.paused = false, false
}

// Pending reports whether a paused clip still has audio to play.
func (p *Player) Pending() bool {
	return p.paused && p.voice.Remaining() > 0
}

// Drained marks the clip as finished. It reports whether the clip was
// playing, so a late drain of a stopped clip is ignored.
func (p *Player) Drained() bool {
	if !p.playing || p.paused {
		return false
	}
	p.playing = false
	return true
}

func (p *Player) Playing() bool { return p.playing && !p.paused }
func (p *Player) Paused() bool  { return p.paused }

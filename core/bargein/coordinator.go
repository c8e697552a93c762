// Package bargein arbitrates which audio source may be heard.
//
// At most one source is audible at a time. The coordinator is not safe for
// concurrent use; the pipeline loop is its only caller. Actions run after the
// new state is recorded, so a controller that calls back into the
// coordinator while being stopped, paused or resumed observes the new state.
package bargein

import (
	"context"
	"log/slog"
)

// resumeOrder is the order in which waiting sources get the speaker back.
var resumeOrder = []Source{Speech, Fallback, Preview}

type Coordinator struct {
	state       Source
	controllers map[Source]Controller
	onChange    func(previous, current Source)
}

type Option func(*Coordinator)

// WithChangeHandler is called after every change of the audible source,
// before the actions of the transition run.
func WithChangeHandler(onChange func(previous, current Source)) Option {
	return func(c *Coordinator) {
		if onChange != nil {
			c.onChange = onChange
		}
	}
}

func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		state:       None,
		controllers: map[Source]Controller{},
		onChange:    func(Source, Source) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register attaches the controller used to act on source.
func (c *Coordinator) Register(source Source, controller Controller) {
	if source == None {
		return
	}
	c.controllers[source] = controller
}

// Active returns the source currently allowed to be heard.
func (c *Coordinator) Active() Source { return c.state }

// CaptureStarted silences every source.
func (c *Coordinator) CaptureStarted() { c.handle(CaptureStarted, None) }

// StopAll silences every source.
func (c *Coordinator) StopAll() { c.handle(StopAll, None) }

// Activate asks for source to become audible and reports whether it may
// play now.
func (c *Coordinator) Activate(source Source) bool { return c.handle(Activate, source) }

// Ended reports that source played all of its audio.
func (c *Coordinator) Ended(source Source) { c.handle(Ended, source) }

// Paused reports that source was paused before it ended.
func (c *Coordinator) Paused(source Source) { c.handle(Paused, source) }

func (c *Coordinator) handle(trigger Trigger, source Source) bool {
	previous := c.state
	t, ok := transitions[transitionKey{state: previous, trigger: trigger, source: source}]
	if !ok {
		logger.Log(context.Background(), slog.LevelWarn, "ignoring undefined audio transition",
			slog.String("state", previous.String()),
			slog.String("trigger", trigger.String()),
			slog.String("source", source.String()),
		)
		return false
	}

	c.setState(t.next)
	for _, a := range t.actions {
		c.run(a, source)
	}

	return t.granted
}

func (c *Coordinator) setState(next Source) {
	previous := c.state
	if previous == next {
		return
	}
	c.state = next
	c.onChange(previous, next)
}

func (c *Coordinator) run(a action, trigger Source) {
	switch a {
	case stopSpeech:
		c.stop(Speech)
	case stopFallback:
		c.stop(Fallback)
	case stopPreview:
		c.stop(Preview)
	case pauseSpeech:
		if controller, ok := c.controllers[Speech]; ok {
			controller.Pause()
		}
	case pausePreview:
		if controller, ok := c.controllers[Preview]; ok {
			controller.Pause()
		}
	case resumePending:
		c.resumePending(trigger)
	}
}

func (c *Coordinator) stop(source Source) {
	if controller, ok := c.controllers[source]; ok {
		controller.Stop()
	}
}

func (c *Coordinator) resumePending(finished Source) {
	for _, source := range resumeOrder {
		if source == finished {
			continue
		}
		controller, ok := c.controllers[source]
		if !ok || !controller.Pending() {
			continue
		}

		c.setState(source)
		controller.Resume()
		return
	}
}

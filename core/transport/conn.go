// Package transport carries captured audio up to the backend and its
// transcripts, replies and synthesized speech back down over one websocket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-duplex/core/audio"
	"github.com/koscakluka/ema-duplex/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrTransport is reported when the connection failed or closed unexpectedly.
var ErrTransport = errors.New("transport failed")

const (
	defaultHandshakeTimeout = 10 * time.Second
	closeGracePeriod        = time.Second
	eventBufferSize         = 64
)

type Options struct {
	// ServerURL is the backend base url, http(s) or ws(s).
	ServerURL string
	SessionID string
	Dialer    *websocket.Dialer
	Header    http.Header
}

// Endpoint builds the websocket url of the voice session.
func Endpoint(serverURL, sessionID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url has no host")
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"session": []string{sessionID}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}

type Conn struct {
	ws     *websocket.Conn
	events chan events.Event
	done   chan struct{}
	quit   chan struct{}

	closeAfterTurn atomic.Bool
	closing        atomic.Bool

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial opens the voice session and starts delivering inbound events.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	ctx, span := tracer.Start(ctx, "dial voice session")
	defer span.End()

	endpoint, err := Endpoint(opts.ServerURL, opts.SessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", opts.SessionID))

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	}

	ws, resp, err := dialer.DialContext(ctx, endpoint, opts.Header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w: dial failed with status %d: %w", ErrTransport, resp.StatusCode, err)
		} else {
			err = fmt.Errorf("%w: dial failed: %w", ErrTransport, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c := &Conn{
		ws:     ws,
		events: make(chan events.Event, eventBufferSize),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers parsed inbound events in arrival order. It is closed when
// the connection ends.
func (c *Conn) Events() <-chan events.Event { return c.events }

// Done is closed once the connection ended and Events drained into the
// channel buffer.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended. It is nil for a clean close.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// SendAudio writes one binary frame of 16-bit little-endian PCM.
func (c *Conn) SendAudio(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	select {
	case <-c.done:
		return fmt.Errorf("%w: connection closed", ErrTransport)
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, audio.EncodePCM16(samples)); err != nil {
		return fmt.Errorf("%w: failed to send audio: %w", ErrTransport, err)
	}
	return nil
}

// CloseAfterFinalTurn keeps the connection open until the transcript that
// ends the current turn has been delivered, then closes it.
func (c *Conn) CloseAfterFinalTurn() {
	c.closeAfterTurn.Store(true)
}

// Close sends a close frame and tears the connection down.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.quit)

		c.writeMu.Lock()
		writeErr := c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)
		c.writeMu.Unlock()

		if writeErr != nil && !errors.Is(writeErr, websocket.ErrCloseSent) {
			err = errors.Join(err, fmt.Errorf("failed to send close frame: %w", writeErr))
		}
		if closeErr := c.ws.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close connection: %w", closeErr))
		}
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				_ = c.Close()
				return
			}
			c.setErr(fmt.Errorf("%w: %w", ErrTransport, err))
			_ = c.Close()
			return
		}

		if msgType != websocket.TextMessage {
			eventsDropped.Add(context.Background(), 1)
			continue
		}

		event, err := Decode(data)
		if err != nil {
			eventsDropped.Add(context.Background(), 1)
			logger.Log(context.Background(), slog.LevelDebug, "dropping inbound frame", slog.String("error", err.Error()))
			continue
		}

		select {
		case c.events <- event:
		case <-c.quit:
			return
		}

		if final, ok := event.(events.UserTranscriptFinal); ok && final.Committable() && c.closeAfterTurn.Load() {
			_ = c.Close()
			return
		}
	}
}

func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

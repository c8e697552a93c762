package transport

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-duplex/core/events"
)

const (
	messageTypeTranscript     = "transcript"
	messageTypeAssistant      = "assistant"
	messageTypeAudioChunk     = "audio_chunk"
	messageTypeAudioFallback  = "audio_fallback"
	messageTypeSpotifyResults = "spotify_results"
)

var errUnknownMessage = errors.New("unknown message type")

// Message is the inbound text frame. Which fields are set depends on Type.
type Message struct {
	Type string `json:"type" jsonschema:"enum=transcript,enum=assistant,enum=audio_chunk,enum=audio_fallback,enum=spotify_results"`

	// transcript and assistant
	Text string `json:"text,omitempty"`
	// transcript
	Formatted bool `json:"formatted,omitempty"`

	// transcript and audio_chunk
	EndOfTurn bool `json:"end_of_turn,omitempty"`

	// audio_chunk
	AudioB64   *string `json:"audio_b64,omitempty" jsonschema:"contentEncoding=base64"`
	ChunkIndex *int    `json:"chunk_index,omitempty"`

	// audio_fallback
	URL string `json:"url,omitempty"`

	// spotify_results
	Results []Track `json:"results,omitempty"`
}

// Track is one search result as sent by the backend.
type Track struct {
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	PreviewURL string `json:"preview_url,omitempty"`
	SpotifyURL string `json:"spotify_url,omitempty"`
}

// Schema describes the inbound text frames.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.ReflectFromType(reflect.TypeOf(Message{}))
}

// Decode turns one text frame into an event.
func Decode(data []byte) (events.Event, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	switch msg.Type {
	case messageTypeTranscript:
		if !msg.EndOfTurn {
			return events.NewUserTranscriptPartial(msg.Text), nil
		}
		return events.NewUserTranscriptFinal(msg.Text, msg.Formatted), nil

	case messageTypeAssistant:
		return events.NewAssistantReply(msg.Text), nil

	case messageTypeAudioChunk:
		if msg.AudioB64 == nil || msg.ChunkIndex == nil {
			return nil, fmt.Errorf("audio chunk without audio or index")
		}
		payload, err := base64.StdEncoding.DecodeString(*msg.AudioB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode audio chunk %d: %w", *msg.ChunkIndex, err)
		}
		return events.NewAssistantAudioFragment(*msg.ChunkIndex, payload, msg.EndOfTurn), nil

	case messageTypeAudioFallback:
		if msg.URL == "" {
			return nil, fmt.Errorf("audio fallback without url")
		}
		return events.NewAssistantAudioFallback(msg.URL), nil

	case messageTypeSpotifyResults:
		if msg.Results == nil {
			return nil, fmt.Errorf("search results without results")
		}
		var tracks []events.Track
		if err := copier.Copy(&tracks, msg.Results); err != nil {
			return nil, fmt.Errorf("failed to copy search results: %w", err)
		}
		return events.NewSearchResults(tracks), nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
	}
}

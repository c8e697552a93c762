// Package oneshot talks to the request/response endpoints of the backend,
// used for typed questions and for recordings sent as a whole.
package oneshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	textQueryPath     = "/llm/text-query"
	audioQueryPath    = "/llm/query"
	generateAudioPath = "/generate-audio/"

	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 4 << 20
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", base.Scheme)
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: defaultTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// QueryResult is the answer to a recorded question.
type QueryResult struct {
	UserTranscription string `json:"userTranscription"`
	LLMResponse       string `json:"llmResponse"`
	AudioFile         string `json:"audioFile"`
	Error             string `json:"error"`
	Fallback          bool   `json:"fallback"`
}

// SpeechResult is the answer to a speech generation request.
type SpeechResult struct {
	AudioFile string `json:"audioFile"`
	Error     string `json:"error"`
	Fallback  bool   `json:"fallback"`
}

type textQueryRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

type textQueryResponse struct {
	LLMResponse string `json:"llmResponse"`
	Detail      string `json:"detail"`
	Error       string `json:"error"`
}

type generateAudioRequest struct {
	Text string `json:"text"`
}

// TextQuery asks a typed question within the session and returns the reply.
func (c *Client) TextQuery(ctx context.Context, text, sessionID string) (string, error) {
	ctx, span := tracer.Start(ctx, "text query")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	body, err := json.Marshal(textQueryRequest{Text: text, SessionID: sessionID})
	if err != nil {
		return "", recordErr(span, fmt.Errorf("failed to encode text query: %w", err))
	}

	var resp textQueryResponse
	status, err := c.post(ctx, textQueryPath, "application/json", body, &resp)
	if err != nil {
		return "", recordErr(span, err)
	}
	if status < 200 || status >= 300 {
		detail := resp.Detail
		if detail == "" {
			detail = resp.Error
		}
		if detail == "" {
			detail = "Failed to get AI response"
		}
		return "", recordErr(span, fmt.Errorf("text query failed with status %d: %s", status, detail))
	}
	return resp.LLMResponse, nil
}

// Query sends a whole recording as WAV within the session.
func (c *Client) Query(ctx context.Context, wav []byte, sessionID string) (QueryResult, error) {
	ctx, span := tracer.Start(ctx, "audio query")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID), attribute.Int("audio.bytes", len(wav)))

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "recording.wav")
	if err != nil {
		return QueryResult{}, recordErr(span, fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := part.Write(wav); err != nil {
		return QueryResult{}, recordErr(span, fmt.Errorf("failed to write form file: %w", err))
	}
	if err := form.WriteField("session_id", sessionID); err != nil {
		return QueryResult{}, recordErr(span, fmt.Errorf("failed to write session id: %w", err))
	}
	if err := form.Close(); err != nil {
		return QueryResult{}, recordErr(span, fmt.Errorf("failed to close form: %w", err))
	}

	var result QueryResult
	status, err := c.post(ctx, audioQueryPath, form.FormDataContentType(), buf.Bytes(), &result)
	if err != nil {
		return QueryResult{}, recordErr(span, err)
	}
	if (status < 200 || status >= 300) && result.Error == "" {
		return QueryResult{}, recordErr(span, fmt.Errorf("audio query failed with status %d", status))
	}
	return result, nil
}

// GenerateAudio asks for text to be spoken and returns where the clip is.
func (c *Client) GenerateAudio(ctx context.Context, text string) (SpeechResult, error) {
	ctx, span := tracer.Start(ctx, "generate audio")
	defer span.End()

	body, err := json.Marshal(generateAudioRequest{Text: text})
	if err != nil {
		return SpeechResult{}, recordErr(span, fmt.Errorf("failed to encode speech request: %w", err))
	}

	var result SpeechResult
	status, err := c.post(ctx, generateAudioPath, "application/json", body, &result)
	if err != nil {
		return SpeechResult{}, recordErr(span, err)
	}
	if (status < 200 || status >= 300) && result.Error == "" {
		return SpeechResult{}, recordErr(span, fmt.Errorf("speech generation failed with status %d", status))
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte, out any) (int, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, nil
		}
		logger.Warn("unparseable response", "path", path, "status", resp.StatusCode)
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

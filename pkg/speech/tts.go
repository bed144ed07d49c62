package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/strokelab/strokecoach/internal/httpc"
	"github.com/strokelab/strokecoach/pkg/classifier"
)

// TTSClient fetches synthesized feedback audio from the backend's
// audio generation endpoint.
type TTSClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// TTSOption configures a TTSClient.
type TTSOption func(*TTSClient)

// WithTTSTimeout sets the synthesis request timeout.
func WithTTSTimeout(timeout time.Duration) TTSOption {
	return func(c *TTSClient) { c.http = httpc.NewClient(timeout) }
}

// WithTTSLogger sets a custom logger.
func WithTTSLogger(logger *slog.Logger) TTSOption {
	return func(c *TTSClient) { c.logger = logger.With("component", "speech.tts") }
}

// NewTTSClient creates a TTS client for the given backend base URL.
func NewTTSClient(baseURL string, opts ...TTSOption) *TTSClient {
	c := &TTSClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpc.NewClient(30 * time.Second),
		logger:  slog.Default().With("component", "speech.tts"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type audioRequest struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

type audioResponse struct {
	Message     string `json:"message"`
	AudioBase64 string `json:"audio_base64"`
}

// Synthesize requests feedback audio for the result.
func (c *TTSClient) Synthesize(ctx context.Context, label classifier.Label, confidence float64) (*Utterance, error) {
	body, err := json.Marshal(audioRequest{
		Prediction: string(label),
		Confidence: confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("speech: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/generate-audio", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech: tts status %d: %s", resp.StatusCode, msg)
	}

	var result audioResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("speech: decode response: %w", err)
	}

	audio, err := decodeAudio(result.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("speech: decode audio: %w", err)
	}

	return &Utterance{Message: result.Message, Audio: audio}, nil
}

// Close releases idle connections.
func (c *TTSClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// decodeAudio decodes a base64 payload, tolerating a data-URL prefix.
func decodeAudio(b64 string) ([]byte, error) {
	if i := strings.IndexByte(b64, ','); i >= 0 {
		b64 = b64[i+1:]
	}
	return base64.StdEncoding.DecodeString(b64)
}

// Verify TTSClient implements Synthesizer at compile time.
var _ Synthesizer = (*TTSClient)(nil)

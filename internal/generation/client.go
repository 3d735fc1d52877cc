package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsforge/internal/production"
)

const defaultHTTPTimeout = 5 * time.Minute

// Client talks to a newsforge generation backend over HTTP and implements
// both Generator and VideoProvider.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption customizes the generation client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithName labels the provider in logs and asset records.
func WithName(name string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(name) != "" {
			c.name = strings.TrimSpace(name)
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a generation backend client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		name:       "backend",
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies this provider.
func (c *Client) Name() string { return c.name }

// Available reports whether the backend answers its health endpoint.
func (c *Client) Available(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(healthCtx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type scriptRequest struct {
	Items []Item        `json:"items"`
	Cfg   ChannelConfig `json:"config"`
	Hook  string        `json:"hook,omitempty"`
}

type scriptResponse struct {
	Lines []production.ScriptLine `json:"lines"`
}

// GenerateScript produces the ordered script lines for a selection.
func (c *Client) GenerateScript(ctx context.Context, items []Item, cfg ChannelConfig, hook string) ([]production.ScriptLine, error) {
	var out scriptResponse
	if err := c.post(ctx, "/api/v1/generate-script", scriptRequest{Items: items, Cfg: cfg, Hook: hook}, &out); err != nil {
		return nil, Wrap(ErrGeneration, "script", "generate", "", err)
	}
	if len(out.Lines) == 0 {
		return nil, Wrap(ErrGeneration, "script", "generate", "empty script payload", nil)
	}
	return out.Lines, nil
}

type hookRequest struct {
	Items []Item        `json:"items"`
	Cfg   ChannelConfig `json:"config"`
}

type hookResponse struct {
	Hook string `json:"hook"`
}

// GenerateHook produces the viral hook used for metadata consistency.
func (c *Client) GenerateHook(ctx context.Context, items []Item, cfg ChannelConfig) (string, error) {
	var out hookResponse
	if err := c.post(ctx, "/api/v1/generate-hook", hookRequest{Items: items, Cfg: cfg}, &out); err != nil {
		return "", Wrap(ErrGeneration, "hook", "generate", "", err)
	}
	if strings.TrimSpace(out.Hook) == "" {
		return "", Wrap(ErrGeneration, "hook", "generate", "empty hook payload", nil)
	}
	return out.Hook, nil
}

type audioRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

type audioResponse struct {
	AudioBase64     string  `json:"audio_base64"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// GenerateAudio synthesizes speech for one script line.
func (c *Client) GenerateAudio(ctx context.Context, line production.ScriptLine, voiceID string) (AudioClip, error) {
	var out audioResponse
	req := audioRequest{Speaker: line.Speaker, Text: line.Text, VoiceID: voiceID}
	if err := c.post(ctx, "/api/v1/generate-audio", req, &out); err != nil {
		return AudioClip{}, Wrap(ErrGeneration, "audio", "generate", "", err)
	}
	data, err := base64.StdEncoding.DecodeString(out.AudioBase64)
	if err != nil {
		return AudioClip{}, Wrap(ErrGeneration, "audio", "decode", "malformed audio payload", err)
	}
	if len(data) == 0 {
		return AudioClip{}, Wrap(ErrGeneration, "audio", "generate", "empty audio payload", nil)
	}
	return AudioClip{
		Data:     data,
		Duration: time.Duration(out.DurationSeconds * float64(time.Second)),
	}, nil
}

type videoResponse struct {
	VideoURL string `json:"video_url"`
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
}

// GenerateVideo produces one video clip for a prompt.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error) {
	var out videoResponse
	if err := c.post(ctx, "/api/v1/generate-video", req, &out); err != nil {
		return VideoResult{}, Wrap(ErrGeneration, "video", "generate", "", err)
	}
	if out.Error != "" {
		return VideoResult{}, Wrap(ErrGeneration, "video", "generate", out.Error, nil)
	}
	if strings.TrimSpace(out.VideoURL) == "" {
		return VideoResult{}, Wrap(ErrGeneration, "video", "generate", "no video url in payload", nil)
	}
	provider := out.Provider
	if provider == "" {
		provider = c.name
	}
	return VideoResult{URL: out.VideoURL, Provider: provider}, nil
}

type metadataRequest struct {
	Items   []Item        `json:"items"`
	Cfg     ChannelConfig `json:"config"`
	DateKey string        `json:"date_key"`
}

// GenerateMetadata produces the publish title, description, and tags.
func (c *Client) GenerateMetadata(ctx context.Context, items []Item, cfg ChannelConfig, dateKey string) (production.Metadata, error) {
	var out production.Metadata
	req := metadataRequest{Items: items, Cfg: cfg, DateKey: dateKey}
	if err := c.post(ctx, "/api/v1/generate-metadata", req, &out); err != nil {
		return production.Metadata{}, Wrap(ErrGeneration, "metadata", "generate", "", err)
	}
	if strings.TrimSpace(out.Title) == "" {
		return production.Metadata{}, Wrap(ErrGeneration, "metadata", "generate", "empty title in payload", nil)
	}
	return out, nil
}

type thumbnailRequest struct {
	Title string        `json:"title"`
	Cfg   ChannelConfig `json:"config"`
}

type thumbnailResponse struct {
	ImageBase64 string `json:"image_base64"`
}

// GenerateThumbnail produces thumbnail image bytes for a title.
func (c *Client) GenerateThumbnail(ctx context.Context, title string, cfg ChannelConfig) ([]byte, error) {
	var out thumbnailResponse
	if err := c.post(ctx, "/api/v1/generate-thumbnail", thumbnailRequest{Title: title, Cfg: cfg}, &out); err != nil {
		return nil, Wrap(ErrGeneration, "thumbnail", "generate", "", err)
	}
	data, err := base64.StdEncoding.DecodeString(out.ImageBase64)
	if err != nil {
		return nil, Wrap(ErrGeneration, "thumbnail", "decode", "malformed image payload", err)
	}
	if len(data) == 0 {
		return nil, Wrap(ErrGeneration, "thumbnail", "generate", "empty image payload", nil)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if c.baseURL == "" {
		return errors.New("generation backend base url not configured")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

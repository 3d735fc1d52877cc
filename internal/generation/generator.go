package generation

import (
	"context"
	"time"

	"newsforge/internal/production"
)

// Item is one selected news item feeding the production.
type Item struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ChannelConfig carries the per-channel defaults generation requests need.
type ChannelConfig struct {
	ChannelID     string `json:"channel_id"`
	Topic         string `json:"topic,omitempty"`
	Country       string `json:"country,omitempty"`
	PresenterAVox string `json:"presenter_a_voice,omitempty"`
	PresenterBVox string `json:"presenter_b_voice,omitempty"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
}

// AudioClip is the result of synthesizing one script line.
type AudioClip struct {
	Data     []byte
	Duration time.Duration
}

// VideoRequest describes one video generation call.
type VideoRequest struct {
	Prompt         string `json:"prompt"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// VideoResult carries the produced video location and the provider that made it.
type VideoResult struct {
	URL      string `json:"video_url"`
	Provider string `json:"provider,omitempty"`
}

// Generator is the external AI capability boundary. Every method fails with
// an ErrGeneration-tagged error on timeout or malformed output; the core
// performs no automatic retry.
type Generator interface {
	GenerateScript(ctx context.Context, items []Item, cfg ChannelConfig, hook string) ([]production.ScriptLine, error)
	GenerateHook(ctx context.Context, items []Item, cfg ChannelConfig) (string, error)
	GenerateAudio(ctx context.Context, line production.ScriptLine, voiceID string) (AudioClip, error)
	GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error)
	GenerateMetadata(ctx context.Context, items []Item, cfg ChannelConfig, dateKey string) (production.Metadata, error)
	GenerateThumbnail(ctx context.Context, title string, cfg ChannelConfig) ([]byte, error)
}

// VideoProvider is the narrower contract used by fallback chaining and batch
// generation.
type VideoProvider interface {
	Name() string
	Available(ctx context.Context) bool
	GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error)
}

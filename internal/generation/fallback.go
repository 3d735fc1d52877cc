package generation

import (
	"context"
	"log/slog"

	"newsforge/internal/logging"
)

// FallbackVideoProvider tries a primary video provider and falls back to a
// secondary one when the primary is unavailable or fails. The producing
// provider's name is carried on the result so asset records stay attributable.
type FallbackVideoProvider struct {
	primary  VideoProvider
	fallback VideoProvider
	logger   *slog.Logger
}

// NewFallbackVideoProvider chains two providers. The fallback may be nil,
// in which case primary failures are returned as-is.
func NewFallbackVideoProvider(primary, fallback VideoProvider, logger *slog.Logger) *FallbackVideoProvider {
	return &FallbackVideoProvider{
		primary:  primary,
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "videoprovider"),
	}
}

// Name identifies the chain by its primary provider.
func (p *FallbackVideoProvider) Name() string {
	if p.primary != nil {
		return p.primary.Name()
	}
	return "fallback-chain"
}

// Available reports whether either provider can serve requests.
func (p *FallbackVideoProvider) Available(ctx context.Context) bool {
	if p.primary != nil && p.primary.Available(ctx) {
		return true
	}
	return p.fallback != nil && p.fallback.Available(ctx)
}

// GenerateVideo runs the primary provider first, then the fallback.
func (p *FallbackVideoProvider) GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error) {
	var primaryErr error
	if p.primary != nil && p.primary.Available(ctx) {
		result, err := p.primary.GenerateVideo(ctx, req)
		if err == nil {
			return result, nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return VideoResult{}, err
		}
		p.logger.Warn("primary video provider failed, trying fallback",
			logging.String("provider", p.primary.Name()),
			logging.Error(err))
	}

	if p.fallback == nil {
		if primaryErr != nil {
			return VideoResult{}, primaryErr
		}
		return VideoResult{}, Wrap(ErrGeneration, "video", "generate", "no video provider available", nil)
	}

	result, err := p.fallback.GenerateVideo(ctx, req)
	if err != nil {
		if primaryErr != nil {
			return VideoResult{}, Wrap(ErrGeneration, "video", "generate", "all providers failed", err)
		}
		return VideoResult{}, err
	}
	return result, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

// Delivery method tags, recorded for platform-volatility analytics.
const (
	MethodDirect        = "direct"
	MethodCompressed    = "compressed"
	MethodPhotoFallback = "photo_fallback"
	MethodTransient     = "transient_retry"
	MethodDelayed       = "delayed_retry"
)

var transientBackoffs = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

const delayedRetryWait = 15 * time.Second

// DeliveryError is the aggregate failure after all strategies exhaust.
type DeliveryError struct {
	First error
	Last  error
}

func (e *DeliveryError) Error() string {
	if errors.Is(e.First, e.Last) || e.First.Error() == e.Last.Error() {
		return fmt.Sprintf("all delivery strategies failed: %v", e.Last)
	}
	return fmt.Sprintf("all delivery strategies failed: first: %v; last: %v", e.First, e.Last)
}

// DeliveryPipeline publishes through an ordered strategy ladder, stopping
// at the first success. The fallback branch is chosen once from the typed
// error returned by the platform client; the pipeline never inspects error
// prose. Stateless between invocations: every publish restarts the ladder.
type DeliveryPipeline struct {
	publisher repo.PublisherRepo

	// sleep is injectable so tests do not wait out real backoffs.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDeliveryPipeline creates a pipeline over the platform publisher.
func NewDeliveryPipeline(publisher repo.PublisherRepo) *DeliveryPipeline {
	return &DeliveryPipeline{publisher: publisher, sleep: sleepCtx}
}

// SetSleep replaces the backoff sleeper, for tests.
func (p *DeliveryPipeline) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	p.sleep = fn
}

// Deliver runs the ladder and returns the first success or the aggregate
// failure combining the first and last errors.
func (p *DeliveryPipeline) Deliver(ctx context.Context, req *domain.PublishRequest) (*domain.DeliveryResult, error) {
	id, firstErr := p.publisher.Publish(ctx, req)
	if firstErr == nil {
		return &domain.DeliveryResult{PlatformID: id, Method: MethodDirect}, nil
	}

	kind := repo.PublishUnknown
	var pubErr *repo.PublishError
	if errors.As(firstErr, &pubErr) {
		kind = pubErr.Kind
	}
	log.Debug().Str("kind", kind.String()).Err(firstErr).Msg("direct publish failed, entering fallback")

	var result *domain.DeliveryResult
	var lastErr error

	switch kind {
	case repo.PublishFormat:
		result, lastErr = p.tryCompressed(ctx, req)
	case repo.PublishPermission:
		result, lastErr = p.tryPhotoDowngrade(ctx, req)
	case repo.PublishTransientFetch:
		result, lastErr = p.tryTransientRetries(ctx, req)
	default:
		result, lastErr = p.tryDelayedRetry(ctx, req)
	}

	if result != nil {
		return result, nil
	}
	if lastErr == nil {
		lastErr = firstErr
	}
	return nil, &DeliveryError{First: firstErr, Last: lastErr}
}

// tryCompressed re-publishes once with a re-encoded rendition.
func (p *DeliveryPipeline) tryCompressed(ctx context.Context, req *domain.PublishRequest) (*domain.DeliveryResult, error) {
	id, err := p.publisher.PublishCompressed(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.DeliveryResult{PlatformID: id, Method: MethodCompressed}, nil
}

// tryPhotoDowngrade degrades video/reel publishes to a photo publish,
// which needs fewer platform permissions.
func (p *DeliveryPipeline) tryPhotoDowngrade(ctx context.Context, req *domain.PublishRequest) (*domain.DeliveryResult, error) {
	if !req.Kind.IsVideo() {
		return nil, fmt.Errorf("no downgrade available for %s", req.Kind)
	}
	photoReq := *req
	photoReq.Kind = domain.ContentPhoto
	id, err := p.publisher.Publish(ctx, &photoReq)
	if err != nil {
		return nil, err
	}
	return &domain.DeliveryResult{PlatformID: id, Method: MethodPhotoFallback}, nil
}

// tryTransientRetries retries the original call with fixed backoffs.
func (p *DeliveryPipeline) tryTransientRetries(ctx context.Context, req *domain.PublishRequest) (*domain.DeliveryResult, error) {
	var lastErr error
	for _, backoff := range transientBackoffs {
		if err := p.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		id, err := p.publisher.Publish(ctx, req)
		if err == nil {
			return &domain.DeliveryResult{PlatformID: id, Method: MethodTransient}, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// tryDelayedRetry retries the original call once after a flat wait.
func (p *DeliveryPipeline) tryDelayedRetry(ctx context.Context, req *domain.PublishRequest) (*domain.DeliveryResult, error) {
	if err := p.sleep(ctx, delayedRetryWait); err != nil {
		return nil, err
	}
	id, err := p.publisher.Publish(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.DeliveryResult{PlatformID: id, Method: MethodDelayed}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

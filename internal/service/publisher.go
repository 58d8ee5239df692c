package service

import (
	"context"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
	"github.com/glowreach/reply-engine/internal/biz/usecase"
)

// ScheduledPublisher drains due scheduled posts through the same adaptive
// delivery pipeline as replies, so format and permission fallbacks apply to
// queued content too.
type ScheduledPublisher struct {
	posts    repo.ScheduledPostRepo
	accounts repo.AccountRepo
	pipeline *usecase.DeliveryPipeline
	cron     *cron.Cron
}

// NewScheduledPublisher creates the scheduled-post publisher.
func NewScheduledPublisher(posts repo.ScheduledPostRepo, accounts repo.AccountRepo, pipeline *usecase.DeliveryPipeline) *ScheduledPublisher {
	return &ScheduledPublisher{
		posts:    posts,
		accounts: accounts,
		pipeline: pipeline,
		cron:     cron.New(),
	}
}

// Start begins the drain schedule.
func (p *ScheduledPublisher) Start() error {
	if err := p.cron.AddFunc("@every 1m", func() { p.Drain(context.Background()) }); err != nil {
		return err
	}
	p.cron.Start()
	log.Info().Msg("scheduled publisher started")
	return nil
}

// Stop halts the drain schedule.
func (p *ScheduledPublisher) Stop() {
	p.cron.Stop()
}

// Drain publishes every due post once, marking each published or failed.
func (p *ScheduledPublisher) Drain(ctx context.Context) {
	due, err := p.posts.Due(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("due post listing failed")
		return
	}

	for _, post := range due {
		p.publish(ctx, post)
	}
}

func (p *ScheduledPublisher) publish(ctx context.Context, post *domain.ScheduledPost) {
	account, err := p.accounts.ByPlatformAccount(ctx, post.AccountID)
	if err != nil || account == nil {
		log.Error().Err(err).Str("post", post.ID).Str("account", post.AccountID).Msg("post account unavailable")
		if markErr := p.posts.MarkFailed(ctx, post.ID, "account unavailable"); markErr != nil {
			log.Error().Err(markErr).Str("post", post.ID).Msg("mark failed errored")
		}
		return
	}

	result, err := p.pipeline.Deliver(ctx, &domain.PublishRequest{
		Kind:        post.Kind,
		AccountID:   account.PlatformAccountID,
		AccessToken: account.AccessToken,
		Text:        post.Caption,
		MediaURL:    post.MediaURL,
	})
	if err != nil {
		log.Error().Err(err).Str("post", post.ID).Msg("scheduled publish failed")
		if markErr := p.posts.MarkFailed(ctx, post.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("post", post.ID).Msg("mark failed errored")
		}
		return
	}

	log.Info().Str("post", post.ID).Str("method", result.Method).Msg("scheduled post published")
	if err := p.posts.MarkPublished(ctx, post.ID, result.PlatformID, result.Method); err != nil {
		log.Error().Err(err).Str("post", post.ID).Msg("mark published errored")
	}
}

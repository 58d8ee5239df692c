package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

// scriptedPublisher returns queued results per call, in order.
type scriptedPublisher struct {
	results []publishResult

	calls           []*domain.PublishRequest
	compressedCalls []*domain.PublishRequest
}

type publishResult struct {
	id  string
	err error
}

func (p *scriptedPublisher) next() (string, error) {
	if len(p.results) == 0 {
		return "", &repo.PublishError{Kind: repo.PublishUnknown, Message: "script exhausted"}
	}
	r := p.results[0]
	p.results = p.results[1:]
	return r.id, r.err
}

func (p *scriptedPublisher) Publish(_ context.Context, req *domain.PublishRequest) (string, error) {
	p.calls = append(p.calls, req)
	return p.next()
}

func (p *scriptedPublisher) PublishCompressed(_ context.Context, req *domain.PublishRequest) (string, error) {
	p.compressedCalls = append(p.compressedCalls, req)
	return p.next()
}

func newTestPipeline(pub *scriptedPublisher) (*DeliveryPipeline, *[]time.Duration) {
	p := NewDeliveryPipeline(pub)
	var slept []time.Duration
	p.SetSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})
	return p, &slept
}

func pubErr(kind repo.PublishErrorKind) error {
	return &repo.PublishError{Kind: kind, Message: "scripted failure"}
}

func TestDeliverDirectSuccess(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{{id: "p1"}}}
	p, _ := newTestPipeline(pub)

	result, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentReplyComment})
	require.NoError(t, err)
	assert.Equal(t, "p1", result.PlatformID)
	assert.Equal(t, MethodDirect, result.Method)
	assert.Len(t, pub.calls, 1)
}

func TestDeliverFormatErrorRetriesCompressed(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: pubErr(repo.PublishFormat)},
		{id: "p2"},
	}}
	p, _ := newTestPipeline(pub)

	result, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentReel, MediaURL: "https://cdn/x.mp4"})
	require.NoError(t, err)
	assert.Equal(t, MethodCompressed, result.Method)
	assert.Len(t, pub.calls, 1)
	assert.Len(t, pub.compressedCalls, 1)
}

func TestDeliverPermissionErrorDowngradesVideoToPhoto(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: pubErr(repo.PublishPermission)},
		{id: "p3"},
	}}
	p, _ := newTestPipeline(pub)

	result, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentVideo, MediaURL: "https://cdn/x.mp4"})
	require.NoError(t, err)
	assert.Equal(t, MethodPhotoFallback, result.Method)
	require.Len(t, pub.calls, 2)
	assert.Equal(t, domain.ContentPhoto, pub.calls[1].Kind)
	// original request is untouched
	assert.Equal(t, domain.ContentVideo, pub.calls[0].Kind)
}

func TestDeliverPermissionErrorOnNonVideoFails(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: pubErr(repo.PublishPermission)},
	}}
	p, _ := newTestPipeline(pub)

	_, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentPhoto})
	require.Error(t, err)
	var dErr *DeliveryError
	require.ErrorAs(t, err, &dErr)
	assert.Len(t, pub.calls, 1)
}

func TestDeliverTransientFetchRetriesWithBackoff(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: pubErr(repo.PublishTransientFetch)},
		{err: pubErr(repo.PublishTransientFetch)},
		{id: "p4"},
	}}
	p, slept := newTestPipeline(pub)

	result, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentReel})
	require.NoError(t, err)
	assert.Equal(t, MethodTransient, result.Method)
	assert.Len(t, pub.calls, 3)
	assert.Equal(t, []time.Duration{2 * time.Second, 5 * time.Second}, *slept)
}

func TestDeliverTransientFetchExhaustsRetries(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: pubErr(repo.PublishTransientFetch)},
		{err: pubErr(repo.PublishTransientFetch)},
		{err: pubErr(repo.PublishTransientFetch)},
		{err: pubErr(repo.PublishTransientFetch)},
	}}
	p, slept := newTestPipeline(pub)

	_, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentReel})
	require.Error(t, err)
	assert.Len(t, pub.calls, 4) // direct + 3 retries
	assert.Equal(t, []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}, *slept)
}

func TestDeliverUnknownErrorRetriesDelayed(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: pubErr(repo.PublishUnknown)},
		{id: "p5"},
	}}
	p, slept := newTestPipeline(pub)

	result, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentDM})
	require.NoError(t, err)
	assert.Equal(t, MethodDelayed, result.Method)
	assert.Equal(t, []time.Duration{15 * time.Second}, *slept)
}

func TestDeliverAggregatesFirstAndLastErrors(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: &repo.PublishError{Kind: repo.PublishFormat, Message: "bad codec"}},
		{err: &repo.PublishError{Kind: repo.PublishUnknown, Message: "still broken"}},
	}}
	p, _ := newTestPipeline(pub)

	_, err := p.Deliver(context.Background(), &domain.PublishRequest{Kind: domain.ContentReel})
	require.Error(t, err)

	var dErr *DeliveryError
	require.ErrorAs(t, err, &dErr)
	assert.Contains(t, dErr.Error(), "bad codec")
	assert.Contains(t, dErr.Error(), "still broken")
}

func TestDeliverSleepHonorsContextCancel(t *testing.T) {
	pub := &scriptedPublisher{results: []publishResult{
		{err: pubErr(repo.PublishTransientFetch)},
	}}
	p := NewDeliveryPipeline(pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Deliver(ctx, &domain.PublishRequest{Kind: domain.ContentReel})
	require.Error(t, err)
	assert.Len(t, pub.calls, 1)
}

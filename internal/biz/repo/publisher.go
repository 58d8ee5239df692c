package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// PublishErrorKind is the typed taxonomy for platform publish failures.
// Classification happens once, at the platform client boundary; the
// delivery pipeline switches on the kind and never re-parses prose.
type PublishErrorKind int

const (
	PublishUnknown PublishErrorKind = iota
	PublishFormat                   // media format/codec rejected
	PublishPermission               // permission or oauth scope failure
	PublishTransientFetch           // platform could not fetch the media URI
)

// String returns the kind name for logs.
func (k PublishErrorKind) String() string {
	switch k {
	case PublishFormat:
		return "format"
	case PublishPermission:
		return "permission"
	case PublishTransientFetch:
		return "transient_fetch"
	default:
		return "unknown"
	}
}

// PublishError is a classified platform publish failure.
type PublishError struct {
	Kind    PublishErrorKind
	Message string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed (%s): %s", e.Kind, e.Message)
}

// PublisherRepo is the platform content-publish interface.
type PublisherRepo interface {
	// Publish delivers one request via the content-type-specific platform
	// call and returns the platform id of the created object. Failures are
	// *PublishError where the platform reported a classifiable cause.
	Publish(ctx context.Context, req *domain.PublishRequest) (string, error)

	// PublishCompressed retries a media publish with a re-encoded
	// rendition, used when the direct call failed with a format error.
	PublishCompressed(ctx context.Context, req *domain.PublishRequest) (string, error)
}

// ScheduledPostRepo is the queued-content repository interface.
type ScheduledPostRepo interface {
	// Due returns pending posts whose scheduled time has passed.
	Due(ctx context.Context, now time.Time) ([]*domain.ScheduledPost, error)

	// MarkPublished records a successful publish with its method tag.
	MarkPublished(ctx context.Context, id, platformID, method string) error

	// MarkFailed records the aggregate failure reason.
	MarkFailed(ctx context.Context, id, reason string) error
}

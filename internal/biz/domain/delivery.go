package domain

import "time"

// ContentKind selects the platform call used to deliver a publish request.
type ContentKind string

const (
	ContentReplyComment ContentKind = "reply_comment"
	ContentDM           ContentKind = "dm"
	ContentPhoto        ContentKind = "photo"
	ContentVideo        ContentKind = "video"
	ContentReel         ContentKind = "reel"
	ContentStory        ContentKind = "story"
)

// IsVideo reports whether the kind carries video media that can be degraded
// to a photo publish.
func (k ContentKind) IsVideo() bool {
	return k == ContentVideo || k == ContentReel
}

// PublishRequest is one unit of outbound delivery. TargetID is the comment
// id for comment replies and the recipient id for DMs; media kinds publish
// to the account itself.
type PublishRequest struct {
	Kind        ContentKind
	AccountID   string
	AccessToken string
	TargetID    string
	Text        string // reply text or media caption
	MediaURL    string
}

// DeliveryResult reports a successful publish, tagged with the strategy
// that landed it for platform-volatility analytics.
type DeliveryResult struct {
	PlatformID string
	Method     string
}

// ScheduledPostStatus tracks a queued post through the publish pipeline.
type ScheduledPostStatus string

const (
	PostPending   ScheduledPostStatus = "pending"
	PostPublished ScheduledPostStatus = "published"
	PostFailed    ScheduledPostStatus = "failed"
)

// ScheduledPost is a queued content publish drained by the scheduled
// publisher through the same adaptive delivery pipeline as replies.
type ScheduledPost struct {
	ID          string
	WorkspaceID string
	AccountID   string
	Kind        ContentKind
	Caption     string
	MediaURL    string
	ScheduledAt time.Time
	Status      ScheduledPostStatus
	PlatformID  string
	Method      string
	Failure     string
}

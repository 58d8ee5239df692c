package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

const defaultPlatformBaseURL = "https://graph.facebook.com/v21.0"

// platformRepo publishes content through the platform graph API. All failure
// classification into the typed publish-error taxonomy happens here; upper
// layers switch on the kind and never see response prose.
type platformRepo struct {
	baseURL string
	http    *http.Client
}

// NewPlatformRepo creates the graph-API publisher. An empty baseURL selects
// the production endpoint.
func NewPlatformRepo(baseURL string) repo.PublisherRepo {
	if baseURL == "" {
		baseURL = defaultPlatformBaseURL
	}
	return &platformRepo{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *platformRepo) Publish(ctx context.Context, req *domain.PublishRequest) (string, error) {
	switch req.Kind {
	case domain.ContentReplyComment:
		return r.post(ctx, req.AccessToken, "/"+req.TargetID+"/replies", map[string]string{
			"message": req.Text,
		})
	case domain.ContentDM:
		body := map[string]string{
			"recipient": fmt.Sprintf(`{"id":"%s"}`, req.TargetID),
			"message":   fmt.Sprintf(`{"text":%s}`, mustJSON(req.Text)),
		}
		return r.post(ctx, req.AccessToken, "/"+req.AccountID+"/messages", body)
	case domain.ContentPhoto, domain.ContentVideo, domain.ContentReel, domain.ContentStory:
		return r.publishMedia(ctx, req, req.MediaURL)
	default:
		return "", fmt.Errorf("unsupported content kind %q", req.Kind)
	}
}

func (r *platformRepo) PublishCompressed(ctx context.Context, req *domain.PublishRequest) (string, error) {
	if !strings.Contains(string(req.Kind), "photo") && !req.Kind.IsVideo() && req.Kind != domain.ContentStory {
		return "", fmt.Errorf("no compressed rendition for %q", req.Kind)
	}
	return r.publishMedia(ctx, req, compressedRendition(req.MediaURL))
}

// publishMedia runs the two-step container create + publish flow used for
// all media kinds.
func (r *platformRepo) publishMedia(ctx context.Context, req *domain.PublishRequest, mediaURL string) (string, error) {
	params := map[string]string{"caption": req.Text}
	switch req.Kind {
	case domain.ContentPhoto:
		params["image_url"] = mediaURL
	case domain.ContentVideo:
		params["media_type"] = "VIDEO"
		params["video_url"] = mediaURL
	case domain.ContentReel:
		params["media_type"] = "REELS"
		params["video_url"] = mediaURL
	case domain.ContentStory:
		params["media_type"] = "STORIES"
		params["image_url"] = mediaURL
	}

	containerID, err := r.post(ctx, req.AccessToken, "/"+req.AccountID+"/media", params)
	if err != nil {
		return "", err
	}
	return r.post(ctx, req.AccessToken, "/"+req.AccountID+"/media_publish", map[string]string{
		"creation_id": containerID,
	})
}

func (r *platformRepo) post(ctx context.Context, token, path string, params map[string]string) (string, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("access_token", token)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+path, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build platform request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.http.Do(httpReq)
	if err != nil {
		return "", &repo.PublishError{Kind: repo.PublishTransientFetch, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read platform response: %w", err)
	}

	if resp.StatusCode >= 400 {
		pubErr := classifyError(resp.StatusCode, body)
		log.Debug().Int("status", resp.StatusCode).Str("kind", pubErr.Kind.String()).Msg("platform call rejected")
		return "", pubErr
	}

	var parsed struct {
		ID          string `json:"id"`
		MessageID   string `json:"message_id"`
		RecipientID string `json:"recipient_id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse platform response: %w", err)
	}
	if parsed.ID != "" {
		return parsed.ID, nil
	}
	return parsed.MessageID, nil
}

// classifyError maps a platform error response onto the publish-error
// taxonomy. The graph API reports causes in error.message prose, so the
// match is by keyword.
func classifyError(status int, body []byte) *repo.PublishError {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)

	msg := parsed.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("http %d", status)
	}
	lower := strings.ToLower(msg)

	kind := repo.PublishUnknown
	switch {
	case strings.Contains(lower, "format") || strings.Contains(lower, "not supported") ||
		strings.Contains(lower, "unsupported"):
		kind = repo.PublishFormat
	case strings.Contains(lower, "permission") || strings.Contains(lower, "oauth") ||
		status == http.StatusForbidden:
		kind = repo.PublishPermission
	case strings.Contains(lower, "uri") || strings.Contains(lower, "download") ||
		strings.Contains(lower, "fetch"):
		kind = repo.PublishTransientFetch
	}
	return &repo.PublishError{Kind: kind, Message: msg}
}

// compressedRendition rewrites the media URL to request the provider's
// compressed rendition.
func compressedRendition(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return mediaURL
	}
	q := u.Query()
	q.Set("rendition", "compressed")
	u.RawQuery = q.Encode()
	return u.String()
}

func mustJSON(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// EventHandler consumes normalized webhook events. Processing happens off
// the request goroutine; the webhook always acknowledges immediately.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *domain.WebhookEvent)
}

// WebhookServer terminates the platform webhook: handshake verification,
// payload signature checks, payload normalization and async dispatch.
type WebhookServer struct {
	verifyToken string
	appSecret   string
	handler     EventHandler
	engine      *gin.Engine
	srv         *http.Server
}

// NewWebhookServer creates the webhook HTTP server.
func NewWebhookServer(verifyToken, appSecret string, handler EventHandler, debug bool) *WebhookServer {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &WebhookServer{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		handler:     handler,
		engine:      gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.engine.GET("/health", s.health)
	s.engine.GET("/webhook", s.handshake)
	s.engine.POST("/webhook", s.receive)
	return s
}

// Start runs the HTTP server until Shutdown.
func (s *WebhookServer) Start(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.engine}
	log.Info().Str("addr", addr).Msg("webhook server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *WebhookServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *WebhookServer) Handler() http.Handler {
	return s.engine
}

func (s *WebhookServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handshake answers the platform's subscription verification: echo the
// challenge when the verify token matches, 403 otherwise.
func (s *WebhookServer) handshake(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	log.Warn().Str("mode", mode).Msg("webhook handshake rejected")
	c.String(http.StatusForbidden, "verification failed")
}

// receive verifies the payload signature against the raw body, normalizes
// the events and dispatches them asynchronously. The platform retries
// non-200 responses aggressively, so acknowledgement never waits on
// processing.
func (s *WebhookServer) receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.String(http.StatusBadRequest, "bad body")
		return
	}

	if !verifySignature(s.appSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		log.Warn().Msg("webhook signature mismatch")
		c.String(http.StatusForbidden, "signature mismatch")
		return
	}

	events := parsePayload(body)
	for _, ev := range events {
		if ev.IsEcho() {
			log.Debug().Str("id", ev.ExternalID).Msg("echo event discarded")
			continue
		}
		ev := ev
		go s.handler.HandleEvent(context.Background(), ev)
	}

	c.String(http.StatusOK, "EVENT_RECEIVED")
}

// webhookPayload mirrors the platform push notification shape.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Time    int64  `json:"time"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				ID   string `json:"id"`
				Text string `json:"text"`
				From struct {
					ID       string `json:"id"`
					Username string `json:"username"`
				} `json:"from"`
				Media struct {
					ID string `json:"id"`
				} `json:"media"`
				CommentID string `json:"comment_id"`
				MediaID   string `json:"media_id"`
			} `json:"value"`
		} `json:"changes"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Recipient struct {
				ID string `json:"id"`
			} `json:"recipient"`
			Timestamp int64 `json:"timestamp"`
			Message   struct {
				MID    string `json:"mid"`
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// parsePayload maps the raw push notification into normalized events.
// Unknown change fields are skipped.
func parsePayload(body []byte) []*domain.WebhookEvent {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Msg("unparseable webhook payload")
		return nil
	}

	var events []*domain.WebhookEvent
	for _, entry := range payload.Entry {
		entryTime := time.Unix(entry.Time, 0)

		for _, ch := range entry.Changes {
			v := ch.Value
			switch ch.Field {
			case "comments":
				events = append(events, &domain.WebhookEvent{
					Kind:       domain.EventComment,
					ExternalID: v.ID,
					AccountID:  entry.ID,
					SenderID:   v.From.ID,
					SenderName: v.From.Username,
					Content:    v.Text,
					MediaID:    v.Media.ID,
					Timestamp:  entryTime,
				})
			case "mentions":
				externalID := v.CommentID
				if externalID == "" {
					externalID = v.ID
				}
				mediaID := v.MediaID
				if mediaID == "" {
					mediaID = v.Media.ID
				}
				events = append(events, &domain.WebhookEvent{
					Kind:       domain.EventMention,
					ExternalID: externalID,
					AccountID:  entry.ID,
					SenderID:   v.From.ID,
					SenderName: v.From.Username,
					Content:    v.Text,
					MediaID:    mediaID,
					Timestamp:  entryTime,
				})
			default:
				log.Debug().Str("field", ch.Field).Msg("unhandled change field")
			}
		}

		for _, m := range entry.Messaging {
			kind := domain.EventDM
			if m.Message.IsEcho {
				kind = domain.EventEcho
			}
			ts := entryTime
			if m.Timestamp > 0 {
				ts = time.UnixMilli(m.Timestamp)
			}
			events = append(events, &domain.WebhookEvent{
				Kind:        kind,
				ExternalID:  m.Message.MID,
				AccountID:   entry.ID,
				SenderID:    m.Sender.ID,
				RecipientID: m.Recipient.ID,
				Content:     m.Message.Text,
				Timestamp:   ts,
			})
		}
	}
	return events
}

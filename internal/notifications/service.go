package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"histoflow/internal/config"
)

const userAgent = "Histoflow/0.1.0"

// Event identifies a notification-worthy moment in the workflow.
type Event string

const (
	EventRunStarted    Event = "run_started"
	EventRunCompleted  Event = "run_completed"
	EventRunFailed     Event = "run_failed"
	EventSlideAccepted Event = "slide_accepted"
	EventSlideRejected Event = "slide_rejected"
	EventError         Event = "error"
	EventTest          Event = "test"
)

// Payload carries the structured values a notification is rendered from.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		notifyRuns:   cfg.Notifications.Runs,
		notifySlides: cfg.Notifications.Slides,
		notifyErrors: cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	notifyRuns   bool
	notifySlides bool
	notifyErrors bool
}

// Publish renders the event into an ntfy message and posts it. Events whose
// category is disabled in the config are silently dropped.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventRunStarted, EventRunCompleted, EventRunFailed:
		return n.notifyRuns
	case EventSlideAccepted, EventSlideRejected:
		return n.notifySlides
	case EventError:
		return n.notifyErrors
	case EventTest:
		return true
	default:
		return false
	}
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunStarted:
		return message{
			title: "Histoflow - Run Started",
			body: fmt.Sprintf("Started run with %d slides across %d protocols",
				intValue(payload, "slides"), intValue(payload, "protocols")),
			tags: []string{"histoflow", "run", "started"},
		}, true
	case EventRunCompleted:
		accepted := intValue(payload, "accepted")
		rejected := intValue(payload, "rejected")
		failed := intValue(payload, "failed")
		duration := durationText(payload, "duration")
		if rejected == 0 && failed == 0 {
			return message{
				title:    "Histoflow - Run Complete",
				body:     fmt.Sprintf("✅ Run complete: %d slides accepted in %s", accepted, duration),
				tags:     []string{"histoflow", "run", "completed"},
				priority: "high",
			}, true
		}
		return message{
			title: "Histoflow - Run Complete (with issues)",
			body: fmt.Sprintf("Run complete: %d accepted, %d rejected, %d failed in %s",
				accepted, rejected, failed, duration),
			tags: []string{"histoflow", "run", "completed"},
		}, true
	case EventRunFailed:
		return message{
			title:    "Histoflow - Run Failed",
			body:     fmt.Sprintf("❌ Run failed: %s", stringValue(payload, "error", "unknown")),
			tags:     []string{"histoflow", "run", "failed"},
			priority: "high",
		}, true
	case EventSlideAccepted:
		return message{
			title: "Histoflow - Slide Accepted",
			body: fmt.Sprintf("✅ Slide %d accepted (score %.2f, %d wash loops)",
				intValue(payload, "slide"), floatValue(payload, "score"), intValue(payload, "loops")),
			tags: []string{"histoflow", "slide", "accepted"},
		}, true
	case EventSlideRejected:
		return message{
			title: "Histoflow - Slide Rejected",
			body: fmt.Sprintf("Slide %d rejected after %d wash loops",
				intValue(payload, "slide"), intValue(payload, "loops")),
			tags: []string{"histoflow", "slide", "rejected"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if contextLabel := stringValue(payload, "context", ""); contextLabel != "" {
			builder.WriteString(" with ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		builder.WriteString(stringValue(payload, "error", "unknown"))
		return message{
			title:    "Histoflow - Error",
			body:     builder.String(),
			tags:     []string{"histoflow", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Histoflow - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"histoflow", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(payload Payload, key, fallback string) string {
	if payload == nil {
		return fallback
	}
	switch v := payload[key].(type) {
	case nil:
		return fallback
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
		return fallback
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func intValue(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func floatValue(payload Payload, key string) float64 {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func durationText(payload Payload, key string) string {
	if payload == nil {
		return "0s"
	}
	var d time.Duration
	switch v := payload[key].(type) {
	case time.Duration:
		d = v
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return v
		}
		d = parsed
	default:
		return "0s"
	}
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

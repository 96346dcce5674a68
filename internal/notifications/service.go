package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/config"
)

const userAgent = "IncidentResponse-Go/1.0.0"

// Event identifies a notification type.
type Event string

const (
	EventCircuitOpened    Event = "circuit_opened"
	EventCircuitRecovered Event = "circuit_recovered"
	EventRequestFailed    Event = "request_failed"
	EventTest             Event = "test"
)

// Payload carries event-specific values. Transcript or feedback text must
// never be placed in a payload.
type Payload map[string]any

// Service publishes operator alerts.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		circuit:  cfg.Notifications.Circuit,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	circuit  bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil {
		return nil
	}
	switch event {
	case EventCircuitOpened:
		if !n.circuit {
			return nil
		}
		body := fmt.Sprintf("Model calls are failing fast after %s consecutive failures", payloadString(payload, "failures", "repeated"))
		if retry := payloadString(payload, "retry_after", ""); retry != "" {
			body += fmt.Sprintf("\nRetrying in %s", retry)
		}
		return n.send(ctx, message{
			title:    "Incident Response - Circuit Open",
			body:     body,
			tags:     []string{"incident", "circuit", "open"},
			priority: "high",
		})
	case EventCircuitRecovered:
		if !n.circuit {
			return nil
		}
		return n.send(ctx, message{
			title: "Incident Response - Circuit Recovered",
			body:  "Model calls are being attempted again",
			tags:  []string{"incident", "circuit", "recovered"},
		})
	case EventRequestFailed:
		if !n.errors {
			return nil
		}
		var builder strings.Builder
		builder.WriteString("Request failed")
		if op := payloadString(payload, "operation", ""); op != "" {
			builder.WriteString(" during ")
			builder.WriteString(op)
		}
		builder.WriteString(": ")
		builder.WriteString(payloadString(payload, "error", "unknown"))
		if id := payloadString(payload, "request_id", ""); id != "" {
			builder.WriteString("\nRequest ID: ")
			builder.WriteString(id)
		}
		return n.send(ctx, message{
			title:    "Incident Response - Error",
			body:     builder.String(),
			tags:     []string{"incident", "error", "alert"},
			priority: "high",
		})
	case EventTest:
		return n.send(ctx, message{
			title:    "Incident Response - Test",
			body:     "Notification system test",
			tags:     []string{"incident", "test"},
			priority: "low",
		})
	default:
		return nil
	}
}

func payloadString(payload Payload, key, fallback string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return fallback
	}
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case error:
		text = v.Error()
	case fmt.Stringer:
		text = v.String()
	default:
		text = fmt.Sprint(v)
	}
	if text = strings.TrimSpace(text); text == "" {
		return fallback
	}
	return text
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"hackyplayer/internal/config"
)

const userAgent = "hackyplayer/0.1.0"

// Service defines the notification surface exposed to the worker pool.
type Service interface {
	NotifyBuildCompleted(ctx context.Context, title, output string) error
	NotifyIngestCompleted(ctx context.Context, input, output string) error
	NotifyJobFailed(ctx context.Context, kind, label string, err error) error
	TestNotification(ctx context.Context) error
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
		builds:   cfg.Notifications.Builds,
		ingests:  cfg.Notifications.Ingests,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	builds   bool
	ingests  bool
	errors   bool
}

func (n *ntfyService) NotifyBuildCompleted(ctx context.Context, title, output string) error {
	if !n.builds {
		return nil
	}
	message := fmt.Sprintf("🎬 Talk ready: %s", strings.TrimSpace(title))
	if output = strings.TrimSpace(output); output != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, filepath.Base(output))
	}
	return n.send(ctx, payload{
		title:   "hackyplayer - Build Complete",
		message: message,
		tags:    []string{"hackyplayer", "build", "completed"},
	})
}

func (n *ntfyService) NotifyIngestCompleted(ctx context.Context, input, output string) error {
	if !n.ingests {
		return nil
	}
	return n.send(ctx, payload{
		title:   "hackyplayer - Ingested",
		message: fmt.Sprintf("📼 Ingested %s → %s", filepath.Base(input), filepath.Base(output)),
		tags:    []string{"hackyplayer", "ingest", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, kind, label string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ ")
	if kind = strings.TrimSpace(kind); kind != "" {
		builder.WriteString(kind)
		builder.WriteString(" ")
	}
	builder.WriteString("failed")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(" for ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "hackyplayer - Error",
		message:  builder.String(),
		tags:     []string{"hackyplayer", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "hackyplayer - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"hackyplayer", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifyBuildCompleted(context.Context, string, string) error   { return nil }
func (noopService) NotifyIngestCompleted(context.Context, string, string) error  { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }

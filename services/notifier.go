package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"agent-grid-rewards/logging"
	"agent-grid-rewards/models"

	"github.com/google/uuid"
)

const notificationTimeout = 10 * time.Second

// Notification is an out-of-band message for a user's mini-app client.
type Notification struct {
	Title     string
	Body      string
	TargetURL string
}

// NotificationTarget is the webhook a user's client registered.
type NotificationTarget struct {
	URL   string
	Token string
}

type Notifier interface {
	Send(ctx context.Context, target NotificationTarget, n Notification) error
}

type NopNotifier struct{}

func (NopNotifier) Send(context.Context, NotificationTarget, Notification) error { return nil }

// WebhookNotifier POSTs notifications to the client-registered URL.
type WebhookNotifier struct {
	HTTPClient *http.Client
	TargetURL  string // default deep link
	Log        logging.Logger
}

func NewWebhookNotifier(targetURL string, log logging.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		HTTPClient: &http.Client{Timeout: notificationTimeout},
		TargetURL:  targetURL,
		Log:        log,
	}
}

type webhookPayload struct {
	NotificationID string   `json:"notificationId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	TargetURL      string   `json:"targetUrl,omitempty"`
	Tokens         []string `json:"tokens"`
}

func (w *WebhookNotifier) Send(ctx context.Context, target NotificationTarget, n Notification) error {
	payload := webhookPayload{
		NotificationID: uuid.NewString(),
		Title:          n.Title,
		Body:           n.Body,
		TargetURL:      n.TargetURL,
		Tokens:         []string{target.Token},
	}
	if payload.TargetURL == "" {
		payload.TargetURL = w.TargetURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification endpoint returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// notificationURL parses raw and accepts it only as an https URL on the
// default port of one of the configured hosts.
func (c *Core) notificationURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.User != nil || u.Port() != "" {
		return nil, false
	}
	if !slices.Contains(c.NotificationHosts, strings.ToLower(u.Hostname())) {
		return nil, false
	}
	return u, true
}

// dispatch sends n in the background. Failures are only logged.
func (c *Core) dispatch(user *models.User, n Notification) {
	if c.Notifier == nil || !user.HasNotificationTarget() {
		return
	}
	fid := user.FID
	if _, ok := c.notificationURL(*user.NotificationURL); !ok {
		c.Log.Warn("notification target not allowed", "fid", fid)
		return
	}
	target := NotificationTarget{URL: *user.NotificationURL, Token: *user.NotificationToken}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		if err := c.Notifier.Send(ctx, target, n); err != nil {
			c.Log.Warn("notification failed", "fid", fid, "error", err)
		}
	}()
}

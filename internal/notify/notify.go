// Package notify announces new visitors to an operator webhook, at most
// once per browser session.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/scripture-companion/internal/domain"
)

const (
	// EventNewVisitor is the event name in every payload.
	EventNewVisitor = "New Visitor"
	// DirectReferrer replaces an empty referrer.
	DirectReferrer = "Direct"
)

// Marks records which sessions were already announced.
type Marks interface {
	VisitNotified(ctx context.Context, userID, sessionID string) (bool, error)
	MarkVisitNotified(ctx context.Context, userID, sessionID string, at time.Time) error
}

// Client info reported by the page.
type ClientInfo struct {
	Screen    string `json:"screen"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
}

// Notifier posts visit events.
type Notifier struct {
	marks   Marks
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// New creates a Notifier. An empty url disables delivery.
func New(marks Marks, url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		marks:    marks,
		url:      url,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// Notify announces the visit unless the session was already announced or
// no webhook is configured. The session is marked only after a 2xx reply.
// It reports whether a notification was delivered.
func (n *Notifier) Notify(ctx context.Context, userID, sessionID string, info ClientInfo) (bool, error) {
	key := userID + "/" + sessionID
	n.mu.Lock()
	if _, busy := n.inflight[key]; busy {
		n.mu.Unlock()
		return false, nil
	}
	n.inflight[key] = struct{}{}
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		delete(n.inflight, key)
		n.mu.Unlock()
	}()

	done, err := n.marks.VisitNotified(ctx, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("check visit mark: %w", err)
	}
	if done {
		return false, nil
	}

	if n.url == "" {
		n.logger.Info("Visitor notification skipped: webhook URL is not set")
		return false, nil
	}

	now := n.now()
	visit := buildVisit(info, now)
	if err := n.post(ctx, visit); err != nil {
		return false, err
	}

	if err := n.marks.MarkVisitNotified(ctx, userID, sessionID, now); err != nil {
		return true, fmt.Errorf("mark visit: %w", err)
	}
	n.logger.Info("Visitor notification sent", "user_id", userID, "session_id", sessionID)
	return true, nil
}

// Dispatch runs Notify in the background, detached from the caller's
// cancellation. Failures are logged and otherwise ignored.
func (n *Notifier) Dispatch(ctx context.Context, userID, sessionID string, info ClientInfo) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if _, err := n.Notify(bg, userID, sessionID, info); err != nil {
			n.logger.Error("Failed to send visitor notification",
				"user_id", userID, "session_id", sessionID, "error", err)
		}
	}()
}

// Wait blocks until dispatched notifications finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func buildVisit(info ClientInfo, now time.Time) domain.Visit {
	referrer := info.Referrer
	if referrer == "" {
		referrer = DirectReferrer
	}
	return domain.Visit{
		Event:     EventNewVisitor,
		Timestamp: now.Format(time.RFC3339),
		Screen:    info.Screen,
		Referrer:  referrer,
		UserAgent: info.UserAgent,
	}
}

func (n *Notifier) post(ctx context.Context, visit domain.Visit) error {
	body, err := json.Marshal(visit)
	if err != nil {
		return fmt.Errorf("encode visit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

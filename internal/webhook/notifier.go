// Package webhook announces finished fixtures to downstream consumers, such
// as a CI job waiting to load fresh data into a staging database.
//
// Each generation run posts one fixture_generated event to every configured
// URL. Deliveries run in parallel and Notify waits for all of them, so a
// short-lived CLI process never exits with a request still in flight. Failed
// deliveries are logged and reported but not retried.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vaultline/bankfixture/internal/store"
)

const (
	// EventFixtureGenerated is the only event type sent.
	EventFixtureGenerated = "fixture_generated"

	// EnvURLs names the comma-separated endpoint list read by the commands.
	EnvURLs = "FIXTURE_WEBHOOK_URLS"
)

// ParseURLs splits a comma-separated endpoint list, dropping blanks.
func ParseURLs(raw string) []string {
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Payload is the JSON body of a delivery. It carries the fixture summary,
// never rows or the anomaly manifest.
type Payload struct {
	Event       string        `json:"event"`
	DeliveryID  string        `json:"delivery_id"`
	TriggeredAt time.Time     `json:"triggered_at"`
	Fixture     store.Summary `json:"fixture"`
}

// Notifier sends fixture events to a fixed list of endpoints.
type Notifier struct {
	urls   []string
	client *http.Client
	log    *slog.Logger
}

// New creates a Notifier with a sensible default HTTP client timeout.
func New(urls []string, log *slog.Logger) *Notifier {
	return &Notifier{
		urls: urls,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: log,
	}
}

// Notify posts one event per URL and waits for every delivery. It returns
// the joined delivery errors, or nil when all endpoints answered 2xx.
func (n *Notifier) Notify(ctx context.Context, sum store.Summary) error {
	if len(n.urls) == 0 {
		return nil
	}
	// Anomaly counts would leak the answer key to a blind consumer.
	sum.Anomalies = nil

	errs := make([]error, len(n.urls))
	var wg sync.WaitGroup
	for i, url := range n.urls {
		i, url := i, url
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = n.send(ctx, url, sum)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// send delivers a single webhook call and logs the outcome.
func (n *Notifier) send(ctx context.Context, url string, sum store.Summary) error {
	payload := Payload{
		Event:       EventFixtureGenerated,
		DeliveryID:  uuid.NewString(),
		TriggeredAt: time.Now().UTC(),
		Fixture:     sum,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Fixture-Event", EventFixtureGenerated)
	req.Header.Set("X-Fixture-Delivery", payload.DeliveryID)

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("webhook: delivery failed", "url", url, "delivery_id", payload.DeliveryID, "error", err)
		return fmt.Errorf("webhook: deliver to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.log.Warn("webhook: endpoint rejected delivery", "url", url, "status", resp.StatusCode)
		return fmt.Errorf("webhook: %s answered %d", url, resp.StatusCode)
	}

	n.log.Info("webhook: delivered",
		"url", url,
		"status", resp.StatusCode,
		"delivery_id", payload.DeliveryID,
		"seed", sum.Seed,
	)
	return nil
}

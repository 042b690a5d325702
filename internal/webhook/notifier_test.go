package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultline/bankfixture/internal/domain"
	"vaultline/bankfixture/internal/store"
	"vaultline/bankfixture/internal/webhook"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func summary() store.Summary {
	return store.Summary{
		Seed:      42,
		AsOf:      time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Tables:    map[string]int{"customers": 500, "transactions": 6100},
		Anomalies: map[domain.PatternType]int{domain.PatternStructuring: 3},
	}
}

func TestNotify_DeliversToEveryURL(t *testing.T) {
	var mu sync.Mutex
	var got []webhook.Payload
	var deliveries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhook.Payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		got = append(got, p)
		deliveries = append(deliveries, r.Header.Get("X-Fixture-Delivery"))
		mu.Unlock()
		assert.Equal(t, webhook.EventFixtureGenerated, r.Header.Get("X-Fixture-Event"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := webhook.New([]string{srv.URL + "/a", srv.URL + "/b"}, quiet)
	require.NoError(t, n.Notify(context.Background(), summary()))

	require.Len(t, got, 2)
	for i, p := range got {
		assert.Equal(t, webhook.EventFixtureGenerated, p.Event)
		assert.Equal(t, int64(42), p.Fixture.Seed)
		assert.Equal(t, 6100, p.Fixture.Tables["transactions"])
		assert.Nil(t, p.Fixture.Anomalies, "anomaly counts must not leave the process")
		assert.Equal(t, deliveries[i], p.DeliveryID)
		_, err := uuid.Parse(p.DeliveryID)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, got[0].DeliveryID, got[1].DeliveryID)
}

func TestNotify_ReportsRejectedAndUnreachable(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer good.Close()
	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	err := webhook.New([]string{good.URL, bad.URL, closedURL}, quiet).Notify(context.Background(), summary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answered 500")
	assert.Contains(t, err.Error(), closedURL)
}

func TestNotify_NoURLsIsNoop(t *testing.T) {
	assert.NoError(t, webhook.New(nil, quiet).Notify(context.Background(), summary()))
}

func TestNotify_HonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := webhook.New([]string{srv.URL}, quiet).Notify(ctx, summary())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseURLs_DropsBlanks(t *testing.T) {
	assert.Equal(t, []string{"http://a/hook", "http://b/hook"}, webhook.ParseURLs(" http://a/hook,, http://b/hook ,"))
	assert.Empty(t, webhook.ParseURLs(""))
}

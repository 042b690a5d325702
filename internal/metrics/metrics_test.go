package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultline/bankfixture/internal/domain"
	"vaultline/bankfixture/internal/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecordGeneration_SetsTableAndPatternGauges(t *testing.T) {
	m := metrics.New()
	ds := &domain.Dataset{
		Customers: make([]domain.Customer, 3),
		Manifest: domain.Manifest{Entries: []domain.ManifestEntry{
			{Pattern: domain.PatternStructuring, Ordinal: 1},
			{Pattern: domain.PatternStructuring, Ordinal: 2},
		}},
	}
	m.RecordGeneration(ds, 2*time.Second, nil)

	out := scrape(t, m)
	assert.Contains(t, out, `bankfixture_table_rows{table="customers"} 3`)
	assert.Contains(t, out, `bankfixture_manifest_entries{pattern="structuring"} 2`)
	assert.Contains(t, out, `bankfixture_manifest_entries{pattern="relationship"} 0`)
	assert.Contains(t, out, `bankfixture_generations_total{outcome="ok"} 1`)
	assert.Contains(t, out, `bankfixture_generation_seconds_count 1`)
}

func TestRecordGeneration_FailureOnlyCountsOutcome(t *testing.T) {
	m := metrics.New()
	m.RecordGeneration(nil, time.Second, errors.New("boom"))

	out := scrape(t, m)
	assert.Contains(t, out, `bankfixture_generations_total{outcome="error"} 1`)
	assert.NotContains(t, out, "bankfixture_table_rows{")
}

func TestObserveHTTP_LabelsByRoute(t *testing.T) {
	m := metrics.New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/accounts/{id}", http.StatusOK, 5*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "/api/v1/accounts/{id}", http.StatusNotFound, time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `bankfixture_http_requests_total{method="GET",route="/api/v1/accounts/{id}",status="200"} 1`)
	assert.Contains(t, out, `bankfixture_http_requests_total{method="GET",route="/api/v1/accounts/{id}",status="404"} 1`)
	assert.Contains(t, out, `bankfixture_http_request_duration_seconds_count{method="GET",route="/api/v1/accounts/{id}"} 2`)
}

func TestNew_RegistriesAreIndependent(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	assert.NotContains(t, scrape(t, b), `route="/health"`)
}

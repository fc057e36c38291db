package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.Inc(CounterTicketsIssued)
	m.Inc(CounterTicketsIssued)
	m.RecordRequest("/admin/tickets", http.MethodGet, http.StatusOK)
	m.RecordError("/admin/login", http.MethodPost, "UNAUTHORIZED")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), m.Counter(CounterTicketsIssued))
	assert.Equal(t, int64(1), snap.Requests["/admin/tickets|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/admin/login|POST|UNAUTHORIZED"])

	var nilMetrics *Metrics
	nilMetrics.Inc(CounterTicketsIssued)
	assert.Zero(t, nilMetrics.Counter(CounterTicketsIssued))
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), metrics))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(HeaderRequestID))

	assert.Equal(t, int64(2), metrics.Snapshot().Requests["/ping|GET|200"])
}

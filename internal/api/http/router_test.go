package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/griga-events/ticketing/internal/api/http/handlers"
	"github.com/griga-events/ticketing/internal/auth"
	"github.com/griga-events/ticketing/internal/clock"
	"github.com/griga-events/ticketing/internal/config"
	"github.com/griga-events/ticketing/internal/notify"
	"github.com/griga-events/ticketing/internal/observability"
	"github.com/griga-events/ticketing/internal/payments"
	"github.com/griga-events/ticketing/internal/repository"
	"github.com/griga-events/ticketing/internal/service"
	"github.com/griga-events/ticketing/internal/store"
)

const (
	testWebhookSecret = "whsec_router_test"
	testAdminEmail    = "admin@griga.test"
	testAdminPassword = "correct horse"
)

const completedEvent = `{
  "id": "evt_router_1",
  "object": "event",
  "type": "checkout.session.completed",
  "created": 1735732800,
  "data": {"object": {
    "id": "cs_router_1",
    "customer_details": {"email": "a@b.com"},
    "metadata": {"name": "Wanjiru, K.", "phone": "+971500000000"}
  }}
}`

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent int
}

func (n *fakeNotifier) SendTicket(context.Context, notify.TicketEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent++
	return nil
}

type testServer struct {
	app      *fiber.App
	store    *store.TicketStore
	notifier *fakeNotifier
	metrics  *observability.Metrics
}

type serverOptions struct {
	webhookSecret string
	admin         config.AdminConfig
}

func defaultOptions(t *testing.T) serverOptions {
	t.Helper()
	hash, err := auth.HashPassword(testAdminPassword, bcrypt.MinCost)
	require.NoError(t, err)
	return serverOptions{
		webhookSecret: testWebhookSecret,
		admin: config.AdminConfig{
			Email:           testAdminEmail,
			PasswordHash:    hash,
			JWTSecret:       "router-test-secret",
			TokenTTLMinutes: 60,
			Realm:           "GRIGA Admin",
		},
	}
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	clk := clock.NewSystem()

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logger),
		BodyLimit:    1 << 20,
	})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)

	ticketStore := store.NewTicketStore(50, nil, logger)
	notifier := &fakeNotifier{}
	issue := service.NewIssueService(service.IssueDependencies{
		Verifier:  payments.NewWebhookVerifier(opts.webhookSecret),
		Notifier:  notifier,
		Tickets:   ticketStore,
		Ledger:    repository.NewMemoryWebhookEventLedger(time.Hour, clk),
		Clock:     clk,
		EventName: "Murima Night",
		Logger:    logger,
	})
	adminAuth := service.NewAdminAuthService(opts.admin, clk)
	checkout := service.NewCheckoutService(payments.NewCheckoutClient(config.StripeConfig{}, config.EventConfig{}), logger)

	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("griga-ticketing", "test", nil, nil, ticketStore, metrics),
		Webhook:         handlers.NewWebhookHandler(issue),
		Checkout:        handlers.NewCheckoutHandler(checkout),
		Admin:           handlers.NewAdminHandler(adminAuth, service.NewAdminTicketService(ticketStore, 200)),
		AdminMiddleware: auth.NewAdminMiddleware(adminAuth, adminAuth, opts.admin.Realm),
	})

	return &testServer{app: app, store: ticketStore, notifier: notifier, metrics: metrics}
}

func (s *testServer) do(t *testing.T, req *stdhttp.Request) (*stdhttp.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func (s *testServer) deliver(t *testing.T, payload, signature string) (*stdhttp.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/stripe/webhook", strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(handlers.HeaderStripeSignature, signature)
	}
	return s.do(t, req)
}

func (s *testServer) login(t *testing.T, email, password string) (*stdhttp.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodPost, "/admin/login", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return s.do(t, req)
}

func (s *testServer) token(t *testing.T) string {
	t.Helper()
	resp, body := s.login(t, testAdminEmail, testAdminPassword)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func (s *testServer) getWithToken(t *testing.T, path, token string) (*stdhttp.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.do(t, req)
}

func signed(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope), string(body))
	return envelope.Error.Code
}

func TestRootBanner(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))

	resp, body := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, Banner, string(body))
	assert.NotEmpty(t, resp.Header.Get(observability.HeaderRequestID))
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))

	resp, body := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/health/live", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"alive"`)

	resp, body = srv.do(t, httptest.NewRequest(fiber.MethodGet, "/health/ready", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ready","dependencies":{"tickets":{"count":0,"cap":50}}}`, string(body))

	resp, body = srv.do(t, httptest.NewRequest(fiber.MethodGet, "/health/metrics", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var snap observability.MetricsSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, int64(1), snap.Requests["/health/live|GET|200"])
}

func TestWebhookIssuesTicket(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))

	resp, body := srv.deliver(t, completedEvent, signed(completedEvent))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var ack struct {
		Received  bool   `json:"received"`
		Duplicate bool   `json:"duplicate"`
		TicketID  string `json:"ticketId"`
	}
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.True(t, ack.Received)
	assert.False(t, ack.Duplicate)
	assert.True(t, strings.HasPrefix(ack.TicketID, "MN-"))
	assert.Equal(t, 1, srv.store.Len())
	assert.Equal(t, 1, srv.notifier.sent)

	resp, body = srv.deliver(t, completedEvent, signed(completedEvent))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, string(body))
	assert.Equal(t, 1, srv.store.Len())
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))
	payload := `{"id":"evt_x","object":"event","type":"charge.refunded","data":{"object":{}}}`

	resp, body := srv.deliver(t, payload, signed(payload))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"received":true}`, string(body))
	assert.Zero(t, srv.store.Len())
}

func TestWebhookAcknowledgesSessionWithoutEmail(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))
	payload := `{"id":"evt_no_email","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2"}}}`

	resp, body := srv.deliver(t, payload, signed(payload))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"received":true}`, string(body))
	assert.Zero(t, srv.store.Len())
	assert.Zero(t, srv.notifier.sent)
}

func TestWebhookErrors(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		srv := newTestServer(t, defaultOptions(t))
		resp, body := srv.deliver(t, completedEvent, "t=1,v1=bad")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_SIGNATURE", errorCode(t, body))
		assert.Zero(t, srv.store.Len())
		assert.Zero(t, srv.notifier.sent)
	})

	t.Run("missing signature", func(t *testing.T) {
		srv := newTestServer(t, defaultOptions(t))
		resp, body := srv.deliver(t, completedEvent, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_SIGNATURE", errorCode(t, body))
	})

	t.Run("secret not configured", func(t *testing.T) {
		opts := defaultOptions(t)
		opts.webhookSecret = ""
		srv := newTestServer(t, opts)
		resp, body := srv.deliver(t, completedEvent, signed(completedEvent))
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "CONFIG_MISSING", errorCode(t, body))
		assert.Zero(t, srv.store.Len())
	})

	t.Run("notification failure", func(t *testing.T) {
		srv := newTestServer(t, defaultOptions(t))
		srv.notifier.err = errors.New("smtp: connection refused")
		resp, body := srv.deliver(t, completedEvent, signed(completedEvent))
		assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "NOTIFICATION_FAILED", errorCode(t, body))
		assert.Zero(t, srv.store.Len())

		srv.notifier.err = nil
		resp, _ = srv.deliver(t, completedEvent, signed(completedEvent))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, srv.store.Len())
	})

	t.Run("body too large", func(t *testing.T) {
		srv := newTestServer(t, defaultOptions(t))
		big := strings.Repeat("x", 2<<20)
		resp, _ := srv.deliver(t, big, signed(big))
		assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Zero(t, srv.store.Len())
	})
}

func TestAdminLogin(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))

	resp, body := srv.login(t, strings.ToUpper(testAdminEmail), testAdminPassword)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, int64(3600), out.ExpiresIn)

	resp, body = srv.login(t, testAdminEmail, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	resp, wrongPassword := srv.login(t, testAdminEmail, "nope")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, wrongEmail := srv.login(t, "someone@griga.test", testAdminPassword)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, string(wrongPassword), string(wrongEmail))
	assert.Contains(t, string(wrongPassword), "invalid credentials")
}

func TestAdminTickets(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))
	_, _ = srv.deliver(t, completedEvent, signed(completedEvent))
	token := srv.token(t)

	resp, body := srv.getWithToken(t, "/admin/tickets", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var tickets []map[string]any
	require.NoError(t, json.Unmarshal(body, &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, "a@b.com", tickets[0]["email"])
	assert.Equal(t, "Wanjiru, K.", tickets[0]["name"])
	assert.Equal(t, "Stripe", tickets[0]["method"])
	assert.Contains(t, tickets[0]["qr"], `"ticketId"`)

	_, body = srv.getWithToken(t, "/admin/tickets?q=nobody", token)
	assert.JSONEq(t, `[]`, string(body))

	for name, tok := range map[string]string{"missing": "", "garbage": "not-a-jwt", "tampered": token + "x"} {
		resp, body := srv.getWithToken(t, "/admin/tickets", tok)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, name)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, body), name)
	}
}

func TestAdminTicketsCSV(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))
	_, _ = srv.deliver(t, completedEvent, signed(completedEvent))
	ticket := srv.store.List(1)[0]

	resp, body := srv.getWithToken(t, "/admin/tickets.csv", srv.token(t))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/csv"))
	assert.Equal(t,
		"Ticket ID,Name,Email,Method,Timestamp\n"+
			ticket.ID+`,"Wanjiru, K.",a@b.com,Stripe,2025-01-01T12:00:00Z`+"\n",
		string(body))
}

func TestAdminRoutesFailClosedWhenUnconfigured(t *testing.T) {
	opts := defaultOptions(t)
	opts.admin.JWTSecret = ""
	srv := newTestServer(t, opts)

	resp, body := srv.login(t, testAdminEmail, testAdminPassword)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "CONFIG_MISSING", errorCode(t, body))

	resp, body = srv.getWithToken(t, "/admin/tickets", "anything")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "CONFIG_MISSING", errorCode(t, body))

	req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.SetBasicAuth(testAdminEmail, testAdminPassword)
	resp, _ = srv.do(t, req)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestAdminDashboardBasicAuth(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))

	resp, _ := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/admin", nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Basic realm="GRIGA Admin"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))

	req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte(testAdminEmail+":wrong")))
	resp, _ = srv.do(t, req)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.SetBasicAuth("ADMIN@griga.test", testAdminPassword)
	resp, body := srv.do(t, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/html"))
	assert.Contains(t, string(body), "admin-login-form")
}

func TestCheckoutSession(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))

	req := httptest.NewRequest(fiber.MethodPost, "/checkout/session", strings.NewReader(`{"name":"Amani"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, body := srv.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	req = httptest.NewRequest(fiber.MethodPost, "/checkout/session", strings.NewReader(`{"name":"Amani","email":"a@b.com"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, body = srv.do(t, req)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "CONFIG_MISSING", errorCode(t, body))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, defaultOptions(t))

	resp, body := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/nope", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

package handlers

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/griga-events/ticketing/internal/api/dto"
	"github.com/griga-events/ticketing/internal/auth"
	"github.com/griga-events/ticketing/internal/service"
	apperrors "github.com/griga-events/ticketing/pkg/util/errorutil"
)

//go:embed assets/dashboard.html
var dashboardHTML []byte

var csvHeader = []string{"Ticket ID", "Name", "Email", "Method", "Timestamp"}

// AdminHandler exposes the admin login, ticket listing and dashboard.
type AdminHandler struct {
	auth    *service.AdminAuthService
	tickets *service.AdminTicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AdminAuthService, tickets *service.AdminTicketService) *AdminHandler {
	return &AdminHandler{auth: authService, tickets: tickets}
}

// Login handles POST /admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	token, _, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrNotConfigured):
		return apperrors.NewConfigError(err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid credentials")
	default:
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.AdminLoginResponse{
		Token:     token,
		ExpiresIn: int64(h.auth.TokenTTL() / time.Second),
	})
}

// Tickets handles GET /admin/tickets.
func (h *AdminHandler) Tickets(c *fiber.Ctx) error {
	return c.JSON(h.tickets.List(ticketQuery(c)))
}

// TicketsCSV handles GET /admin/tickets.csv.
func (h *AdminHandler) TicketsCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return apperrors.NewInternalError(err)
	}
	for _, t := range h.tickets.List(ticketQuery(c)) {
		row := []string{t.ID, t.Name, t.Email, string(t.Method), t.Timestamp.UTC().Format(time.RFC3339)}
		if err := w.Write(row); err != nil {
			return apperrors.NewInternalError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="griga-tickets.csv"`)
	return c.Send(buf.Bytes())
}

// Dashboard handles GET /admin.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.Send(dashboardHTML)
}

func ticketQuery(c *fiber.Ctx) service.TicketQuery {
	return service.TicketQuery{
		Limit:  c.QueryInt("limit", 0),
		Search: c.Query("q"),
	}
}

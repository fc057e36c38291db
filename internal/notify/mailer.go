package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/griga-events/ticketing/internal/config"
)

// ErrNotConfigured means no SMTP host or sender address is set.
var ErrNotConfigured = errors.New("email transport is not configured")

// Dialer sends fully built messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// TicketEmail is everything needed to email one issued ticket.
type TicketEmail struct {
	To        string
	Name      string
	TicketID  string
	QRPayload string
}

// Mailer renders ticket emails with an inline QR image and sends them over SMTP.
type Mailer struct {
	smtp   config.SMTPConfig
	event  config.EventConfig
	dialer Dialer
	logger *zap.Logger
}

// NewMailer builds a mailer using an SMTP dialer from cfg.
func NewMailer(smtp config.SMTPConfig, event config.EventConfig, logger *zap.Logger) *Mailer {
	var dialer Dialer
	if smtp.Configured() {
		dialer = gomail.NewDialer(smtp.Host, smtp.Port, smtp.User, smtp.Password)
	}
	return NewMailerWithDialer(smtp, event, dialer, logger)
}

// NewMailerWithDialer builds a mailer around an explicit transport.
func NewMailerWithDialer(smtp config.SMTPConfig, event config.EventConfig, dialer Dialer, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{smtp: smtp, event: event, dialer: dialer, logger: logger}
}

var ticketHTML = template.Must(template.New("ticket").Parse(`<p>Hi {{.Name}},</p>
<p>Payment of <strong>{{.Price}} AED</strong> is confirmed for <strong>{{.Event}}</strong>.</p>
{{- if .Location}}
<p>Event location: {{.Location}}</p>
{{- end}}
<p>Show the QR below at the gate for contactless entry.</p>
<img src="cid:{{.QRFile}}" alt="QR ticket" style="max-width:240px;display:block;margin:16px auto;" />
<p>Ticket #{{.TicketID}}</p>
<p>See you there!</p>`))

type ticketView struct {
	Name     string
	Price    string
	Event    string
	Location string
	QRFile   string
	TicketID string
}

// SendTicket renders the QR payload and delivers the ticket email. Errors from
// rendering or the transport are returned unchanged in meaning; nothing is retried.
func (m *Mailer) SendTicket(ctx context.Context, email TicketEmail) error {
	if m.dialer == nil || !m.smtp.Configured() {
		return ErrNotConfigured
	}
	if email.To == "" {
		return errors.New("ticket email has no recipient")
	}

	png, err := RenderQR(email.QRPayload, QRSize)
	if err != nil {
		return err
	}

	msg, err := m.buildMessage(email, png)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send ticket email: %w", err)
	}

	m.logger.Info("ticket email sent", zap.String("ticket_id", email.TicketID), zap.String("to", email.To))
	return nil
}

func (m *Mailer) buildMessage(email TicketEmail, png []byte) (*gomail.Message, error) {
	qrFile := email.TicketID + "-qr.png"

	var html bytes.Buffer
	if err := ticketHTML.Execute(&html, ticketView{
		Name:     email.Name,
		Price:    m.event.Price,
		Event:    m.event.Name,
		Location: m.event.Location,
		QRFile:   qrFile,
		TicketID: email.TicketID,
	}); err != nil {
		return nil, fmt.Errorf("render ticket email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.smtp.From)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", fmt.Sprintf("%s Ticket #%s", m.event.Name, email.TicketID))
	msg.SetBody("text/plain", fmt.Sprintf("%s, thank you for booking your spot. Please see the attached QR code for entry.", email.Name))
	msg.AddAlternative("text/html", html.String())
	msg.Embed(qrFile, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(png)
		return err
	}))
	return msg, nil
}

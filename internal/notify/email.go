// Package notify renders and delivers enrollment status emails.  It runs on
// the consumer side of the status-change queue, never inside a request.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/jadpai-enrollment/internal/config"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/queue"
)

type emailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

var templates = map[string]emailTemplate{
	model.EnrollmentConfirmed: {
		subject: texttemplate.Must(texttemplate.New("s").Parse(`Your Enrollment is Confirmed for {{.EventName}}!`)),
		body: template.Must(template.New("b").Parse(`<p>Hi {{.Name}},</p>
<p>Great news! Your enrollment for the event "<strong>{{.EventName}}</strong>" has been confirmed.</p>
<p>We look forward to seeing you there!</p>
<p>Best regards,<br>The Event Team</p>
`)),
	},
	model.EnrollmentRejected: {
		subject: texttemplate.Must(texttemplate.New("s").Parse(`Update on Your Enrollment for {{.EventName}}`)),
		body: template.Must(template.New("b").Parse(`<p>Hi {{.Name}},</p>
<p>Thank you for your interest in the event "<strong>{{.EventName}}</strong>".</p>
<p>Unfortunately, we are unable to confirm your enrollment at this time. This may be due to the event reaching full capacity or other factors.</p>
<p>We appreciate your understanding.</p>
<p>Best regards,<br>The Event Team</p>
`)),
	},
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Render builds the email for ev.  ok is false for statuses that have no
// template; those are skipped, not failed.
func Render(ev queue.StatusChangedEvent) (msg Message, ok bool, err error) {
	tpl, found := templates[ev.Status]
	if !found {
		return Message{}, false, nil
	}
	var subj, body bytes.Buffer
	if err := tpl.subject.Execute(&subj, ev); err != nil {
		return Message{}, false, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, ev); err != nil {
		return Message{}, false, fmt.Errorf("render body: %w", err)
	}
	return Message{To: ev.Recipient, Subject: subj.String(), HTML: body.String()}, true, nil
}

// Sender delivers a raw RFC 5322 message.
type Sender interface {
	Send(from string, to []string, msg []byte) error
}

// SMTPSender delivers through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	Addr string
	Auth smtp.Auth
}

func (s SMTPSender) Send(from string, to []string, msg []byte) error {
	return smtp.SendMail(s.Addr, s.Auth, from, to, msg)
}

// Mailer turns status-change events into emails.
type Mailer struct {
	from    string // header value, may include a display name
	sender  Sender
	limiter *rate.Limiter // nil means unthrottled
	log     *slog.Logger
}

// NewMailer builds a mailer from SMTP settings.  When From is empty the
// sender is `"JadPai" <User>`.
func NewMailer(cfg config.SMTPConfig, log *slog.Logger) *Mailer {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	m := NewMailerWithSender(senderAddress(cfg), SMTPSender{Addr: net.JoinHostPort(cfg.Host, cfg.Port), Auth: auth}, log)
	return m.Throttle(cfg.MaxPerMinute)
}

// NewMailerWithSender uses an explicit transport.
func NewMailerWithSender(from string, sender Sender, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{from: from, sender: sender, log: log.With("component", "mailer")}
}

// Throttle caps delivery at perMinute messages.  Zero or less removes the
// cap.  Relays such as Gmail reject bursts from one account.
func (m *Mailer) Throttle(perMinute int) *Mailer {
	if perMinute <= 0 {
		m.limiter = nil
		return m
	}
	m.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	return m
}

func senderAddress(cfg config.SMTPConfig) string {
	if cfg.From != "" {
		return cfg.From
	}
	return (&mail.Address{Name: "JadPai", Address: cfg.User}).String()
}

// Handle renders and sends the email for ev.  It satisfies queue.Handler.
func (m *Mailer) Handle(ctx context.Context, ev queue.StatusChangedEvent) error {
	msg, ok, err := Render(ev)
	if err != nil {
		return err
	}
	if !ok {
		m.log.Debug("no template for status, skipping", "status", ev.Status, "enrollment_id", ev.EnrollmentID)
		return nil
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("enrollment %d has no recipient", ev.EnrollmentID)
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle: %w", err)
		}
	}

	envelope := m.from
	if a, err := mail.ParseAddress(m.from); err == nil {
		envelope = a.Address
	}
	if err := m.sender.Send(envelope, []string{msg.To}, m.compose(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	m.log.Info("status email sent", "enrollment_id", ev.EnrollmentID, "status", ev.Status)
	return nil
}

func (m *Mailer) compose(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return b.Bytes()
}

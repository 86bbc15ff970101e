package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/slotline/slotline-api/internal/domain"
)

type Mailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	m := &Mailer{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *Mailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAILER_FROM)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

func (m *Mailer) SendRequestConfirmation(req *domain.BookingRequest, confirmLink string) error {
	subject := "Confirm your booking"
	when := req.StartTime.Format("Mon, 2 Jan 2006 15:04 MST")
	text := fmt.Sprintf("Confirm your booking for %s before %s: %s",
		when, req.ExpiresAt.Format("15:04 MST"), confirmLink)
	html := fmt.Sprintf(`<p>Confirm your booking for <b>%s</b>.</p><p><a href="%s">Confirm booking</a> (link expires %s)</p>`,
		when, confirmLink, req.ExpiresAt.Format("15:04 MST"))
	_, err := m.Send(req.CustomerEmail, req.CustomerName, subject, text, html)
	return err
}

func (m *Mailer) SendBookingConfirmed(b *domain.Booking) error {
	subject := "Your booking is confirmed"
	when := b.StartTime.Format("Mon, 2 Jan 2006 15:04 MST")
	text := fmt.Sprintf("Your booking on %s is confirmed.", when)
	html := fmt.Sprintf("<p>Your booking on <b>%s</b> is confirmed.</p>", when)
	_, err := m.Send(b.CustomerEmail, b.CustomerName, subject, text, html)
	return err
}

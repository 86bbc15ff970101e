package mailer

import (
	"fmt"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/pkg/logger"
)

// DevMailer prints emails to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendRequestConfirmation(req *domain.BookingRequest, confirmLink string) error {
	logger.Info("[DEV MAIL] Booking confirmation request",
		"to", req.CustomerEmail,
		"start", req.StartTime,
		"confirm_link", confirmLink,
		"expires_at", req.ExpiresAt,
	)

	fmt.Printf("\n"+
		"=================================================================\n"+
		"CONFIRMATION EMAIL (DEV MODE)\n"+
		"=================================================================\n"+
		"To: %s (%s)\n"+
		"Subject: Confirm your booking\n"+
		"\n"+
		"Slot: %s - %s\n"+
		"Confirm link: %s\n"+
		"Expires: %s\n"+
		"=================================================================\n\n",
		req.CustomerEmail, req.CustomerName,
		req.StartTime.Format("2006-01-02 15:04"), req.EndTime.Format("15:04"),
		confirmLink, req.ExpiresAt.Format("2006-01-02 15:04"))

	return nil
}

func (d *DevMailer) SendBookingConfirmed(b *domain.Booking) error {
	logger.Info("[DEV MAIL] Booking confirmed",
		"to", b.CustomerEmail,
		"start", b.StartTime,
		"end", b.EndTime,
	)
	return nil
}

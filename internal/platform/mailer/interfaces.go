package mailer

import "github.com/slotline/slotline-api/internal/domain"

type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendRequestConfirmation(req *domain.BookingRequest, confirmLink string) error
	SendBookingConfirmed(b *domain.Booking) error
}

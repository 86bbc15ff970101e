// Package calendar implements the external calendar integrations used by the
// busy-set aggregator. Each provider is constructed once at process start and
// injected; nothing here is looked up through globals.
package calendar

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/slotline/slotline-api/internal/scheduling"
)

const (
	ProviderGoogle  = "google"
	ProviderOutlook = "outlook"
)

// TokenStore persists per-host OAuth tokens for a provider.
type TokenStore interface {
	Token(ctx context.Context, hostID int64, provider string) (*oauth2.Token, error)
	Save(ctx context.Context, hostID int64, provider string, token *oauth2.Token) error
}

// Writer is the optional push side: after a booking commits, the confirmed
// interval is mirrored to connected calendars fire-and-forget. A failure here
// never affects the booking itself.
type Writer interface {
	Name() string
	CreateEvent(ctx context.Context, hostID int64, summary string, window scheduling.Interval) error
}

package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/scheduling"
)

// GoogleProvider reads busy periods from a host's primary Google calendar via
// the FreeBusy API and mirrors confirmed bookings back as events.
type GoogleProvider struct {
	oauth  *oauth2.Config
	tokens TokenStore
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string, tokens TokenStore) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{gcal.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		tokens: tokens,
	}
}

func (g *GoogleProvider) Name() string { return ProviderGoogle }

// AuthCodeURL starts the OAuth consent flow for a host.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and persists it.
func (g *GoogleProvider) Exchange(ctx context.Context, hostID int64, code string) error {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange google auth code: %w", err)
	}
	return g.tokens.Save(ctx, hostID, ProviderGoogle, token)
}

func (g *GoogleProvider) service(ctx context.Context, hostID int64) (*gcal.Service, error) {
	token, err := g.tokens.Token(ctx, hostID, ProviderGoogle)
	if err != nil {
		return nil, fmt.Errorf("load google token: %w", err)
	}
	return gcal.NewService(ctx, option.WithTokenSource(g.oauth.TokenSource(ctx, token)))
}

func (g *GoogleProvider) GetBusyIntervals(ctx context.Context, hostID int64, window scheduling.Interval) ([]scheduling.Interval, error) {
	svc, err := g.service(ctx, hostID)
	if errors.Is(err, domain.ErrNotFound) {
		// Host never linked Google; nothing to report.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: window.Start.Format(time.RFC3339),
		TimeMax: window.End.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: "primary"}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google freebusy query: %w", err)
	}

	cal, ok := resp.Calendars["primary"]
	if !ok {
		return nil, nil
	}

	var busy []scheduling.Interval
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("parse busy start %q: %w", period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("parse busy end %q: %w", period.End, err)
		}
		busy = append(busy, scheduling.Interval{Start: start.UTC(), End: end.UTC()})
	}
	return busy, nil
}

func (g *GoogleProvider) CreateEvent(ctx context.Context, hostID int64, summary string, window scheduling.Interval) error {
	svc, err := g.service(ctx, hostID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = svc.Events.Insert("primary", &gcal.Event{
		Summary: summary,
		Start:   &gcal.EventDateTime{DateTime: window.Start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: window.End.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("google event insert: %w", err)
	}
	return nil
}

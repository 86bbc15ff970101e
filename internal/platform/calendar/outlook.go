package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/internal/scheduling"
)

// OutlookProvider reads a host's busy periods through the Microsoft Graph
// calendar view endpoint. Tokens are provisioned through the shared TokenStore
// like the Google provider's.
type OutlookProvider struct {
	baseURL string
	client  *http.Client
	tokens  TokenStore
}

func NewOutlookProvider(baseURL string, tokens TokenStore) *OutlookProvider {
	return &OutlookProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
	}
}

func (o *OutlookProvider) Name() string { return ProviderOutlook }

type calendarViewParams struct {
	StartDateTime string `url:"startDateTime"`
	EndDateTime   string `url:"endDateTime"`
	Select        string `url:"$select"`
	Top           int    `url:"$top"`
}

type graphEvent struct {
	ShowAs string        `json:"showAs"`
	Start  graphDateTime `json:"start"`
	End    graphDateTime `json:"end"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
}

type calendarViewResponse struct {
	Value []graphEvent `json:"value"`
}

// graphTimeLayout is the fractional-seconds local format Graph returns when
// asked for UTC via the Prefer header.
const graphTimeLayout = "2006-01-02T15:04:05.9999999"

func (o *OutlookProvider) GetBusyIntervals(ctx context.Context, hostID int64, window scheduling.Interval) ([]scheduling.Interval, error) {
	token, err := o.tokens.Token(ctx, hostID, ProviderOutlook)
	if errors.Is(err, domain.ErrNotFound) {
		// Host never linked Outlook; nothing to report.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load outlook token: %w", err)
	}

	params, err := query.Values(calendarViewParams{
		StartDateTime: window.Start.Format(time.RFC3339),
		EndDateTime:   window.End.Format(time.RFC3339),
		Select:        "start,end,showAs",
		Top:           250,
	})
	if err != nil {
		return nil, fmt.Errorf("encode calendar view query: %w", err)
	}

	url := o.baseURL + "/me/calendarView?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("outlook calendar view: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("outlook calendar view: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var view calendarViewResponse
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode calendar view: %w", err)
	}

	var busy []scheduling.Interval
	for _, ev := range view.Value {
		if ev.ShowAs == "free" {
			continue
		}
		start, err := parseGraphTime(ev.Start.DateTime)
		if err != nil {
			return nil, err
		}
		end, err := parseGraphTime(ev.End.DateTime)
		if err != nil {
			return nil, err
		}
		busy = append(busy, scheduling.Interval{Start: start, End: end})
	}
	return busy, nil
}

func (o *OutlookProvider) CreateEvent(ctx context.Context, hostID int64, summary string, window scheduling.Interval) error {
	token, err := o.tokens.Token(ctx, hostID, ProviderOutlook)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load outlook token: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"subject": summary,
		"showAs":  "busy",
		"start":   map[string]string{"dateTime": window.Start.Format(graphTimeLayout), "timeZone": "UTC"},
		"end":     map[string]string{"dateTime": window.End.Format(graphTimeLayout), "timeZone": "UTC"},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/me/events", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("outlook event create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("outlook event create: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func parseGraphTime(s string) (time.Time, error) {
	t, err := time.Parse(graphTimeLayout, s)
	if err != nil {
		// Some tenants return RFC3339 with an explicit offset.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse graph time %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

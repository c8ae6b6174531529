// Package notifier sends the tracking event the web client emits before each
// withdrawal history page is loaded.
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jatushlashkari/finance-v1/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EndpointName labels tracking requests in logs and metrics.
const EndpointName = "producer"

// Event identifies the app installation the tracking event is reported for.
type Event struct {
	Code     string
	Package  string
	Channel  string
	PN       string
	Platform string
	AID      string
	GAID     string
	UID      string
	EventKey string
}

// Payload is the JSON body of a tracking call.
type Payload struct {
	Code           string      `json:"code"`
	TS             int64       `json:"ts"`
	CTS            string      `json:"cts"`
	Pkg            string      `json:"pkg"`
	Channel        string      `json:"channel"`
	PN             string      `json:"pn"`
	IP             string      `json:"ip"`
	Platform       string      `json:"platform"`
	AID            string      `json:"aid"`
	GAID           *string     `json:"gaid"`
	TaurusStatUUID *string     `json:"taurus_stat_uuid"`
	UID            string      `json:"uid"`
	Type           string      `json:"type"`
	ListJSON       []EventItem `json:"listJson"`
}

// EventItem is one entry of listJson. TS is in seconds, as a string.
type EventItem struct {
	TS         string `json:"ts"`
	EventKey   string `json:"eventKey"`
	EventValue string `json:"eventValue"`
}

// Notifier posts tracking events.
type Notifier struct {
	http   *client.Client
	url    string
	event  Event
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a notifier posting to url.
func New(httpClient *client.Client, url string, event Event) (*Notifier, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if url == "" {
		return nil, fmt.Errorf("producer url is required")
	}
	if event.Code == "" {
		return nil, fmt.Errorf("event code is required")
	}

	return &Notifier{
		http:   httpClient,
		url:    url,
		event:  event,
		now:    time.Now,
		logger: log.With().Str("component", "notifier").Logger(),
	}, nil
}

// SetClock overrides the time source (for testing).
func (n *Notifier) SetClock(now func() time.Time) {
	n.now = now
}

// BuildPayload returns the payload for a call made at t.
func (n *Notifier) BuildPayload(t time.Time) Payload {
	ms := t.UnixMilli()

	var gaid *string
	if n.event.GAID != "" {
		g := n.event.GAID
		gaid = &g
	}

	return Payload{
		Code:     n.event.Code,
		TS:       ms,
		CTS:      "",
		Pkg:      n.event.Package,
		Channel:  n.event.Channel,
		PN:       n.event.PN,
		IP:       "",
		Platform: n.event.Platform,
		AID:      n.event.AID,
		GAID:     gaid,
		UID:      n.event.UID,
		Type:     "event",
		ListJSON: []EventItem{
			{
				TS:         strconv.FormatInt(ms/1000, 10),
				EventKey:   n.event.EventKey,
				EventValue: "",
			},
		},
	}
}

// Notify sends one tracking event. Only transport failures are returned; an
// HTTP error status is logged and still counts as delivered.
func (n *Notifier) Notify(ctx context.Context) error {
	payload := n.BuildPayload(n.now())

	header := n.http.BrowserHeaders()
	header.Set("Content-Type", "application/json")

	n.logger.Debug().Int64("ts", payload.TS).Msg("Calling producer API")

	resp, err := n.http.PostJSON(ctx, EndpointName, n.url, header, payload)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Error calling producer API")
		return fmt.Errorf("producer call: %w", err)
	}

	n.logger.Info().
		Int("status", resp.StatusCode).
		Str("response", resp.Text()).
		Msg("Producer API called")

	return nil
}

package withdrawal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jatushlashkari/finance-v1/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EndpointName labels detail requests in logs and metrics.
const EndpointName = "withdraw_detail"

var (
	// ErrUnexpectedStatus is returned when the endpoint answers with a status other than 200.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrMalformedResponse is returned when the body is not {code: 0, data: {records: [...]}}.
	ErrMalformedResponse = errors.New("malformed response")
)

// invalidRecordsTotal counts data.records elements dropped because they are not objects.
var invalidRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "withdraw_records_invalid_total",
	Help: "Total page elements skipped because they are not JSON objects",
})

// PageRequest is the body of a detail request.
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

type detailResponse struct {
	Code *json.Number `json:"code"`
	Data *struct {
		Records json.RawMessage `json:"records"`
	} `json:"data"`
}

// DetailClient fetches pages of withdrawal records.
type DetailClient struct {
	http   *client.Client
	url    string
	token  string
	logger zerolog.Logger
}

// NewDetailClient creates a client for the withdraw detail endpoint. token is
// sent in the "token" header of every request.
func NewDetailClient(httpClient *client.Client, url, token string) (*DetailClient, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if url == "" {
		return nil, fmt.Errorf("detail url is required")
	}
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}

	return &DetailClient{
		http:   httpClient,
		url:    url,
		token:  token,
		logger: log.With().Str("component", "detail-client").Logger(),
	}, nil
}

// FetchPage requests one page. It returns the page's records, which may be an
// empty slice when the endpoint has no more data.
//
// Errors are one of: a transport *client.APIError, ErrUnexpectedStatus, or
// ErrMalformedResponse.
func (c *DetailClient) FetchPage(ctx context.Context, page, size int) ([]RawRecord, error) {
	header := c.http.BrowserHeaders()
	header.Set("Content-Type", "application/json;charset=UTF-8")
	header.Set("Sec-Fetch-Storage-Access", "active")
	header.Set("Token", c.token)

	c.logger.Debug().Int("page", page).Int("size", size).Msg("Requesting page")

	resp, err := c.http.PostJSON(ctx, EndpointName, c.url, header, PageRequest{Page: page, Size: size})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(resp.Text(), 512))
	}

	var body detailResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if body.Code == nil {
		return nil, fmt.Errorf("%w: code missing", ErrMalformedResponse)
	}
	if code, err := body.Code.Float64(); err != nil || code != 0 {
		return nil, fmt.Errorf("%w: code %s: %s", ErrMalformedResponse, body.Code.String(), truncate(resp.Text(), 512))
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: data missing", ErrMalformedResponse)
	}

	raw := bytes.TrimSpace(body.Data.Records)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: data.records missing", ErrMalformedResponse)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: data.records: %v", ErrMalformedResponse, err)
	}

	records := make([]RawRecord, 0, len(elems))
	for i, elem := range elems {
		rec, err := decodeRecord(elem)
		if err != nil {
			invalidRecordsTotal.Inc()
			c.logger.Warn().
				Err(err).
				Int("page", page).
				Int("index", i).
				Str("record", truncate(string(elem), 128)).
				Msg("Skipping record that is not a JSON object")
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// decodeRecord decodes one element of data.records. A JSON null yields a nil
// record, which normalization reports as a record error.
func decodeRecord(elem json.RawMessage) (RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(elem))
	dec.UseNumber()
	var rec RawRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

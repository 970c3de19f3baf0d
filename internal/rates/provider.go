package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultProviderURL serves rates per one USD without an API key.
const DefaultProviderURL = "https://api.exchangerate-api.com/v4/latest/USD"

const maxPayloadBytes = 1 << 20

var ErrMalformedPayload = errors.New("malformed rates payload")

// Provider fetches the latest rates per one unit of the base currency.
type Provider interface {
	Fetch(ctx context.Context) (map[string]decimal.Decimal, error)
}

// StatusError is returned for a non-success response from the provider.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rates provider returned status %d", e.Code)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// HTTPProvider fetches rates from an exchangerate-api compatible endpoint.
type HTTPProvider struct {
	URL    string
	Client *http.Client
}

func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	if url == "" {
		url = DefaultProviderURL
	}
	return &HTTPProvider{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Fetch implements Provider.
func (p *HTTPProvider) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var body latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%w: no rates", ErrMalformedPayload)
	}
	return body.Rates, nil
}

package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnavailable covers transport failures and non-2xx responses from the
// rate provider.
var ErrUnavailable = errors.New("exchange rate provider unavailable")

// Client fetches USD-relative conversion rates from exchangerate-api.com.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func New(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpc:   &http.Client{},
	}
}

type latestResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// LatestRates returns the provider's current USD-relative rates for all
// supported ISO currency codes. rates["USD"] is 1 by construction.
func (c *Client) LatestRates(ctx context.Context) (map[string]float64, error) {
	const op = "clients.exchangerate.LatestRates"

	url := fmt.Sprintf("%s/v6/%s/latest/USD", c.baseURL, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: status %d: %s", op, ErrUnavailable, resp.StatusCode, body)
	}

	var result latestResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if result.Result != "success" || len(result.ConversionRates) == 0 {
		return nil, fmt.Errorf("%s: %w: result %q", op, ErrUnavailable, result.Result)
	}

	return result.ConversionRates, nil
}

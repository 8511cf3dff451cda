package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/minaret-app/minaret/internal/model"
)

// CalculationMethod is the integer identifier of an Islamic prayer-time
// calculation convention, passed through to the provider.
type CalculationMethod int

const (
	MethodKarachi           CalculationMethod = 1
	MethodISNA              CalculationMethod = 2
	MethodMWL               CalculationMethod = 3
	MethodUmmAlQura         CalculationMethod = 4
	MethodEgyptianAuthority CalculationMethod = 5
)

// Provider fetches one day's timing table for a location.
type Provider interface {
	FetchTimings(ctx context.Context, coord model.Coordinate, date string, method CalculationMethod) (Table, error)
}

// Client talks to an Aladhan-compatible timings API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type timingsResponse struct {
	Code int `json:"code"`
	Data struct {
		Timings map[string]string `json:"timings"`
		Meta    struct {
			Timezone string `json:"timezone"`
		} `json:"meta"`
	} `json:"data"`
}

// FetchTimings fetches and validates the table for date (YYYY-MM-DD). The
// provider keys requests by DD-MM-YYYY; the table keeps the ISO date.
func (c *Client) FetchTimings(ctx context.Context, coord model.Coordinate, date string, method CalculationMethod) (Table, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return Table{}, fmt.Errorf("%w: bad date %q", ErrDataUnavailable, date)
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%f", coord.Latitude))
	q.Set("longitude", fmt.Sprintf("%f", coord.Longitude))
	q.Set("method", fmt.Sprintf("%d", int(method)))
	endpoint := fmt.Sprintf("%s/v1/timings/%s?%s", c.baseURL, day.Format("02-01-2006"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Table{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Table{}, fmt.Errorf("%w: provider returned %d", ErrDataUnavailable, resp.StatusCode)
	}

	var body timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	// keep exactly the six named timings, drop the provider extras
	timings := make(map[string]string, len(Order))
	for _, name := range Order {
		v, ok := body.Data.Timings[name]
		if !ok {
			return Table{}, fmt.Errorf("%w: provider response missing %s", ErrDataUnavailable, name)
		}
		timings[name] = v
	}

	table := Table{
		Timings:  timings,
		Timezone: body.Data.Meta.Timezone,
		Date:     date,
	}
	if err := Validate(table, date); err != nil {
		return Table{}, err
	}
	return table, nil
}

var _ Provider = (*Client)(nil)

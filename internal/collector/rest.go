package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockLens/internal/model"
)

// RESTFetcher reads the stock_prices table through a PostgREST-compatible
// endpoint such as Supabase.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Table   string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Table:   "stock_prices",
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restRow is one stock_prices row. close may arrive as a number or a string
// depending on the column type.
type restRow struct {
	Date  string          `json:"date"`
	Close json.RawMessage `json:"close"`
}

func (r restRow) closeValue() (float64, error) {
	s := strings.Trim(string(r.Close), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, start time.Time) ([]model.PriceBar, error) {
	q := url.Values{}
	q.Set("select", "date,close")
	q.Set("ticker", "eq."+symbol)
	q.Set("date", "gte."+model.DayOf(start).Format("2006-01-02"))
	q.Set("order", "date.asc")
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", f.BaseURL, f.Table, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("apikey", f.APIKey)
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rows []restRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.PriceBar, 0, len(rows))
	for _, r := range rows {
		date, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("decode bars: %w", err)
		}
		c, err := r.closeValue()
		if err != nil {
			return nil, fmt.Errorf("decode bars: close on %s: %w", r.Date, err)
		}
		bars = append(bars, model.PriceBar{Date: date, Close: c})
	}
	return normalize(bars, start), nil
}

// parseDate accepts plain dates and full timestamps.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

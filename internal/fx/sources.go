package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Source is one upstream rate API. URL holds a single %s verb for the
// query-escaped base currency.
type Source struct {
	Name string
	URL  string
}

// DefaultSources returns the provider chain in the order it is tried.
// The keyed exchangerate.host variants are included only when apiKey is set.
func DefaultSources(apiKey string) []Source {
	var sources []Source
	if key := strings.TrimSpace(apiKey); key != "" {
		k := url.QueryEscape(key)
		sources = append(sources,
			Source{Name: "exchangerate.host", URL: "https://api.exchangerate.host/latest?base=%s&api_key=" + k},
			Source{Name: "exchangerate.host", URL: "https://api.exchangerate.host/latest?base=%s&access_key=" + k},
		)
	}
	return append(sources,
		Source{Name: "exchangerate.host", URL: "https://api.exchangerate.host/latest?base=%s"},
		Source{Name: "open.er-api.com", URL: "https://open.er-api.com/v6/latest/%s"},
		Source{Name: "frankfurter.app", URL: "https://api.frankfurter.app/latest?from=%s"},
	)
}

// payload is the shape shared by every supported provider.
type payload struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func fetchSource(ctx context.Context, client *http.Client, src Source, base string) (*payload, error) {
	u := fmt.Sprintf(src.URL, url.QueryEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, src.Name)
	}
	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", src.Name, err)
	}
	if len(p.Rates) == 0 {
		return nil, fmt.Errorf("no rates in response from %s", src.Name)
	}
	return &p, nil
}

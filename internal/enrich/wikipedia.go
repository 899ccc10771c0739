package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"osservatorio/internal/normalize"
	"osservatorio/internal/store"
)

const defaultSummaryChars = 500

// Lookup is the outcome of one Wikipedia search, already truncated to
// the configured summary length.
type Lookup struct {
	Summary    string
	URL        string
	SearchTerm string
	Status     string
}

// Client queries the Wikipedia REST summary endpoint for one language
// edition.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	summaryChars int
}

// NewClient builds a client for the given language edition ("it",
// "en", ...). summaryChars bounds the stored summary length.
func NewClient(lang string, summaryChars int) *Client {
	if summaryChars <= 0 {
		summaryChars = defaultSummaryChars
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      fmt.Sprintf("https://%s.wikipedia.org/api/rest_v1/page/summary/", lang),
		userAgent:    "OsservatorioBustoArsizioBot/1.0",
		summaryChars: summaryChars,
	}
}

type summaryResponse struct {
	Type        string `json:"type"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Summary searches the beneficiary on Wikipedia, trying the normalized
// name first and the original spelling second. Network or decode
// failures abort the search with StatusError instead of trying further
// variants.
func (c *Client) Summary(ctx context.Context, term string) Lookup {
	original := strings.TrimSpace(term)
	if original == "" {
		return Lookup{Status: store.StatusNotFound}
	}

	normalized := normalize.Name(original)
	if normalized == "" {
		normalized = original
	}
	variants := []string{normalized}
	if !strings.EqualFold(original, normalized) {
		variants = append(variants, original)
	}

	for _, variant := range variants {
		page, found, err := c.fetch(ctx, variant)
		if err != nil {
			return Lookup{SearchTerm: variant, Status: store.StatusError}
		}
		if !found || page.Type == "disambiguation" {
			continue
		}
		return Lookup{
			Summary:    truncate(page.Extract, c.summaryChars),
			URL:        page.ContentURLs.Desktop.Page,
			SearchTerm: variant,
			Status:     store.StatusFound,
		}
	}
	return Lookup{SearchTerm: normalized, Status: store.StatusNotFound}
}

func (c *Client) fetch(ctx context.Context, title string) (*summaryResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(title), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("wikipedia summary %q: status %d", title, resp.StatusCode)
	}

	var page summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, false, fmt.Errorf("wikipedia summary %q: %w", title, err)
	}
	if page.Extract == "" {
		return nil, false, nil
	}
	return &page, true, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

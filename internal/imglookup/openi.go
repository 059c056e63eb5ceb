// Package imglookup finds illustrative medical images via the Open-i
// service of the U.S. National Library of Medicine.
package imglookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://openi.nlm.nih.gov"

// Client queries the Open-i image search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. An empty baseURL uses the public Open-i
// endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type searchResponse struct {
	List []struct {
		ImgLarge string `json:"imgLarge"`
	} `json:"list"`
}

// FindImage returns the URL of the first image matching the query, or
// an empty string when nothing matched. Errors are returned for the
// caller to degrade on; this client never retries.
func (c *Client) FindImage(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("m", "1")
	params.Set("n", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build image search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image search: unexpected status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode image search response: %w", err)
	}
	if len(result.List) == 0 || result.List[0].ImgLarge == "" {
		return "", nil
	}
	return c.baseURL + result.List[0].ImgLarge, nil
}

// Package search is a thin client over the code-forge repository
// search endpoint the "search" CLI command queries; it is not itself
// the search index, only the adapter the core calls.
package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"pygr/internal/errs"
)

// Result is one repository hit, enough to drive an "install
// OWNER/REPO" follow-up.
type Result struct {
	FullName    string
	Description string
	Stars       int
	URL         string
}

// Client queries the GitHub repository search API. Token, when set,
// is sent as a bearer credential and lifts the unauthenticated rate
// limit.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Token   string
}

// New builds a Client. token is typically read from GITHUB_TOKEN by
// the caller; an empty token still works, at a lower rate limit.
func New(token string) *Client {
	return &Client{
		HTTP:    http.DefaultClient,
		BaseURL: "https://api.github.com",
		Token:   token,
	}
}

type searchResponse struct {
	Items []struct {
		FullName    string `json:"full_name"`
		Description string `json:"description"`
		Stars       int    `json:"stargazers_count"`
		HTMLURL     string `json:"html_url"`
	} `json:"items"`
}

// Search queries the code-forge for repositories matching query,
// returning at most n results ordered by the forge's own relevance
// ranking.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if query == "" {
		return nil, errs.New(errs.RecipeMalformed, "SEARCH_EMPTY_QUERY", "search query must not be empty")
	}
	if n <= 0 {
		n = 10
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("per_page", strconv.Itoa(n))

	reqURL := c.BaseURL + "/search/repositories?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "SEARCH_REQUEST", err, "building search request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.FetchFailed, "SEARCH_HTTP", err, "querying code-forge search endpoint")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.FetchFailed, "SEARCH_READ", err, "reading search response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.FetchFailed, "SEARCH_STATUS", "search endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errs.Wrap(errs.Internal, "SEARCH_DECODE", err, "decoding search response")
	}

	out := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		out = append(out, Result{
			FullName:    item.FullName,
			Description: item.Description,
			Stars:       item.Stars,
			URL:         item.HTMLURL,
		})
	}
	return out, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/animakit/anima/core"
)

const (
	searchEndpoint = "https://www.googleapis.com/customsearch/v1"
	searchResults  = 3
)

// WebSearchTool queries Google Custom Search for real-time information.
type WebSearchTool struct {
	apiKey string
	cseID  string
	client *http.Client
}

func NewWebSearchTool(apiKey, cseID string) *WebSearchTool {
	return &WebSearchTool{
		apiKey: apiKey,
		cseID:  cseID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, action core.Action) Outcome {
	a, ok := action.(*core.WebSearchAction)
	if !ok {
		return Errorf("web_search: unexpected action %T", action)
	}
	if a.Query == "" {
		return Errorf("web_search: empty query")
	}
	if t.apiKey == "" || t.cseID == "" {
		return Errorf("web_search: Google API key or CSE id not configured")
	}

	q := url.Values{}
	q.Set("key", t.apiKey)
	q.Set("cx", t.cseID)
	q.Set("q", a.Query)
	q.Set("num", fmt.Sprint(searchResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Errorf("web_search: build request: %v", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Errorf("web_search: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Errorf("web_search: unexpected status %s", resp.Status)
	}

	var body struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Errorf("web_search: decode response: %v", err)
	}

	if len(body.Items) == 0 {
		return Success(fmt.Sprintf("no results for %q", a.Query))
	}

	results := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, fmt.Sprintf("Title: %s\nSnippet: %s\nLink: %s", item.Title, item.Snippet, item.Link))
	}
	return Outcome{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("%d results for %q", len(results), a.Query),
		Results: results,
	}
}

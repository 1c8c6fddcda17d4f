// Package gateway provides a gateway to the PostHog analytics API,
// abstracting away query construction, authorization and retry handling.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/posthog-digest/internal/domain"
)

const (
	maxErrorBody   = 200
	maxPageURL     = 50
	topPagesLimit  = 5
	discoveryLimit = 10
)

// APIError is a deterministic rejection from the PostHog API (any HTTP
// status >= 400). It is never retried: resending an identical request
// would not change the outcome.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.RateLimited() {
		return "rate limited"
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the rejection was a 429 response.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Fetcher defines the behavior of a gateway for fetching information from PostHog.
type Fetcher interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	FetchActiveUsers(ctx context.Context, projectID, math, dateFrom, dateTo string) (int, error)
	FetchPageviews(ctx context.Context, projectID, dateFrom, dateTo string) (int, []domain.PageCount, error)
	FetchEventCount(ctx context.Context, projectID, event, dateFrom, dateTo string) (int, error)
	DiscoverEvents(ctx context.Context, projectID string) ([]string, error)
}

// PostHogGateway is the concrete implementation of the Fetcher interface.
type PostHogGateway struct {
	baseURL    string
	httpClient *http.Client
	retry      *RetryPolicy
	logger     *logrus.Logger
	sleep      func(time.Duration)
}

// NewPostHogGateway is a constructor that creates a new instance of
// PostHogGateway for the given region ("us" or "eu"), attaching the API
// key as a bearer token to every request.
func NewPostHogGateway(region, apiKey string, logger *logrus.Logger) *PostHogGateway {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: ts},
	}
	return &PostHogGateway{
		baseURL:    fmt.Sprintf("https://%s.posthog.com", region),
		httpClient: httpClient,
		retry:      NewRetryPolicy(DefaultRetryConfig()),
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// projectListEntry is one element of the /api/projects/ response.
type projectListEntry struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// ListProjects discovers all projects accessible with the API key,
// assigning presentation colors round-robin from the fixed palette.
func (g *PostHogGateway) ListProjects(ctx context.Context) ([]domain.Project, error) {
	body, err := g.do(ctx, http.MethodGet, g.baseURL+"/api/projects/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	// The endpoint may return a paginated envelope or a bare array.
	var envelope struct {
		Results []projectListEntry `json:"results"`
	}
	var entries []projectListEntry
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Results != nil {
		entries = envelope.Results
	} else if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode project list: %w", err)
	}

	projects := make([]domain.Project, 0, len(entries))
	for i, entry := range entries {
		id := entry.ID.String()
		if id == "" {
			continue
		}
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("Project %s", id)
		}
		projects = append(projects, domain.Project{
			Name:      name,
			ProjectID: id,
			Color:     domain.Palette[i%len(domain.Palette)],
		})
		g.logger.Infof("Discovered project: %s (ID: %s)", name, id)
	}
	return projects, nil
}

// FetchActiveUsers returns the active-user count for the window. math is
// one of "dau", "weekly_active", "monthly_active".
func (g *PostHogGateway) FetchActiveUsers(ctx context.Context, projectID, math, dateFrom, dateTo string) (int, error) {
	resp, err := g.query(ctx, projectID, ActiveUsersQuery(math, dateFrom, dateTo))
	if err != nil {
		return 0, err
	}
	return extractTrendValue(resp), nil
}

// FetchPageviews returns the total pageview count and top pages for the window.
func (g *PostHogGateway) FetchPageviews(ctx context.Context, projectID, dateFrom, dateTo string) (int, []domain.PageCount, error) {
	resp, err := g.query(ctx, projectID, PageviewsQuery(dateFrom, dateTo))
	if err != nil {
		return 0, nil, err
	}
	total, top := extractPageviews(resp)
	return total, top, nil
}

// FetchEventCount returns the occurrence count of a named event for the window.
func (g *PostHogGateway) FetchEventCount(ctx context.Context, projectID, event, dateFrom, dateTo string) (int, error) {
	resp, err := g.query(ctx, projectID, EventCountQuery(event, dateFrom, dateTo))
	if err != nil {
		return 0, err
	}
	return extractTrendValue(resp), nil
}

// DiscoverEvents lists the most frequent non-system events of the last 7 days.
func (g *PostHogGateway) DiscoverEvents(ctx context.Context, projectID string) ([]string, error) {
	resp, err := g.query(ctx, projectID, EventDiscoveryQuery(discoveryLimit))
	if err != nil {
		return nil, err
	}
	events := make([]string, 0, discoveryLimit)
	for _, row := range decodeRows(resp) {
		if len(row) == 0 {
			continue
		}
		if name, ok := row[0].(string); ok && name != "" {
			events = append(events, name)
		}
	}
	g.logger.Infof("Discovered %d custom events: %v", len(events), events)
	return events, nil
}

// queryResponse defers decoding of the results field, whose shape depends
// on the query kind.
type queryResponse struct {
	Results json.RawMessage `json:"results"`
}

// query posts one query payload to a project's query endpoint.
func (g *PostHogGateway) query(ctx context.Context, projectID string, q map[string]any) (*queryResponse, error) {
	payload, err := json.Marshal(map[string]any{"query": q})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	url := fmt.Sprintf("%s/api/projects/%s/query/", g.baseURL, projectID)
	body, err := g.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return &resp, nil
}

// do performs one HTTP request, retrying transport-level failures with
// exponential backoff. API rejections surface immediately.
func (g *PostHogGateway) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		body, err := g.doOnce(ctx, method, url, payload)
		if err == nil {
			return body, nil
		}
		if !g.retry.ShouldRetry(attempt, err) {
			return nil, err
		}
		delay := g.retry.NextRetryDelay(attempt)
		g.logger.Debugf("Transport error (attempt %d/%d), retrying in %s: %v", attempt, g.retry.config.MaxAttempts, delay, err)
		g.sleep(delay)
	}
}

func (g *PostHogGateway) doOnce(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		// The body is rebuilt per attempt so retries resend it in full.
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}
	return body, nil
}

// extractTrendValue takes the last data point of the first result series.
// Absent or malformed data resolves to 0, never an error.
func extractTrendValue(resp *queryResponse) int {
	var series []struct {
		Data []float64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Results, &series); err != nil {
		return 0
	}
	if len(series) == 0 || len(series[0].Data) == 0 {
		return 0
	}
	return int(series[0].Data[len(series[0].Data)-1])
}

// decodeRows decodes a raw analytical result set into row tuples.
func decodeRows(resp *queryResponse) [][]any {
	var rows [][]any
	if err := json.Unmarshal(resp.Results, &rows); err != nil {
		return nil
	}
	return rows
}

// extractPageviews parses pageview rows: entries among the first 5 rows
// with a non-empty URL become the top-pages ranking, and the count column
// is summed across all returned rows for the total.
func extractPageviews(resp *queryResponse) (int, []domain.PageCount) {
	var top []domain.PageCount
	total := 0
	for i, row := range decodeRows(resp) {
		if len(row) < 2 {
			continue
		}
		views, ok := row[1].(float64)
		if !ok {
			continue
		}
		total += int(views)
		if i < topPagesLimit {
			if url, ok := row[0].(string); ok && url != "" {
				top = append(top, domain.PageCount{URL: truncate(url, maxPageURL), Views: int(views)})
			}
		}
	}
	return total, top
}

// truncate limits s to max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

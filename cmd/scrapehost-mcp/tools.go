package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiClient talks to the scrapehost HTTP surface.
type apiClient struct {
	base   string
	apiKey string
	client *http.Client
}

func newAPIClient(base, apiKey string) *apiClient {
	return &apiClient{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		client: &http.Client{
			// Scrapes run synchronously inside the form POST.
			Timeout: 10 * time.Minute,
			// The form answers with a redirect to the dashboard; stop there.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// get fetches path and returns the status code and body.
func (a *apiClient) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}
	return a.do(req)
}

// submit posts the scrape form for target.
func (a *apiClient) submit(ctx context.Context, target string) (int, error) {
	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/scrape", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status, _, err := a.do(req)
	return status, err
}

func (a *apiClient) do(req *http.Request) (int, []byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// dataResult turns an /api/data response into a tool result.
func dataResult(status int, body []byte) *mcp.CallToolResult {
	if status != http.StatusOK {
		var envelope struct {
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(body))
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
			msg = envelope.Message
		}
		return mcp.NewToolResultError(fmt.Sprintf("[%d] %s", status, msg))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(body)
	}
	return mcp.NewToolResultText(pretty.String())
}

func handleGetScrapedData(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, body, err := api.get(ctx, "/api/data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return dataResult(status, body), nil
	}
}

func handleScrapeURL(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil || strings.TrimSpace(target) == "" {
			return mcp.NewToolResultError("url is required"), nil
		}

		status, err := api.submit(ctx, target)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusSeeOther && status != http.StatusFound {
			return mcp.NewToolResultError(fmt.Sprintf("scrape submit returned status %d", status)), nil
		}

		status, body, err := api.get(ctx, "/api/data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return dataResult(status, body), nil
	}
}

func handleHealth(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, body, err := api.get(ctx, "/health")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(fmt.Sprintf("unhealthy: status %d", status)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

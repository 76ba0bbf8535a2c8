// Command scrapehost-mcp exposes a running scrapehost over MCP (stdio).
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("SCRAPEHOST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5000"
	}
	api := newAPIClient(apiURL, os.Getenv("SCRAPEHOST_API_KEY"))

	if err := server.ServeStdio(newServer(api)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(api *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"scrapehost",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("get_scraped_data",
		mcp.WithDescription("Return the JSON document produced by the most recent scrape."),
	), handleGetScrapedData(api))

	s.AddTool(mcp.NewTool("scrape_url",
		mcp.WithDescription("Scrape a web page with the host's scraper, wait for it to finish and return the resulting JSON document (title, first heading, meta description, links)."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
	), handleScrapeURL(api))

	s.AddTool(mcp.NewTool("health",
		mcp.WithDescription("Check that the scrapehost service is up."),
	), handleHealth(api))

	return s
}

package scraper

import (
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/scrapehost/models"
)

// minContentLength is the shortest readable text accepted as an article.
const minContentLength = 50

// ContentConverter turns a rendered page into its readable main article as
// Markdown. It is safe for concurrent use.
type ContentConverter struct {
	conv *converter.Converter
}

// NewContentConverter builds the Markdown converter: base strips noise
// elements, commonmark renders, table keeps tables with minimal padding.
func NewContentConverter() *ContentConverter {
	return &ContentConverter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Convert extracts the main article with readability and renders it as
// Markdown. When readability finds no usable article the whole page is
// converted instead.
func (c *ContentConverter) Convert(rawHTML, pageURL string) (*models.Content, error) {
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("content: parse url: %w", err)
	}

	body := rawHTML
	excerpt := ""
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	switch {
	case err != nil:
		slog.Warn("readability failed, converting full page", "url", pageURL, "error", err)
	case len(strings.TrimSpace(article.TextContent)) < minContentLength:
		slog.Warn("readability content too short, converting full page",
			"url", pageURL, "length", len(article.TextContent))
	default:
		body = article.Content
		excerpt = strings.TrimSpace(article.Excerpt)
	}

	domain := ""
	if parsedURL.Scheme != "" && parsedURL.Host != "" {
		domain = parsedURL.Scheme + "://" + parsedURL.Host
	}
	md, err := c.conv.ConvertString(body, converter.WithDomain(domain))
	if err != nil {
		return nil, fmt.Errorf("content: convert markdown: %w", err)
	}

	return &models.Content{Excerpt: excerpt, Markdown: strings.TrimSpace(md)}, nil
}

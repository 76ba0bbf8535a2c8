package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/scrapehost/models"
	"golang.org/x/net/html"
)

// maxLinks is how many anchors are reported per page.
const maxLinks = 10

// Fallback values for missing page elements.
const (
	NoTitle           = "No title found"
	NoHeading         = "No H1 found"
	NoMetaDescription = "No meta description found"
	NoLinkText        = "[No text]"
	NoLinkHref        = "#"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	selTitle    = cascadia.MustCompile("title")
	selHeading  = cascadia.MustCompile("h1")
	selMetaDesc = cascadia.MustCompile(`meta[name="description"]`)
	selAnchor   = cascadia.MustCompile("a")
)

// Extract builds the page summary from rendered HTML. finalURL is the
// address the page ended up at and is used to resolve link targets.
func Extract(rawHTML, finalURL string, now time.Time) (*models.ScrapedPage, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	base, _ := url.Parse(finalURL)

	page := &models.ScrapedPage{
		URL:             finalURL,
		Title:           NoTitle,
		Heading:         NoHeading,
		MetaDescription: NoMetaDescription,
		Links:           []models.Link{},
		Timestamp:       now.UTC().Format(timestampLayout),
	}

	if title := collapseSpace(doc.FindMatcher(selTitle).First().Text()); title != "" {
		page.Title = title
	}
	if h1 := doc.FindMatcher(selHeading).First(); h1.Length() > 0 {
		page.Heading = collapseSpace(h1.Text())
	}
	if meta := doc.FindMatcher(selMetaDesc).First(); meta.Length() > 0 {
		page.MetaDescription = meta.AttrOr("content", "")
	}

	doc.FindMatcher(selAnchor).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxLinks {
			return false
		}
		link := models.Link{Text: collapseSpace(s.Text()), Href: resolveHref(base, s)}
		if link.Text == "" {
			link.Text = NoLinkText
		}
		page.Links = append(page.Links, link)
		return true
	})

	return page, nil
}

// resolveHref returns the absolute target of an anchor, or "#" when it has
// none.
func resolveHref(base *url.URL, s *goquery.Selection) string {
	href, ok := s.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return NoLinkHref
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

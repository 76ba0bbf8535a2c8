package models

// ScrapedPage is the document the bundled scraper writes on success.
type ScrapedPage struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	Heading         string   `json:"heading"`
	MetaDescription string   `json:"metaDescription"`
	Links           []Link   `json:"links"`
	Timestamp       string   `json:"timestamp"`
	Content         *Content `json:"content,omitempty"`
}

// Link represents a hyperlink extracted from the page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Content holds the readable main article, when requested.
type Content struct {
	Excerpt  string `json:"excerpt,omitempty"`
	Markdown string `json:"markdown"`
}

// FailedScrape is the document the bundled scraper writes when scraping fails.
type FailedScrape struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

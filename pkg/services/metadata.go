package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/models"
)

const (
	maxDescriptionLength = 200
	metadataUserAgent    = "Mozilla/5.0 (compatible; BookmarkManager/1.0)"
)

// MetadataFetcher retrieves a page's title and description for bookmark
// prefill. Failures are soft: the result carries an Error field instead of
// the call failing.
type MetadataFetcher struct {
	client *http.Client
	log    logger.Logger
}

func NewMetadataFetcher(timeout time.Duration, log logger.Logger) *MetadataFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MetadataFetcher{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Fetch downloads the page and extracts its title and description. Any
// network or parse failure is reported in the Error field with empty
// title and description.
func (f *MetadataFetcher) Fetch(ctx context.Context, rawURL string) *models.Metadata {
	meta := &models.Metadata{URL: rawURL}

	if err := models.ValidateURL(rawURL); err != nil {
		meta.Error = err.Error()
		return meta
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		meta.Error = fmt.Sprintf("build request: %v", err)
		return meta
	}
	req.Header.Set("User-Agent", metadataUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("metadata fetch failed",
			logger.String("url", rawURL), logger.Error(err))
		meta.Error = fmt.Sprintf("fetch: %v", err)
		return meta
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		meta.Error = fmt.Sprintf("fetch: unexpected status %d", resp.StatusCode)
		return meta
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		meta.Error = fmt.Sprintf("parse: %v", err)
		return meta
	}

	extracted := extractMetadata(doc)
	meta.Title = extracted.title
	meta.Description = truncate(extracted.description, maxDescriptionLength)
	return meta
}

type pageMetadata struct {
	title         string
	ogTitle       string
	description   string
	ogDescription string
	twitterDesc   string
	firstPara     string
}

// extractMetadata walks the document collecting candidate fields, then
// picks by preference: og tags first, then standard ones, then the first
// paragraph as a description of last resort.
func extractMetadata(doc *html.Node) (result struct{ title, description string }) {
	var page pageMetadata
	walkHTML(doc, &page)

	result.title = page.ogTitle
	if result.title == "" {
		result.title = page.title
	}

	for _, candidate := range []string{page.ogDescription, page.description, page.twitterDesc, page.firstPara} {
		if candidate != "" {
			result.description = candidate
			break
		}
	}
	return result
}

func walkHTML(n *html.Node, page *pageMetadata) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if page.title == "" {
				page.title = strings.TrimSpace(textContent(n))
			}
		case "meta":
			collectMetaTag(n, page)
		case "p":
			if page.firstPara == "" {
				if text := strings.TrimSpace(textContent(n)); text != "" {
					page.firstPara = text
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, page)
	}
}

func collectMetaTag(n *html.Node, page *pageMetadata) {
	var name, property, content string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name":
			name = strings.ToLower(attr.Val)
		case "property":
			property = strings.ToLower(attr.Val)
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	if content == "" {
		return
	}
	switch {
	case property == "og:title" && page.ogTitle == "":
		page.ogTitle = content
	case property == "og:description" && page.ogDescription == "":
		page.ogDescription = content
	case name == "description" && page.description == "":
		page.description = content
	case name == "twitter:description" && page.twitterDesc == "":
		page.twitterDesc = content
	}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phrazzld/newswire/internal/domain"
)

// userAgent identifies the scraper to origin sites.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SiteExtractor extracts articles from one news site using the selectors and
// cleanup rules of its schema. It implements the Extractor interface.
type SiteExtractor struct {
	schemaName string
	schema     *Schema
	client     *http.Client
	logger     *slog.Logger
}

// NewSiteExtractor loads the named schema from dir and builds an extractor
// for it. A nil client gets a default with the given timeout.
func NewSiteExtractor(
	dir, schemaName string,
	client *http.Client,
	timeout time.Duration,
	logger *slog.Logger,
) (*SiteExtractor, error) {
	schema, err := LoadSchema(dir, schemaName)
	if err != nil {
		return nil, err
	}
	if len(schema.SourceConfig.Domains) == 0 {
		return nil, fmt.Errorf("schema %q declares no domains", schemaName)
	}

	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &SiteExtractor{
		schemaName: schemaName,
		schema:     schema,
		client:     client,
		logger:     logger,
	}, nil
}

// SourceName identifies the news source this extractor covers.
func (e *SiteExtractor) SourceName() string {
	if e.schema.Source != "" {
		return e.schema.Source
	}
	return e.schemaName
}

// SchemaName returns the name of the schema file backing this extractor.
func (e *SiteExtractor) SchemaName() string {
	return e.schemaName
}

// CanHandle reports whether the URL's host is one of the schema's domains.
func (e *SiteExtractor) CanHandle(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, d := range e.schema.SourceConfig.Domains {
		if parsed.Host == d {
			return true
		}
	}
	return false
}

// Scrape fetches the page and extracts all article fields. Transport faults
// and upstream 5xx responses return an error (retriable); a page that
// resolves but carries no usable article returns (nil, nil).
func (e *SiteExtractor) Scrape(ctx context.Context, rawURL string) (*domain.Article, error) {
	doc, err := e.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	title := e.selectFirstText(doc, e.schema.SourceConfig.Selectors.Title)
	subtitle := e.selectFirstText(doc, e.schema.SourceConfig.Selectors.Subtitle)
	content := e.extractContent(doc)
	author := e.extractAuthor(doc)
	pubDate := e.extractPubDate(doc)
	images := e.extractImages(doc)

	content = e.schema.Clean(content)

	if !e.validate(title, content) {
		e.logger.Warn("extraction did not pass schema validation",
			"schema", e.schemaName,
			"url", rawURL,
			"title_present", title != "",
			"content_length", len(content))
		return nil, nil
	}

	return &domain.Article{
		URL:        rawURL,
		Title:      title,
		Subtitle:   subtitle,
		Content:    content,
		Author:     author,
		PubDate:    pubDate,
		Images:     images,
		Source:     e.SourceName(),
		SchemaUsed: e.schemaName,
	}, nil
}

// fetchDocument downloads and parses the page. A nil document with nil error
// means the page is permanently unavailable (4xx).
func (e *SiteExtractor) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to parsing
	case resp.StatusCode >= http.StatusInternalServerError:
		// Upstream hiccup, worth retrying
		return nil, fmt.Errorf("source returned %s", resp.Status)
	default:
		// Gone, paywalled, redirect loop: retrying will not help
		e.logger.Warn("page not retrievable",
			"url", rawURL,
			"status", resp.Status)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// selectFirstText returns the trimmed text of the first selector that
// matches, or "".
func (e *SiteExtractor) selectFirstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if text := strings.TrimSpace(node.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// extractContent collects paragraph text under the first content selector
// that matches anything, joined by blank lines. Falls back to the whole
// <article> text.
func (e *SiteExtractor) extractContent(doc *goquery.Document) string {
	for _, sel := range e.schema.SourceConfig.Selectors.Content {
		nodes := doc.Find(sel)
		if nodes.Length() == 0 {
			continue
		}

		var paragraphs []string
		nodes.Each(func(_ int, node *goquery.Selection) {
			if goquery.NodeName(node) == "p" {
				if text := strings.TrimSpace(node.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				return
			}
			node.Find("p").Each(func(_ int, p *goquery.Selection) {
				if text := strings.TrimSpace(p.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			})
		})

		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}

	if article := doc.Find("article").First(); article.Length() > 0 {
		return strings.TrimSpace(article.Text())
	}
	return ""
}

func (e *SiteExtractor) extractAuthor(doc *goquery.Document) string {
	author := e.selectFirstText(doc, e.schema.SourceConfig.Selectors.Author)
	author = strings.TrimPrefix(author, "Por ")
	author = strings.TrimPrefix(author, "por ")
	author = strings.TrimPrefix(author, "By ")
	return strings.TrimSpace(author)
}

func (e *SiteExtractor) extractPubDate(doc *goquery.Document) string {
	// Machine-readable datetime attribute beats any display text
	if node := doc.Find("time[datetime]").First(); node.Length() > 0 {
		if dt, ok := node.Attr("datetime"); ok && dt != "" {
			return dt
		}
	}
	return e.selectFirstText(doc, e.schema.SourceConfig.Selectors.PubDate)
}

func (e *SiteExtractor) extractImages(doc *goquery.Document) []domain.ImageRef {
	var images []domain.ImageRef
	seen := map[string]struct{}{}

	for _, sel := range e.schema.SourceConfig.Selectors.Images {
		doc.Find(sel).Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				src, _ = img.Attr("data-src")
			}
			if src == "" || strings.HasPrefix(src, "data:") {
				return
			}
			if _, dup := seen[src]; dup {
				return
			}
			seen[src] = struct{}{}
			alt, _ := img.Attr("alt")
			images = append(images, domain.ImageRef{URL: src, Alt: alt})
		})
	}
	return images
}

// validate applies the schema's validation rules to the extraction result.
func (e *SiteExtractor) validate(title, content string) bool {
	if e.schema.requires("title") && title == "" {
		return false
	}
	if e.schema.requires("content") && content == "" {
		return false
	}
	if len(content) < e.schema.Validations.MinContentLength {
		return false
	}
	return true
}

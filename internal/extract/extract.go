// Package extract converts listing items from raw HTML into clean records:
// sanitized text, a markdown rendition, and whatever link the item carries.
package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Item is one extracted listing entry.
type Item struct {
	Index    int    `json:"index"`
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
	Text     string `json:"text"`
	Markdown string `json:"markdown,omitempty"`
}

// Extractor pulls items out of fetched pages.
type Extractor struct {
	itemSelector string
	policy       *bluemonday.Policy
	md           *converter.Converter
	logger       *slog.Logger
}

// New creates an Extractor for the given item selector.
func New(itemSelector string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	policy := bluemonday.UGCPolicy()
	return &Extractor{
		itemSelector: itemSelector,
		policy:       policy,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

// FromHTML extracts every item matching the selector from body. pageURL
// anchors relative links.
func (e *Extractor) FromHTML(body []byte, pageURL string) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extract: parse: %w", err)
	}

	baseURL, _ := url.Parse(pageURL)

	var items []Item
	doc.Find(e.itemSelector).Each(func(i int, sel *goquery.Selection) {
		items = append(items, e.item(i, sel, baseURL, pageURL))
	})
	return items, nil
}

func (e *Extractor) item(index int, sel *goquery.Selection, baseURL *url.URL, pageURL string) Item {
	it := Item{
		Index: index,
		Text:  collapseWhitespace(sel.Text()),
	}

	// Title: first heading, falling back to the first link's text.
	if h := sel.Find("h1, h2, h3, h4").First(); h.Length() > 0 {
		it.Title = collapseWhitespace(h.Text())
	}
	if a := sel.Find("a[href]").First(); a.Length() > 0 {
		if it.Title == "" {
			it.Title = collapseWhitespace(a.Text())
		}
		if href, ok := a.Attr("href"); ok {
			it.Link = resolveLink(baseURL, href)
		}
	}

	raw, err := sel.Html()
	if err != nil {
		e.logger.Warn("extract: item html", "index", index, "error", err)
		return it
	}
	it.Markdown = e.htmlToMarkdown(e.policy.Sanitize(raw), pageURL, it.Text)
	return it
}

// htmlToMarkdown converts sanitized HTML to markdown. If conversion fails or
// produces empty output, returns the fallback plain text.
func (e *Extractor) htmlToMarkdown(html, sourceURL, fallback string) string {
	if html == "" {
		return fallback
	}
	result, err := e.md.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(result) == "" {
		return fallback
	}
	return strings.TrimSpace(result)
}

func resolveLink(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package fetcher

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// NeedsBrowser reports whether the HTML body is too thin to paginate
// statically. Heuristic: tokenize the document, compare visible text to
// markup, and look for the empty mount points SPA frameworks leave behind.
func NeedsBrowser(body []byte) bool {
	if len(body) < 256 {
		return true
	}

	textLen, markupLen := weighTokens(body)
	total := textLen + markupLen
	if total == 0 {
		return true
	}

	// Under 10% visible text is almost always a script shell.
	if float64(textLen)/float64(total) < 0.10 {
		return true
	}
	if textLen < 200 {
		return true
	}

	lower := bytes.ToLower(body)
	shells := []string{
		`<div id="root"></div>`,
		`<div id="app"></div>`,
		`<div id="__next"></div>`,
		"<noscript>you need to enable javascript",
		"<noscript>enable javascript",
	}
	for _, s := range shells {
		if bytes.Contains(lower, []byte(s)) {
			return true
		}
	}
	return false
}

// weighTokens walks the token stream and counts visible text bytes against
// markup bytes. Script and style contents count as markup: they render
// nothing.
func weighTokens(body []byte) (text, markup int) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var inRaw int // depth inside script/style/noscript
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return text, markup
		case html.TextToken:
			raw := z.Raw()
			if inRaw > 0 {
				markup += len(raw)
				break
			}
			text += len(bytes.TrimSpace(raw))
		case html.StartTagToken:
			markup += len(z.Raw())
			name, _ := z.TagName()
			if rawTag(string(name)) {
				inRaw++
			}
		case html.EndTagToken:
			markup += len(z.Raw())
			name, _ := z.TagName()
			if rawTag(string(name)) && inRaw > 0 {
				inRaw--
			}
		default:
			markup += len(z.Raw())
		}
	}
}

func rawTag(name string) bool {
	switch strings.ToLower(name) {
	case "script", "style", "noscript":
		return true
	}
	return false
}

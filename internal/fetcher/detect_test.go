package fetcher

import (
	"strings"
	"testing"
)

func TestNeedsBrowser_StaticArticle(t *testing.T) {
	body := "<html><body><article>" +
		strings.Repeat("<p>Plenty of readable prose in this paragraph right here.</p>", 30) +
		"</article></body></html>"
	if NeedsBrowser([]byte(body)) {
		t.Error("content-rich static page should not need a browser")
	}
}

func TestNeedsBrowser_SPAShell(t *testing.T) {
	body := `<html><body><div id="root"></div>` +
		`<script src="/bundle.js"></script>` +
		strings.Repeat(`<script>window.__DATA__=`+strings.Repeat("x", 100)+`;</script>`, 5) +
		`</body></html>`
	if !NeedsBrowser([]byte(body)) {
		t.Error("empty SPA mount point should need a browser")
	}
}

func TestNeedsBrowser_ScriptHeavy(t *testing.T) {
	// Text exists but is buried under script payload.
	body := `<html><body><p>loading</p><script>` + strings.Repeat("a", 50_000) + `</script></body></html>`
	if !NeedsBrowser([]byte(body)) {
		t.Error("script-dominated page should need a browser")
	}
}

func TestNeedsBrowser_TinyBody(t *testing.T) {
	if !NeedsBrowser([]byte("<html></html>")) {
		t.Error("near-empty body should need a browser")
	}
}

func TestNeedsBrowser_NoscriptWarning(t *testing.T) {
	body := `<html><body><noscript>You need to enable JavaScript to run this app.</noscript>` +
		strings.Repeat("<p>some filler text to defeat the size gates, repeated often.</p>", 20) +
		`</body></html>`
	if !NeedsBrowser([]byte(body)) {
		t.Error("noscript javascript warning should need a browser")
	}
}

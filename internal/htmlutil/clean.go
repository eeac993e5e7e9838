// Package htmlutil turns raw page HTML into compact plain text suitable for
// an LLM prompt: small token budget, dense signal.
package htmlutil

import (
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Tags whose entire subtree is boilerplate for our purposes.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "svg": true, "button": true,
}

// Block-level tags that become line breaks so list items and steps stay
// visually separated in the flattened text.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"br": true, "tr": true, "section": true, "article": true, "table": true,
}

var (
	spacesRe   = regexp.MustCompile(`[ \t]+`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanHTML flattens an HTML document to plain text, dropping script, style
// and navigation chrome. When pageURL parses, the main article content is
// distilled with readability first; the raw document is the fallback when
// readability finds nothing (recipe pages with thin markup often defeat it).
func CleanHTML(rawHTML, pageURL string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}

	if u, err := url.Parse(pageURL); err == nil && u.Scheme != "" {
		parser := readability.NewParser()
		article, err := parser.Parse(strings.NewReader(rawHTML), u)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return collapseWhitespace(article.TextContent)
		}
	}

	return FlattenHTML(rawHTML)
}

// FlattenHTML walks the document tree directly, without readability.
func FlattenHTML(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// html.Parse is extremely tolerant; treat a hard failure as
		// "no usable markup" and fall back to entity-decoded source.
		return collapseWhitespace(html.UnescapeString(rawHTML))
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.ElementNode:
			if skippedTags[n.Data] {
				return
			}
			if blockTags[n.Data] {
				b.WriteByte('\n')
			}
		case html.TextNode:
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return collapseWhitespace(b.String())
}

// Truncate cuts s to at most max runes, appending an ellipsis marker when
// anything was dropped.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spacesRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

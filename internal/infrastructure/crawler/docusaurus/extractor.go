package docusaurus

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

// Extractor pulls readable text out of a Docusaurus-rendered page. It
// prefers the article/main element and ignores chrome (nav, sidebar,
// footer, scripts).
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"aside":  true,
	"footer": true,
	"header": true,
}

func (e *Extractor) Extract(url string, raw []byte) (domain.PageContent, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("parse html for %s: %w", url, err)
	}

	content := domain.PageContent{URL: url}
	content.Title = documentTitle(doc)

	root := findContentRoot(doc)
	if root == nil {
		root = doc
	}

	var text strings.Builder
	collectText(root, &text, &content.Headings)
	content.Text = normalizeWhitespace(text.String())

	if content.Title == "" && len(content.Headings) > 0 {
		content.Title = content.Headings[0]
	}
	return content, nil
}

// findContentRoot returns the innermost article or main element, which in
// Docusaurus holds the rendered markdown without navigation chrome.
func findContentRoot(n *html.Node) *html.Node {
	var article, mainEl *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "article":
				if article == nil {
					article = n
				}
			case "main":
				if mainEl == nil {
					mainEl = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	if article != nil {
		return article
	}
	return mainEl
}

func documentTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			// Docusaurus appends "| Site Name" to every page title.
			if idx := strings.Index(title, " | "); idx > 0 {
				title = title[:idx]
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

func collectText(n *html.Node, out *strings.Builder, headings *[]string) {
	if n.Type == html.ElementNode {
		if skippedElements[n.Data] {
			return
		}
		switch n.Data {
		case "h1", "h2", "h3":
			if heading := strings.TrimSpace(elementText(n)); heading != "" {
				*headings = append(*headings, heading)
			}
		case "p", "li", "pre", "td", "h4", "h5", "h6", "blockquote":
			// Block boundary; keep chunks from gluing sentences together.
			out.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		out.WriteString(n.Data)
		out.WriteString(" ")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out, headings)
	}
}

func elementText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Package textutil turns the rich-text fields an admin pastes into a
// proposal (often HTML from an editor) into plain paragraphs for display.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	scriptPattern  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlinePattern = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText converts an HTML fragment into plain text. Block elements
// start new lines; scripts and styles are dropped.
func HTMLToText(content string) string {
	if !strings.Contains(content, "<") {
		return cleanText(html.UnescapeString(content))
	}

	content = scriptPattern.ReplaceAllString(content, "")
	content = stylePattern.ReplaceAllString(content, "")

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return cleanText(html.UnescapeString(tagPattern.ReplaceAllString(content, " ")))
	}

	var sb strings.Builder
	extractText(doc, &sb)
	return cleanText(sb.String())
}

func extractText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "blockquote":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}
}

func cleanText(text string) string {
	text = spacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")

	text = newlinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Paragraphs splits rich text into display paragraphs.
func Paragraphs(content string) []string {
	text := HTMLToText(content)
	if text == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Excerpt returns at most n runes of plain text, cut at a word boundary.
func Excerpt(content string, n int) string {
	text := strings.Join(strings.Fields(HTMLToText(content)), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "..."
}

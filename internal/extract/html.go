package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTMLExtractor returns the visible text of a page split on newlines.
// Adjacent text nodes are joined as they render, so inline tags never break
// a word. The page title is reported in Result.Ignore so it does not repeat
// in every chunk of a crawled site.
type HTMLExtractor struct{}

var _ Extractor = (*HTMLExtractor)(nil)

func (e *HTMLExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open html: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc.Find("script, style, noscript, template").Remove()

	result := &Result{}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		result.Ignore = append(result.Ignore, title)
	}

	var sb strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &sb)
	}
	result.Lines = splitLines(sb.String())
	return result, nil
}

// collectText writes the text nodes under n in document order.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

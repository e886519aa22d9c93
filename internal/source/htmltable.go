package source

import (
	"strings"

	"golang.org/x/net/html"
)

// The HTML-table providers (VSIN, SBR) embed their split data in plain
// <table> markup with a documented column layout. The extractor below walks
// the parsed DOM; it tolerates attributes on the tags, nested inline markup
// inside cells, and the tag-soup recovery the html package applies.

// extractTableRows returns the cell texts of every row in the first table
// of the document, header rows included.
func extractTableRows(doc string) [][]string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil
	}
	table := findElement(root, "table")
	if table == nil {
		return nil
	}

	var rows [][]string
	walkElements(table, "tr", func(row *html.Node) {
		var cells []string
		for _, cell := range cellNodes(row) {
			cells = append(cells, cellText(cell))
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// findElement returns the first element with the given tag in document order.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// walkElements visits every descendant element with the given tag, without
// descending into matches.
func walkElements(n *html.Node, tag string, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			visit(c)
			continue
		}
		walkElements(c, tag, visit)
	}
}

// cellNodes collects the td and th children of one row in order.
func cellNodes(row *html.Node) []*html.Node {
	var out []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			out = append(out, c)
		}
	}
	return out
}

// cellText flattens one cell's text content, collapsing whitespace. Entity
// decoding already happened during parsing.
func cellText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

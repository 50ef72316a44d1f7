package toolhub

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Link is one anchor element: its visible text and href attribute.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ParseResult is the html_parse output: visible text with newline-separated
// blocks, the anchor list, and tables. Table extraction is a declared but
// unimplemented capability: Tables is always empty.
type ParseResult struct {
	Text   string `json:"text"`
	Links  []Link `json:"links"`
	Tables []any  `json:"tables"`
}

// ParseHTML strips script/style content and extracts visible text and anchors.
func ParseHTML(input string) (ParseResult, error) {
	root, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return ParseResult{}, fmt.Errorf("parse html: %w", err)
	}

	var chunks []string
	var links []Link
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "a":
				if href := attrValue(n, "href"); href != "" {
					links = append(links, Link{Text: nodeText(n), Href: href})
				}
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				chunks = append(chunks, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if links == nil {
		links = []Link{}
	}
	return ParseResult{
		Text:   strings.Join(chunks, "\n"),
		Links:  links,
		Tables: []any{},
	}, nil
}

// nodeText concatenates the trimmed text content beneath n, skipping
// script/style subtrees.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

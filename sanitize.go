package main

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedTags = map[string]bool{
	"b": true, "i": true, "u": true, "strong": true, "em": true, "s": true,
	"mark": true, "sup": true, "sub": true, "br": true, "a": true,
	"ul": true, "ol": true, "li": true, "p": true, "div": true, "span": true,
}

var safeHref = regexp.MustCompile(`(?i)^(https?:|mailto:|tel:|#|/)`)

const linkRel = "noopener noreferrer nofollow"

func parseFragment(s string) (*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// SanitizeHTML reduces block content to a small formatting allow-list.
// Disallowed elements are replaced by their text, event handlers and inline
// styles are stripped and links are limited to safe schemes.
func SanitizeHTML(s string) string {
	root, err := parseFragment(s)
	if err != nil {
		return html.EscapeString(s)
	}
	sanitizeChildren(root)
	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return html.EscapeString(textContent(root))
		}
	}
	return b.String()
}

func sanitizeChildren(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		switch c.Type {
		case html.TextNode:
		case html.ElementNode:
			tag := strings.ToLower(c.Data)
			if !allowedTags[tag] {
				n.InsertBefore(&html.Node{Type: html.TextNode, Data: textContent(c)}, c)
				n.RemoveChild(c)
				continue
			}
			c.Attr = sanitizeAttrs(tag, c.Attr)
			sanitizeChildren(c)
		default:
			n.RemoveChild(c)
		}
	}
}

func sanitizeAttrs(tag string, attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		switch {
		case strings.HasPrefix(key, "on"), key == "style", key == "srcdoc":
			continue
		case key == "href":
			if tag != "a" || !safeHref.MatchString(strings.TrimSpace(a.Val)) {
				continue
			}
		case key == "rel":
			continue
		case key == "target":
			if tag != "a" {
				continue
			}
		}
		kept = append(kept, a)
	}
	if tag == "a" {
		kept = append(kept, html.Attribute{Key: "rel", Val: linkRel})
	}
	return kept
}

func textContent(n *html.Node) string {
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

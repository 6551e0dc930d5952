package convert

import (
	"regexp"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// renderFunc renders one element to Markdown.
type renderFunc func(n *html.Node) string

// renderers maps tag names to their Markdown rendering. Tags without an
// entry render their children inline.
var renderers map[string]renderFunc

func init() {
	block := func(n *html.Node) string {
		if content := strings.TrimSpace(renderChildren(n)); content != "" {
			return content + "\n\n"
		}
		return ""
	}
	heading := func(level int) renderFunc {
		return func(n *html.Node) string {
			if content := strings.TrimSpace(renderChildren(n)); content != "" {
				return strings.Repeat("#", level) + " " + content + "\n\n"
			}
			return ""
		}
	}
	bold := func(n *html.Node) string {
		if content := strings.TrimSpace(renderChildren(n)); content != "" {
			return markdown.Bold(content)
		}
		return ""
	}
	italic := func(n *html.Node) string {
		if content := strings.TrimSpace(renderChildren(n)); content != "" {
			return markdown.Italic(content)
		}
		return ""
	}
	list := func(n *html.Node) string {
		if content := renderChildren(n); content != "" {
			return content + "\n"
		}
		return ""
	}
	skip := func(*html.Node) string { return "" }

	renderers = map[string]renderFunc{
		"script":     skip,
		"style":      skip,
		"br":         func(*html.Node) string { return "\n" },
		"img":        renderImage,
		"a":          renderLink,
		"strong":     bold,
		"b":          bold,
		"em":         italic,
		"i":          italic,
		"h1":         heading(1),
		"h2":         heading(2),
		"h3":         heading(3),
		"h4":         heading(4),
		"h5":         heading(5),
		"h6":         heading(6),
		"li":         renderListItem,
		"ul":         list,
		"ol":         list,
		"p":          block,
		"div":        block,
		"section":    block,
		"article":    block,
		"blockquote": block,
	}
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// ToMarkdown converts an HTML fragment to Markdown.
func ToMarkdown(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(render(n))
	}
	return strings.TrimSpace(excessNewlines.ReplaceAllString(b.String(), "\n\n"))
}

func render(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return strings.ReplaceAll(n.Data, "\u00a0", " ")
	case html.ElementNode:
		if fn, ok := renderers[strings.ToLower(n.Data)]; ok {
			return fn(n)
		}
		return renderChildren(n)
	case html.DocumentNode:
		return renderChildren(n)
	default:
		return ""
	}
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(render(c))
	}
	return b.String()
}

func renderImage(n *html.Node) string {
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" {
		return ""
	}
	return markdown.Image(cleanText(attr(n, "alt")), src)
}

func renderLink(n *html.Node) string {
	text := strings.TrimSpace(renderChildren(n))
	href := strings.TrimSpace(attr(n, "href"))
	if href != "" && text != "" {
		return markdown.Link(text, href)
	}
	return text
}

func renderListItem(n *html.Node) string {
	if content := strings.TrimSpace(renderChildren(n)); content != "" {
		return "- " + content + "\n"
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

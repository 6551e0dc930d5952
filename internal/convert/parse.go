package convert

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/hostcrawl/internal/model"
)

// ParseDocument extracts a PostDocument from one stored page.
// sourceFile is recorded as-is in the result.
func ParseDocument(r io.Reader, sourceFile string) (*model.PostDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	jsonld := blogPostingJSONLD(doc)
	post := extractPost(doc, jsonld)

	canonical := post.CanonicalURL
	if canonical == "" {
		canonical = cleanText(stringField(jsonld, "url"))
	}
	slug := ""
	if canonical != "" {
		if u, err := url.Parse(canonical); err == nil {
			slug = strings.Trim(u.Path, "/")
		}
	}

	return &model.PostDocument{
		SourceFile: sourceFile,
		Post:       post,
		Comments:   extractComments(doc),
		Metadata: model.PostMetadata{
			Slug:            slug,
			SiteName:        cleanText(attrOf(doc.Find("meta[property='og:site_name']").First(), "content")),
			BlogTitle:       textOf(doc.Find(".blog-title a").First()),
			BlogDescription: textOf(doc.Find(".blog-description").First()),
			Description:     cleanText(attrOf(doc.Find("meta[name='description']").First(), "content")),
			JSONLD:          jsonld,
		},
	}, nil
}

// blogPostingJSONLD returns the first BlogPosting object found in the page's
// JSON-LD scripts, or an empty map.
func blogPostingJSONLD(doc *goquery.Document) map[string]any {
	found := map[string]any{}

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return true
		}

		entries, ok := data.([]any)
		if !ok {
			entries = []any{data}
		}
		for _, entry := range entries {
			obj, ok := entry.(map[string]any)
			if ok && obj["@type"] == "BlogPosting" {
				found = obj
				return false
			}
		}
		return true
	})

	return found
}

func extractPost(doc *goquery.Document, jsonld map[string]any) model.Post {
	postBox := doc.Find("div.post-box").First()
	contentWrapper := postBox.Find("div.content-wrapper").First()

	var title, bodyHTML string
	if contentWrapper.Length() > 0 {
		body := contentWrapper.Clone()
		if titleEl := body.Find("h2.post-title").First(); titleEl.Length() > 0 {
			title = textOf(titleEl)
			titleEl.Remove()
		}
		inner, err := body.Html()
		if err == nil {
			bodyHTML = strings.TrimSpace(inner)
		}
	}
	if title == "" {
		title = cleanText(stringField(jsonld, "headline"))
	}
	if title == "" {
		title = cleanText(attrOf(doc.Find("meta[property='og:title']").First(), "content"))
	}

	postInfo := postBox.Find("div.post-info").First()
	author := textOf(postInfo.Find(".author-name").First())
	if author == "" {
		if a, ok := jsonld["author"].(map[string]any); ok {
			author = cleanText(stringField(a, "name"))
		}
	}

	datePosted := cleanText(stringField(jsonld, "datePublished"))
	if datePosted == "" {
		datePosted = cleanText(stringField(jsonld, "dateCreated"))
	}

	images := make([]model.Image, 0)
	contentWrapper.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		images = append(images, model.Image{
			Src: strings.TrimSpace(attrOf(img, "src")),
			Alt: cleanText(attrOf(img, "alt")),
		})
	})

	return model.Post{
		Title:            title,
		Author:           author,
		BodyMarkdown:     ToMarkdown(bodyHTML),
		BodyHTML:         bodyHTML,
		DatePostedShamsi: textOf(postInfo.Find(".post-date").First()),
		DatePosted:       datePosted,
		Likes:            toInt(joinedText(postBox.Find("[id^='post-like-count-']").First())),
		IsPinned:         postBox.Find(".pin-icon").Length() > 0,
		Images:           images,
		CanonicalURL:     strings.TrimSpace(attrOf(doc.Find("link[rel='canonical']").First(), "href")),
	}
}

func extractComments(doc *goquery.Document) model.CommentBlock {
	box := doc.Find("div.comments-box#comments").First()
	if box.Length() == 0 {
		box = doc.Find("div.comments-box").First()
	}
	if box.Length() == 0 {
		return model.CommentBlock{Items: make([]model.Comment, 0)}
	}

	var declared *int
	zero := 0
	if counter := box.Find(".comments-title .counter").First(); counter.Length() > 0 {
		declared = toInt(joinedText(counter))
	} else {
		declared = &zero
	}

	items := make([]model.Comment, 0)
	var lastCommentID *int

	box.Find("div.comment").Each(func(i int, node *goquery.Selection) {
		order := i + 1

		var id *int
		if nodeID := attrOf(node, "id"); strings.HasPrefix(nodeID, "comment-") {
			id = toInt(nodeID)
		}

		contentHTML := ""
		if content := node.Find(".comment-content").First(); content.Length() > 0 {
			if inner, err := content.Html(); err == nil {
				contentHTML = strings.TrimSpace(inner)
			}
		}
		contentMarkdown := ToMarkdown(contentHTML)
		likes := countOf(node, "[id^='comment-rate-plus-count-']")
		dislikes := countOf(node, "[id^='comment-rate-minus-count-']")

		if node.HasClass("reply") {
			items = append(items, model.Comment{
				ID:              id,
				Type:            model.CommentKindReply,
				ParentCommentID: lastCommentID,
				ContentMarkdown: contentMarkdown,
				ContentHTML:     contentHTML,
				Likes:           likes,
				Dislikes:        dislikes,
				Order:           order,
			})
			return
		}

		author := textOf(node.Find(".author-name").First())
		date := textOf(node.Find(".comment-date").First())

		// Placeholder nodes carry no data at all.
		if !nonZero(id) && author == "" && date == "" && contentMarkdown == "" && !nonZero(likes) && !nonZero(dislikes) {
			return
		}

		items = append(items, model.Comment{
			ID:               id,
			Type:             model.CommentKindComment,
			Author:           author,
			AuthorWebsite:    strings.TrimSpace(attrOf(node.Find(".author-website").First(), "href")),
			AuthorAvatar:     strings.TrimSpace(attrOf(node.Find(".author-avatar img").First(), "src")),
			DatePostedShamsi: date,
			ContentMarkdown:  contentMarkdown,
			ContentHTML:      contentHTML,
			Likes:            likes,
			Dislikes:         dislikes,
			Order:            order,
		})
		lastCommentID = id
	})

	count := len(items)
	if declared != nil {
		count = *declared
	}
	return model.CommentBlock{Count: count, Items: items}
}

// countOf parses the number inside the first element matching selector.
func countOf(s *goquery.Selection, selector string) *int {
	el := s.Find(selector).First()
	if el.Length() == 0 {
		return nil
	}
	return toInt(joinedText(el))
}

func nonZero(n *int) bool {
	return n != nil && *n != 0
}

// joinedText returns the trimmed text pieces of s joined by single spaces.
func joinedText(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// textOf returns the whitespace-normalized text of s.
func textOf(s *goquery.Selection) string {
	return cleanText(joinedText(s))
}

func attrOf(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

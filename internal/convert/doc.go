// Package convert turns stored blog pages into structured JSON documents.
//
// Every *.html file under the output root is parsed into a
// model.PostDocument holding the post, its comments and page metadata, and
// written to json/<stem>.json next to the page. Post bodies and comments
// are kept both as HTML and as Markdown.
//
// The extraction targets Blogsky markup (div.post-box, div.comments-box) and
// falls back to BlogPosting JSON-LD and Open Graph tags where the markup is
// missing.
package convert

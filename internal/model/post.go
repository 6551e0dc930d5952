package model

// PostDocument is the structured record the converter produces for one
// stored blog page. It is written next to the page as json/<stem>.json.
type PostDocument struct {
	// SourceFile is the stored HTML path, relative to the output root.
	SourceFile string `json:"source_file"`

	Post     Post         `json:"post"`
	Comments CommentBlock `json:"comments"`
	Metadata PostMetadata `json:"metadata"`
}

// Post holds the main article of a page.
type Post struct {
	Title            string  `json:"title"`
	Author           string  `json:"author"`
	BodyMarkdown     string  `json:"body_markdown"`
	BodyHTML         string  `json:"body_html"`
	DatePostedShamsi string  `json:"date_posted_shamsi"`
	DatePosted       string  `json:"date_posted"`
	Likes            *int    `json:"likes"`
	IsPinned         bool    `json:"is_pinned"`
	Images           []Image `json:"images"`
	CanonicalURL     string  `json:"canonical_url"`
}

// Image is an <img> found in the post body.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// CommentKind distinguishes top-level comments from replies.
type CommentKind string

const (
	// CommentKindComment is a top-level comment.
	CommentKindComment CommentKind = "comment"

	// CommentKindReply is a reply to the closest preceding comment.
	CommentKindReply CommentKind = "reply"
)

// CommentBlock is the comment section of a page.
type CommentBlock struct {
	// Count is the count the page declares, or len(Items) if it declares none.
	Count int       `json:"count"`
	Items []Comment `json:"items"`
}

// Comment is a single comment or reply. Author fields are only set for
// comments; ParentCommentID is only set for replies.
type Comment struct {
	ID               *int        `json:"id"`
	Type             CommentKind `json:"type"`
	ParentCommentID  *int        `json:"parent_comment_id,omitempty"`
	Author           string      `json:"author,omitempty"`
	AuthorWebsite    string      `json:"author_website,omitempty"`
	AuthorAvatar     string      `json:"author_avatar,omitempty"`
	DatePostedShamsi string      `json:"date_posted_shamsi,omitempty"`
	ContentMarkdown  string      `json:"content_markdown"`
	ContentHTML      string      `json:"content_html"`
	Likes            *int        `json:"likes"`
	Dislikes         *int        `json:"dislikes"`
	Order            int         `json:"order"`
}

// PostMetadata holds page-level metadata.
type PostMetadata struct {
	Slug            string         `json:"slug"`
	SiteName        string         `json:"site_name"`
	BlogTitle       string         `json:"blog_title"`
	BlogDescription string         `json:"blog_description"`
	Description     string         `json:"description"`
	JSONLD          map[string]any `json:"jsonld"`
}

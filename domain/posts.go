package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

const (
	PostStateDraft     = "draft"
	PostStatePublished = "published"
)

// Post is a blog entry. Created with a placeholder uri that is backfilled
// with the canonical object uri in the same transaction once the slug is
// known. Only published posts federate.
type Post struct {
	Id          uuid.UUID
	Uri         string
	Url         string
	Slug        string
	Title       string
	Content     string
	State       string
	Category    string
	BannerId    *uuid.UUID
	ActorId     uuid.UUID
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Post) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tSlug: %s \n\tState: %s \n\tCreatedAt: %s)", p.Id, p.Slug, p.State, p.CreatedAt)
}

// Mention is a resolved mention tag on a comment
type Mention struct {
	Href string `json:"href"`
	Name string `json:"name"`
}

// Comment is a reply to a post or to another comment, threaded via ParentId.
// To and Cc keep the literal recipient URIs captured at creation time so the
// visibility tier can be recomputed later without recontacting remote actors.
type Comment struct {
	Id        uuid.UUID
	Uri       string
	Url       string
	ActorId   uuid.UUID
	PostId    uuid.UUID
	ParentId  *uuid.UUID
	Content   string
	To        []string
	Cc        []string
	Mentions  []Mention
	CreatedAt time.Time
}

// CommentAttachment is a document attached to a comment
type CommentAttachment struct {
	Id        uuid.UUID
	CommentId uuid.UUID
	Url       string
	MediaType string
	Sensitive bool
	Name      string
}

package activitypub

import (
	"fmt"
	"regexp"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

// commentSlugPattern matches the UUID suffix that marks a slug as a comment
// identifier. The slug space is shared: anything else is a post slug.
var commentSlugPattern = regexp.MustCompile(`-([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// ResolveObject maps a canonical slug to its Note. Slugs ending in a
// UUID-shaped suffix resolve to comments, everything else to published
// posts; neither match is a not-found for the caller to map to a 404.
func (s *Service) ResolveObject(slug string) (*Note, error) {
	if match := commentSlugPattern.FindStringSubmatch(slug); match != nil {
		commentId, err := uuid.Parse(match[1])
		if err == nil {
			// The stored uri must be this instance's uri for exactly this
			// slug: a wrong post prefix or a remote-authored comment (whose
			// uri is the remote note id) has no local rendition.
			if err, comment := s.db.ReadCommentById(commentId); err == nil && comment.Uri == s.ObjectURI(slug) {
				return s.commentNote(comment)
			}
		}
	}

	err, post := s.db.ReadPostBySlug(slug)
	if err != nil || post.State != domain.PostStatePublished {
		return nil, fmt.Errorf("no object for slug %s", slug)
	}
	return s.postNote(post)
}

// postNote renders a published post as a public Note. The content carries a
// link+title+author+last-modified prefix ahead of the stored HTML, so
// followers' timelines show attribution even when the body is truncated.
func (s *Service) postNote(post *domain.Post) (*Note, error) {
	err, author := s.db.ReadActorById(post.ActorId)
	if err != nil {
		return nil, fmt.Errorf("post %s has no author: %w", post.Slug, err)
	}

	published := post.CreatedAt
	if post.PublishedAt != nil {
		published = *post.PublishedAt
	}

	content := fmt.Sprintf(
		`<p><a href="%s">%s</a> by %s, last modified %s</p>%s`,
		post.Url, post.Title, author.Name, post.UpdatedAt.Format("2006-01-02"), post.Content,
	)

	note := &Note{
		Context:      ActivityStreamsContext,
		ID:           post.Uri,
		Type:         "Note",
		AttributedTo: author.Uri,
		Content:      content,
		URL:          post.Url,
		Published:    published.Format(time.RFC3339),
		Updated:      post.UpdatedAt.Format(time.RFC3339),
		To:           []string{PublicCollection},
		Cc:           []string{s.FollowersURI(author.Username)},
	}

	if post.BannerId != nil {
		if err, banner := s.db.ReadImageById(*post.BannerId); err == nil {
			note.Attachment = []Document{{Type: "Document", URL: banner.Url}}
		}
	}

	return note, nil
}

// commentNote renders a stored comment with its captured addressing intact
func (s *Service) commentNote(comment *domain.Comment) (*Note, error) {
	err, author := s.db.ReadActorById(comment.ActorId)
	if err != nil {
		return nil, fmt.Errorf("comment %s has no author: %w", comment.Id, err)
	}

	replyTarget := ""
	if comment.ParentId != nil {
		if err, parent := s.db.ReadCommentById(*comment.ParentId); err == nil {
			replyTarget = parent.Uri
		}
	}
	if replyTarget == "" {
		err, post := s.db.ReadPostById(comment.PostId)
		if err != nil {
			return nil, fmt.Errorf("comment %s has no post: %w", comment.Id, err)
		}
		replyTarget = post.Uri
	}

	note := &Note{
		Context:      ActivityStreamsContext,
		ID:           comment.Uri,
		Type:         "Note",
		AttributedTo: author.Uri,
		Content:      comment.Content,
		URL:          comment.Url,
		Published:    comment.CreatedAt.Format(time.RFC3339),
		To:           comment.To,
		Cc:           comment.Cc,
		InReplyTo:    replyTarget,
	}

	for _, mention := range comment.Mentions {
		note.Tag = append(note.Tag, Tag{Type: "Mention", Href: mention.Href, Name: mention.Name})
	}

	if err, attachments := s.db.ReadAttachmentsByCommentId(comment.Id); err == nil {
		for _, att := range *attachments {
			note.Attachment = append(note.Attachment, Document{
				Type:      "Document",
				MediaType: att.MediaType,
				URL:       att.Url,
				Name:      att.Name,
				Sensitive: att.Sensitive,
			})
		}
	}

	return note, nil
}

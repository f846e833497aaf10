package blog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/fedipage/activitypub"
	"github.com/deemkeen/fedipage/domain"
	"github.com/deemkeen/fedipage/util"
	"github.com/google/uuid"
)

// CreateComment stores a locally authored reply and federates it. Addressing
// propagates the parent's visibility: a reply to a comment is seeded from
// that comment's captured to/cc, a reply directly to the post from the
// post's public addressing. Mentions in the content are resolved to remote
// actors so the delivery reaches them even off the follower list.
func (s *Service) CreateComment(ctx context.Context, postId uuid.UUID, parentId *uuid.UUID, content string) (*domain.Comment, error) {
	err, post := s.db.ReadPostById(postId)
	if err != nil {
		return nil, fmt.Errorf("post not found: %w", err)
	}

	err, author := s.db.ReadMainActor()
	if err != nil {
		return nil, fmt.Errorf("no main actor configured: %w", err)
	}

	mentions := s.resolveMentions(ctx, content)
	mentionURIs := make([]string, 0, len(mentions))
	for _, mention := range mentions {
		mentionURIs = append(mentionURIs, mention.Href)
	}

	// Addressing: a reply under a parent comment keeps the parent's captured
	// visibility tier; a reply directly to the post addresses the post's
	// actor with Public demoted to cc (unlisted).
	var to, cc []string
	if parentId != nil {
		err, parent := s.db.ReadCommentById(*parentId)
		if err != nil {
			return nil, fmt.Errorf("parent comment not found: %w", err)
		}
		if parent.PostId != post.Id {
			return nil, fmt.Errorf("parent comment belongs to a different post")
		}
		to, cc = activitypub.ReplyAddressing(parent.To, parent.Cc, s.ap.FollowersURI(author.Username), mentionURIs)
	} else {
		err, postActor := s.db.ReadActorById(post.ActorId)
		if err != nil {
			return nil, fmt.Errorf("post has no actor: %w", err)
		}
		to = []string{postActor.Uri}
		cc = []string{activitypub.PublicCollection, s.ap.FollowersURI(postActor.Username)}
	}

	comment := &domain.Comment{
		Id:        uuid.New(),
		ActorId:   author.Id,
		PostId:    post.Id,
		ParentId:  parentId,
		Content:   content,
		To:        to,
		Cc:        cc,
		Mentions:  mentions,
		CreatedAt: time.Now(),
	}

	slug := post.Slug + "-" + comment.Id.String()
	if err := s.db.CreateComment(comment, nil, s.ap.ObjectURI(slug)); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	// The comment is committed; a federation failure cannot undo it
	if err := s.ap.CommentCreated(comment); err != nil {
		log.Printf("Blog: Failed to federate comment %s: %v", comment.Id, err)
	}
	return comment, nil
}

// resolveMentions maps @user@host handles in the content to cached or
// freshly fetched remote actors. Unresolvable handles are logged and skipped
// rather than blocking the comment.
func (s *Service) resolveMentions(ctx context.Context, content string) []domain.Mention {
	mentions := make([]domain.Mention, 0)
	for _, handle := range util.MentionHandles(content) {
		err, cached := s.db.ReadActorByHandle(handle)
		if err == nil {
			mentions = append(mentions, domain.Mention{Href: cached.Uri, Name: handle})
			continue
		}

		actor, err := s.ap.LookupActor(ctx, handle)
		if err != nil {
			log.Printf("Blog: Could not resolve mention %s: %v", handle, err)
			continue
		}
		mentions = append(mentions, domain.Mention{Href: actor.Uri, Name: handle})
	}
	return mentions
}

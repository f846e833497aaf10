package activitypub

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

// HandleActivity processes one inbound activity. Each activity type has its
// own handler; handlers are idempotent and fail closed: malformed,
// unauthorized or dangling input is logged and dropped without an error
// escaping to the transport. Only external-IO failures (remote fetches,
// avatar mirroring) surface, aborting just this one activity.
func (s *Service) HandleActivity(ctx context.Context, body []byte) error {
	var activity Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		log.Printf("Inbox: Failed to parse activity: %v", err)
		return nil
	}
	if activity.Type == "" || activity.Actor == "" {
		log.Printf("Inbox: Dropping activity without type or actor")
		return nil
	}

	log.Printf("Inbox: Received %s from %s", activity.Type, activity.Actor)

	record := &domain.Activity{
		Id:           uuid.New(),
		ActivityURI:  activity.ID,
		ActivityType: activity.Type,
		ActorURI:     activity.Actor,
		ObjectURI:    objectURI(activity.Object),
		RawJSON:      string(body),
		CreatedAt:    time.Now(),
	}

	// Duplicate deliveries of the same activity are a no-op; a redelivery of
	// one that failed mid-flight reuses its log row
	if activity.ID != "" {
		if err, seen := s.db.ReadActivityByURI(activity.ID); err == nil {
			if seen.Processed {
				log.Printf("Inbox: Activity %s already processed, skipping", activity.ID)
				return nil
			}
			record.Id = seen.Id
		}
	}
	if err := s.db.CreateActivity(record); err != nil && !db.IsUniqueViolation(err) {
		log.Printf("Inbox: Failed to log activity: %v", err)
	}

	var err error
	switch activity.Type {
	case "Follow":
		err = s.handleFollow(ctx, &activity)
	case "Undo":
		err = s.handleUndo(&activity)
	case "Create":
		err = s.handleCreate(ctx, &activity)
	case "Delete":
		err = s.handleDelete(&activity)
	case "Update":
		err = s.handleUpdate(ctx, &activity)
	default:
		log.Printf("Inbox: Unsupported activity type: %s", activity.Type)
	}
	if err != nil {
		return err
	}

	record.Processed = true
	if err := s.db.UpdateActivity(record); err != nil {
		log.Printf("Inbox: Failed to mark activity processed: %v", err)
	}
	return nil
}

// handleFollow creates the follow edge and answers with an Accept
func (s *Service) handleFollow(ctx context.Context, activity *Activity) error {
	followedURI := objectURI(activity.Object)
	if followedURI == "" {
		log.Printf("Inbox: Dropping Follow without object")
		return nil
	}

	err, local := s.db.ReadActorByUri(followedURI)
	if err != nil || !strings.HasPrefix(local.Uri, s.conf.PublicURL()) {
		log.Printf("Inbox: Dropping Follow for unknown actor %s", followedURI)
		return nil
	}

	follower, err := s.GetOrFetchActor(ctx, activity.Actor)
	if err != nil {
		return err
	}
	if follower.InboxUrl == "" {
		log.Printf("Inbox: Dropping Follow from %s: no inbox", activity.Actor)
		return nil
	}

	// Duplicate Follow requests collapse to one edge
	if err := s.db.CreateFollow(local.Id, follower.Id); err != nil {
		log.Printf("Inbox: Failed to create follow: %v", err)
		return nil
	}

	if err := s.SendAccept(local, follower, activity.ID); err != nil {
		log.Printf("Inbox: Failed to send Accept to %s: %v", follower.Handle, err)
	}

	log.Printf("Inbox: Accepted follow from %s", follower.Handle)
	return nil
}

// handleUndo removes the follow edge referenced by the undone Follow
func (s *Service) handleUndo(activity *Activity) error {
	var undone struct {
		Type   string `json:"type"`
		Actor  string `json:"actor"`
		Object string `json:"object"`
	}
	if err := json.Unmarshal(activity.Object, &undone); err != nil {
		log.Printf("Inbox: Failed to parse Undo object: %v", err)
		return nil
	}
	if undone.Type != "Follow" {
		log.Printf("Inbox: Ignoring Undo of %s", undone.Type)
		return nil
	}

	err, local := s.db.ReadActorByUri(undone.Object)
	if err != nil {
		log.Printf("Inbox: Dropping Undo for unknown actor %s", undone.Object)
		return nil
	}

	// The follower must already be cached; an Undo from a stranger is a no-op
	err, follower := s.db.ReadActorByUri(activity.Actor)
	if err != nil {
		log.Printf("Inbox: Dropping Undo from uncached actor %s", activity.Actor)
		return nil
	}

	// Deleting a missing edge succeeds silently
	if err := s.db.DeleteFollow(local.Id, follower.Id); err != nil {
		log.Printf("Inbox: Failed to delete follow: %v", err)
		return nil
	}

	log.Printf("Inbox: Removed follow from %s", follower.Handle)
	return nil
}

// handleCreate persists an inbound reply Note as a comment. Top-level Notes
// are ignored: remote actors comment here, they do not post.
func (s *Service) handleCreate(ctx context.Context, activity *Activity) error {
	var note Note
	if err := json.Unmarshal(activity.Object, &note); err != nil {
		log.Printf("Inbox: Failed to parse Create object: %v", err)
		return nil
	}

	if note.InReplyTo == "" {
		log.Printf("Inbox: Ignoring top-level Note from %s", activity.Actor)
		return nil
	}
	if note.ID == "" || note.Content == "" {
		log.Printf("Inbox: Dropping Create with incomplete Note from %s", activity.Actor)
		return nil
	}
	if note.AttributedTo != activity.Actor {
		log.Printf("Inbox: Dropping Create with forged attribution: actor %s, attributedTo %s",
			activity.Actor, note.AttributedTo)
		return nil
	}

	// The reply target must resolve to exactly one local post or comment
	var postId uuid.UUID
	var parentId *uuid.UUID
	if err, post := s.db.ReadPostByUri(note.InReplyTo); err == nil {
		postId = post.Id
	} else if err, parent := s.db.ReadCommentByUri(note.InReplyTo); err == nil {
		postId = parent.PostId
		parentId = &parent.Id
	} else {
		log.Printf("Inbox: Dropping reply to unknown object %s", note.InReplyTo)
		return nil
	}

	author, err := s.GetOrFetchActor(ctx, activity.Actor)
	if err != nil {
		return err
	}

	mentions := make([]domain.Mention, 0)
	for _, tag := range note.Tag {
		if tag.Type == "Mention" {
			mentions = append(mentions, domain.Mention{Href: tag.Href, Name: tag.Name})
		}
	}

	attachments := make([]domain.CommentAttachment, 0)
	for _, doc := range note.Attachment {
		if doc.Type != "Document" {
			continue
		}
		attachments = append(attachments, domain.CommentAttachment{
			Url:       doc.URL,
			MediaType: doc.MediaType,
			Sensitive: doc.Sensitive,
			Name:      doc.Name,
		})
	}

	comment := &domain.Comment{
		Id:        uuid.New(),
		Uri:       note.ID,
		Url:       note.URL,
		ActorId:   author.Id,
		PostId:    postId,
		ParentId:  parentId,
		Content:   note.Content,
		To:        note.To,
		Cc:        note.Cc,
		Mentions:  mentions,
		CreatedAt: time.Now(),
	}
	if err := s.db.CreateComment(comment, attachments, ""); err != nil {
		if db.IsUniqueViolation(err) {
			log.Printf("Inbox: Comment %s already exists, skipping", note.ID)
			return nil
		}
		log.Printf("Inbox: Failed to store comment: %v", err)
		return nil
	}

	log.Printf("Inbox: Stored reply %s from %s", note.ID, author.Handle)
	return nil
}

// handleDelete removes a comment when the deleting actor is its author
func (s *Service) handleDelete(activity *Activity) error {
	uri := objectURI(activity.Object)
	if uri == "" {
		log.Printf("Inbox: Dropping Delete without object uri")
		return nil
	}

	err, comment := s.db.ReadCommentByUri(uri)
	if err != nil {
		log.Printf("Inbox: Comment %s not found for deletion, ignoring", uri)
		return nil
	}

	err, author := s.db.ReadActorById(comment.ActorId)
	if err != nil || author.Uri != activity.Actor {
		log.Printf("Inbox: Dropping unauthorized Delete of %s by %s", uri, activity.Actor)
		return nil
	}

	if err := s.db.DeleteComment(comment.Id); err != nil {
		log.Printf("Inbox: Failed to delete comment: %v", err)
		return nil
	}

	log.Printf("Inbox: Deleted comment %s", uri)
	return nil
}

// handleUpdate edits a comment (author only) or refreshes a cached actor
// (self-update only)
func (s *Service) handleUpdate(ctx context.Context, activity *Activity) error {
	var kind struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(activity.Object, &kind); err != nil {
		log.Printf("Inbox: Failed to parse Update object: %v", err)
		return nil
	}

	switch kind.Type {
	case "Note":
		var note Note
		if err := json.Unmarshal(activity.Object, &note); err != nil {
			log.Printf("Inbox: Failed to parse updated Note: %v", err)
			return nil
		}

		err, comment := s.db.ReadCommentByUri(note.ID)
		if err != nil {
			log.Printf("Inbox: Comment %s not found for update, ignoring", note.ID)
			return nil
		}

		err, author := s.db.ReadActorById(comment.ActorId)
		if err != nil || author.Uri != activity.Actor {
			log.Printf("Inbox: Dropping unauthorized Update of %s by %s", note.ID, activity.Actor)
			return nil
		}

		url := note.URL
		if url == "" {
			url = comment.Url
		}
		if err := s.db.UpdateCommentContent(comment.Id, note.Content, url); err != nil {
			log.Printf("Inbox: Failed to update comment: %v", err)
			return nil
		}
		log.Printf("Inbox: Updated comment %s", note.ID)

	case "Person", "Service", "Organization", "Group", "Application":
		if kind.ID != activity.Actor {
			log.Printf("Inbox: Dropping Update of actor %s by %s", kind.ID, activity.Actor)
			return nil
		}

		var person Person
		if err := json.Unmarshal(activity.Object, &person); err != nil {
			log.Printf("Inbox: Failed to parse updated actor: %v", err)
			return nil
		}
		if _, err := s.UpsertActor(ctx, &person); err != nil {
			return err
		}
		log.Printf("Inbox: Refreshed actor %s", activity.Actor)

	default:
		log.Printf("Inbox: Unsupported Update object type: %s", kind.Type)
	}

	return nil
}

package activitypub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

// Activity ids derive from the object's canonical uri with a fixed fragment,
// so receivers recognize a redelivery of the same logical event as a
// duplicate.
func activityID(objectURI string) string {
	return objectURI + "#activity"
}

// PostCreated federates a newly created post. Drafts never federate.
func (s *Service) PostCreated(post *domain.Post) error {
	if post.State != domain.PostStatePublished {
		return nil
	}
	return s.sendPostActivity("Create", post)
}

// PostUpdated federates an edit to a published post. Draft transitions never
// federate.
func (s *Service) PostUpdated(post *domain.Post) error {
	if post.State != domain.PostStatePublished {
		return nil
	}
	return s.sendPostActivity("Update", post)
}

// PostDeleted federates the deletion of a previously published post. Deleting
// a draft emits nothing.
func (s *Service) PostDeleted(prior *domain.Post) error {
	if prior.State != domain.PostStatePublished {
		return nil
	}

	err, author := s.db.ReadActorById(prior.ActorId)
	if err != nil {
		return fmt.Errorf("deleted post has no author: %w", err)
	}

	activity := map[string]interface{}{
		"@context": ActivityStreamsContext,
		"id":       activityID(prior.Uri),
		"type":     "Delete",
		"actor":    author.Uri,
		"to":       []string{PublicCollection},
		"cc":       []string{s.FollowersURI(author.Username)},
		"object":   Tombstone{ID: prior.Uri, Type: "Tombstone"},
	}

	return s.deliverToFollowers(author.Id, activity)
}

func (s *Service) sendPostActivity(activityType string, post *domain.Post) error {
	note, err := s.postNote(post)
	if err != nil {
		return err
	}

	err, author := s.db.ReadActorById(post.ActorId)
	if err != nil {
		return fmt.Errorf("post has no author: %w", err)
	}

	activity := map[string]interface{}{
		"@context":  ActivityStreamsContext,
		"id":        activityID(post.Uri),
		"type":      activityType,
		"actor":     author.Uri,
		"published": note.Published,
		"to":        note.To,
		"cc":        note.Cc,
		"object":    note,
	}

	return s.deliverToFollowers(author.Id, activity)
}

// CommentCreated federates a locally authored comment. Recipients are the
// author's followers plus every explicitly mentioned actor, so mentions
// reach their target even off the follower list.
func (s *Service) CommentCreated(comment *domain.Comment) error {
	note, err := s.commentNote(comment)
	if err != nil {
		return err
	}

	err, author := s.db.ReadActorById(comment.ActorId)
	if err != nil {
		return fmt.Errorf("comment has no author: %w", err)
	}

	activity := map[string]interface{}{
		"@context":  ActivityStreamsContext,
		"id":        activityID(comment.Uri),
		"type":      "Create",
		"actor":     author.Uri,
		"published": note.Published,
		"to":        note.To,
		"cc":        note.Cc,
		"object":    note,
	}

	inboxes := s.followerInboxes(author.Id)
	for _, mention := range comment.Mentions {
		err, mentioned := s.db.ReadActorByUri(mention.Href)
		if err != nil {
			log.Printf("Outbox: Mentioned actor %s not cached, skipping", mention.Href)
			continue
		}
		inboxes[preferredInbox(mentioned)] = true
	}

	return s.enqueue(activity, inboxes)
}

// SendAccept answers a Follow with an Accept referencing it
func (s *Service) SendAccept(local *domain.Actor, follower *domain.Actor, followActivityID string) error {
	actorURI := s.ActorURI(local.Username)
	accept := map[string]interface{}{
		"@context": ActivityStreamsContext,
		"id":       fmt.Sprintf("%s/activities/%s", s.conf.PublicURL(), uuid.New().String()),
		"type":     "Accept",
		"actor":    actorURI,
		"object": map[string]interface{}{
			"id":     followActivityID,
			"type":   "Follow",
			"actor":  follower.Uri,
			"object": actorURI,
		},
	}

	return s.enqueue(accept, map[string]bool{follower.InboxUrl: true})
}

// deliverToFollowers queues an activity to every follower's inbox
func (s *Service) deliverToFollowers(authorId uuid.UUID, activity map[string]interface{}) error {
	return s.enqueue(activity, s.followerInboxes(authorId))
}

// followerInboxes collects the distinct delivery inboxes of all followers,
// preferring an instance's shared inbox over per-actor ones
func (s *Service) followerInboxes(authorId uuid.UUID) map[string]bool {
	inboxes := make(map[string]bool)

	err, followers := s.db.ReadFollowersByFollowingId(authorId)
	if err != nil {
		log.Printf("Outbox: Failed to read followers: %v", err)
		return inboxes
	}

	for _, follower := range *followers {
		if inbox := preferredInbox(&follower); inbox != "" {
			inboxes[inbox] = true
		}
	}
	return inboxes
}

func preferredInbox(actor *domain.Actor) string {
	if actor.SharedInboxUrl != "" {
		return actor.SharedInboxUrl
	}
	return actor.InboxUrl
}

// enqueue serializes the activity once and queues one delivery per inbox.
// The delivery worker picks the items up, signs and posts them.
func (s *Service) enqueue(activity map[string]interface{}, inboxes map[string]bool) error {
	if len(inboxes) == 0 {
		log.Printf("Outbox: No recipients for %v activity", activity["type"])
		return nil
	}

	activityJSON, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	queued := 0
	for inbox := range inboxes {
		item := &domain.DeliveryQueueItem{
			Id:           uuid.New(),
			InboxURI:     inbox,
			ActivityJSON: string(activityJSON),
			NextRetryAt:  time.Now(),
			CreatedAt:    time.Now(),
		}
		if err := s.db.EnqueueDelivery(item); err != nil {
			log.Printf("Outbox: Failed to queue delivery to %s: %v", inbox, err)
			continue
		}
		queued++
	}

	log.Printf("Outbox: Queued %v activity for %d inboxes", activity["type"], queued)
	return nil
}

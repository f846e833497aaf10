package domain

import (
	"encoding/json"
	"github.com/google/uuid"
	"testing"
	"time"
)

func TestKeyAlgorithmOrder(t *testing.T) {
	if len(KeyAlgorithms) != 2 {
		t.Fatalf("Expected 2 supported algorithms, got %d", len(KeyAlgorithms))
	}
	if KeyAlgorithms[0] != KeyAlgorithmRSA {
		t.Errorf("Expected RSA first, got '%s'", KeyAlgorithms[0])
	}
	if KeyAlgorithms[1] != KeyAlgorithmEd25519 {
		t.Errorf("Expected Ed25519 second, got '%s'", KeyAlgorithms[1])
	}
}

func TestActorStruct(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	actor := Actor{
		Id:             id,
		Uri:            "https://example.com/users/alice",
		Handle:         "@alice@example.com",
		Username:       "alice",
		Name:           "Alice",
		Summary:        "bio",
		InboxUrl:       "https://example.com/users/alice/inbox",
		SharedInboxUrl: "https://example.com/inbox",
		CreatedAt:      now,
	}

	if actor.Id != id {
		t.Errorf("Expected Id %s, got %s", id, actor.Id)
	}
	if actor.Handle != "@alice@example.com" {
		t.Errorf("Expected Handle '@alice@example.com', got '%s'", actor.Handle)
	}
	if actor.AvatarId != nil {
		t.Error("Expected nil AvatarId for new actor")
	}
}

func TestMentionJSONRoundTrip(t *testing.T) {
	mentions := []Mention{
		{Href: "https://example.com/users/bob", Name: "@bob@example.com"},
	}

	data, err := json.Marshal(mentions)
	if err != nil {
		t.Fatalf("Failed to marshal mentions: %v", err)
	}

	var decoded []Mention
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal mentions: %v", err)
	}

	if len(decoded) != 1 || decoded[0].Href != mentions[0].Href || decoded[0].Name != mentions[0].Name {
		t.Errorf("Round trip mismatch: %v", decoded)
	}
}

func TestPostStates(t *testing.T) {
	post := Post{
		Id:    uuid.New(),
		Slug:  "hello-world",
		State: PostStateDraft,
	}

	if post.State != "draft" {
		t.Errorf("Expected state 'draft', got '%s'", post.State)
	}
	if post.PublishedAt != nil {
		t.Error("Expected nil PublishedAt for draft")
	}
}

func TestCommentThreading(t *testing.T) {
	parentId := uuid.New()
	comment := Comment{
		Id:       uuid.New(),
		Uri:      "https://example.com/post/hello-world-0e8ed489-00a8-427b-8e51-a7a29ba29prr",
		PostId:   uuid.New(),
		ParentId: &parentId,
		To:       []string{"https://www.w3.org/ns/activitystreams#Public"},
		Cc:       []string{"https://example.com/users/site/followers"},
	}

	if comment.ParentId == nil || *comment.ParentId != parentId {
		t.Error("Expected ParentId to be set")
	}
	if len(comment.To) != 1 {
		t.Errorf("Expected 1 to recipient, got %d", len(comment.To))
	}
}

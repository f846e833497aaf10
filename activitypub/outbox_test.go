package activitypub

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

func TestActivityIDDeterministic(t *testing.T) {
	uri := "https://blog.example.com/post/hello-world"
	if got := activityID(uri); got != uri+"#activity" {
		t.Errorf("Expected fragment-suffixed id, got '%s'", got)
	}
	if activityID(uri) != activityID(uri) {
		t.Error("Expected the same uri to yield the same activity id")
	}
}

func TestPostCreatedDraftEmitsNothing(t *testing.T) {
	svc, database, _ := setupTestService(t)
	local := seedLocalActor(t, svc, database)
	seedRemoteActor(t, database, "alice")

	draft := &domain.Post{
		Id:        uuid.New(),
		Slug:      "wip",
		Title:     "WIP",
		Content:   "soon",
		State:     domain.PostStateDraft,
		ActorId:   local.Id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	database.CreatePost(draft, svc.ObjectURI("wip"))

	if err := svc.PostCreated(draft); err != nil {
		t.Fatalf("Failed: %v", err)
	}

	err, items := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}
	if len(*items) != 0 {
		t.Errorf("Expected draft to federate nothing, got %d items", len(*items))
	}
}

func TestPostCreatedQueuesToFollowers(t *testing.T) {
	svc, database, _ := setupTestService(t)
	local := seedLocalActor(t, svc, database)
	alice := seedRemoteActor(t, database, "alice")
	bob := seedRemoteActor(t, database, "bob")
	database.CreateFollow(local.Id, alice.Id)
	database.CreateFollow(local.Id, bob.Id)

	post := seedPublishedPost(t, svc, database, local.Id, "hello-world")
	if err := svc.PostCreated(post); err != nil {
		t.Fatalf("Failed: %v", err)
	}

	err, items := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}
	if len(*items) != 2 {
		t.Fatalf("Expected one delivery per follower inbox, got %d", len(*items))
	}

	var activity map[string]interface{}
	json.Unmarshal([]byte((*items)[0].ActivityJSON), &activity)
	if activity["type"] != "Create" {
		t.Errorf("Expected Create activity, got %v", activity["type"])
	}
	if activity["id"] != post.Uri+"#activity" {
		t.Errorf("Expected deterministic activity id, got %v", activity["id"])
	}
}

func TestPostCreatedSharedInboxDeduplicated(t *testing.T) {
	svc, database, _ := setupTestService(t)
	local := seedLocalActor(t, svc, database)

	// Two followers on the same instance share one inbox
	for _, name := range []string{"alice", "bob"} {
		follower := &domain.Actor{
			Id:             uuid.New(),
			Uri:            "https://remote.example/users/" + name,
			Handle:         "@" + name + "@remote.example",
			Username:       name,
			InboxUrl:       "https://remote.example/users/" + name + "/inbox",
			SharedInboxUrl: "https://remote.example/inbox",
			CreatedAt:      time.Now(),
		}
		database.CreateActor(follower)
		database.CreateFollow(local.Id, follower.Id)
	}

	post := seedPublishedPost(t, svc, database, local.Id, "hello-world")
	if err := svc.PostCreated(post); err != nil {
		t.Fatalf("Failed: %v", err)
	}

	err, items := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}
	if len(*items) != 1 {
		t.Errorf("Expected shared inbox collapsed to one delivery, got %d", len(*items))
	}
	if (*items)[0].InboxURI != "https://remote.example/inbox" {
		t.Errorf("Expected delivery to the shared inbox, got %s", (*items)[0].InboxURI)
	}
}

func TestPostDeletedOnlyWhenPublished(t *testing.T) {
	svc, database, _ := setupTestService(t)
	local := seedLocalActor(t, svc, database)
	alice := seedRemoteActor(t, database, "alice")
	database.CreateFollow(local.Id, alice.Id)

	draft := &domain.Post{
		Id:        uuid.New(),
		Uri:       svc.ObjectURI("wip"),
		Slug:      "wip",
		State:     domain.PostStateDraft,
		ActorId:   local.Id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := svc.PostDeleted(draft); err != nil {
		t.Fatalf("Failed: %v", err)
	}

	err, items := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}
	if len(*items) != 0 {
		t.Fatalf("Expected deleted draft to emit nothing, got %d", len(*items))
	}

	published := seedPublishedPost(t, svc, database, local.Id, "hello-world")
	if err := svc.PostDeleted(published); err != nil {
		t.Fatalf("Failed: %v", err)
	}

	err, items = database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}
	if len(*items) != 1 {
		t.Fatalf("Expected exactly one Delete, got %d", len(*items))
	}
	if !strings.Contains((*items)[0].ActivityJSON, "Tombstone") {
		t.Errorf("Expected a Tombstone object in the Delete activity")
	}
}

func TestCommentCreatedReachesMentionedActors(t *testing.T) {
	svc, database, _ := setupTestService(t)
	local := seedLocalActor(t, svc, database)
	follower := seedRemoteActor(t, database, "alice")
	mentioned := seedRemoteActor(t, database, "carol")
	database.CreateFollow(local.Id, follower.Id)

	post := seedPublishedPost(t, svc, database, local.Id, "hello-world")
	comment := &domain.Comment{
		Id:        uuid.New(),
		ActorId:   local.Id,
		PostId:    post.Id,
		Content:   "replying to myself",
		To:        []string{PublicCollection},
		Cc:        []string{svc.FollowersURI("blog"), mentioned.Uri},
		Mentions:  []domain.Mention{{Href: mentioned.Uri, Name: mentioned.Handle}},
		CreatedAt: time.Now(),
	}
	slug := "hello-world-" + comment.Id.String()
	if err := database.CreateComment(comment, nil, svc.ObjectURI(slug)); err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}

	if err := svc.CommentCreated(comment); err != nil {
		t.Fatalf("Failed: %v", err)
	}

	err, items := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}

	inboxes := make(map[string]bool)
	for _, item := range *items {
		inboxes[item.InboxURI] = true
	}
	if !inboxes[follower.InboxUrl] {
		t.Error("Expected delivery to the follower")
	}
	if !inboxes[mentioned.InboxUrl] {
		t.Error("Expected delivery to the mentioned actor even though they do not follow")
	}
}

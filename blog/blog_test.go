package blog

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/fedipage/activitypub"
	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/domain"
	"github.com/deemkeen/fedipage/storage"
	"github.com/deemkeen/fedipage/util"
	"github.com/google/uuid"
)

func setupTestBlog(t *testing.T) (*Service, *db.DB, *domain.Actor) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	conf := &util.AppConfig{}
	conf.Conf.SslDomain = "blog.example.com"
	conf.Conf.MaxAvatarBytes = 1024 * 1024

	ap := activitypub.NewService(database, storage.NewMemoryStore("https://cdn.example.com"), conf)
	svc := NewService(database, ap)

	author := &domain.Actor{
		Id:        uuid.New(),
		Uri:       "https://blog.example.com/users/blog",
		Handle:    "@blog@blog.example.com",
		Username:  "blog",
		Name:      "Example Blog",
		InboxUrl:  "https://blog.example.com/users/blog/inbox",
		CreatedAt: time.Now(),
	}
	if err := database.CreateActor(author); err != nil {
		t.Fatalf("Failed to create author: %v", err)
	}
	if err := database.SetMainActor(author.Id); err != nil {
		t.Fatalf("Failed to set main actor: %v", err)
	}
	return svc, database, author
}

func addFollower(t *testing.T, database *db.DB, localId uuid.UUID, username string) *domain.Actor {
	follower := &domain.Actor{
		Id:        uuid.New(),
		Uri:       "https://remote.example/users/" + username,
		Handle:    "@" + username + "@remote.example",
		Username:  username,
		InboxUrl:  "https://remote.example/users/" + username + "/inbox",
		CreatedAt: time.Now(),
	}
	if err := database.CreateActor(follower); err != nil {
		t.Fatalf("Failed to create follower: %v", err)
	}
	if err := database.CreateFollow(localId, follower.Id); err != nil {
		t.Fatalf("Failed to create follow: %v", err)
	}
	return follower
}

func pendingCount(t *testing.T, database *db.DB) int {
	err, items := database.ReadPendingDeliveries(100)
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}
	return len(*items)
}

func TestCreatePostSlugAndUri(t *testing.T) {
	svc, database, _ := setupTestBlog(t)

	post, err := svc.CreatePost("Hello, World!", "<p>first</p>", "general", true)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	if post.Slug != "hello-world" {
		t.Errorf("Expected slug 'hello-world', got '%s'", post.Slug)
	}
	if post.Uri != "https://blog.example.com/post/hello-world" {
		t.Errorf("Expected canonical uri, got '%s'", post.Uri)
	}
	if post.PublishedAt == nil {
		t.Error("Expected publishedAt set on publish")
	}

	err, stored := database.ReadPostBySlug("hello-world")
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	if stored.Uri != post.Uri {
		t.Errorf("Expected stored uri to match")
	}
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	svc, _, _ := setupTestBlog(t)

	if _, err := svc.CreatePost("Same Title", "a", "", false); err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	_, err := svc.CreatePost("Same Title", "b", "", false)
	if err == nil {
		t.Fatal("Expected duplicate slug to be rejected")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected slug conflict error, got: %v", err)
	}
}

func TestCreatePostFederatesOnlyPublished(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	addFollower(t, database, author.Id, "alice")

	if _, err := svc.CreatePost("Draft", "wip", "", false); err != nil {
		t.Fatalf("Failed to create draft: %v", err)
	}
	if got := pendingCount(t, database); got != 0 {
		t.Errorf("Expected draft to federate nothing, got %d deliveries", got)
	}

	if _, err := svc.CreatePost("Published", "done", "", true); err != nil {
		t.Fatalf("Failed to create published post: %v", err)
	}
	if got := pendingCount(t, database); got != 1 {
		t.Errorf("Expected one Create delivery, got %d", got)
	}
}

func TestUpdatePostPublishTransition(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	addFollower(t, database, author.Id, "alice")

	post, err := svc.CreatePost("Draft", "wip", "", false)
	if err != nil {
		t.Fatalf("Failed to create draft: %v", err)
	}

	updated, err := svc.UpdatePost(post.Id, "Draft", "final", "", true)
	if err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	if updated.State != domain.PostStatePublished {
		t.Errorf("Expected published state")
	}
	if updated.PublishedAt == nil {
		t.Error("Expected publishedAt set on transition")
	}
	if got := pendingCount(t, database); got != 1 {
		t.Errorf("Expected one delivery after publishing, got %d", got)
	}
}

func TestDeletePostFederatesOnlyPublished(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	addFollower(t, database, author.Id, "alice")

	draft, err := svc.CreatePost("Draft", "wip", "", false)
	if err != nil {
		t.Fatalf("Failed to create draft: %v", err)
	}
	if err := svc.DeletePost(draft.Id); err != nil {
		t.Fatalf("Failed to delete draft: %v", err)
	}
	if got := pendingCount(t, database); got != 0 {
		t.Errorf("Expected deleted draft to emit nothing, got %d", got)
	}

	published, err := svc.CreatePost("Published", "done", "", true)
	if err != nil {
		t.Fatalf("Failed to create published post: %v", err)
	}
	before := pendingCount(t, database)
	if err := svc.DeletePost(published.Id); err != nil {
		t.Fatalf("Failed to delete published post: %v", err)
	}
	if got := pendingCount(t, database) - before; got != 1 {
		t.Errorf("Expected exactly one Delete delivery, got %d", got)
	}
}

func TestCreateCommentDirectReply(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	addFollower(t, database, author.Id, "alice")

	post, err := svc.CreatePost("Hello", "<p>hi</p>", "", true)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	comment, err := svc.CreateComment(context.Background(), post.Id, nil, "<p>me again</p>")
	if err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}

	expectedUri := "https://blog.example.com/post/hello-" + comment.Id.String()
	if comment.Uri != expectedUri {
		t.Errorf("Expected uri '%s', got '%s'", expectedUri, comment.Uri)
	}

	// A direct reply addresses the post's actor with Public demoted to cc
	if len(comment.To) != 1 || comment.To[0] != author.Uri {
		t.Errorf("Expected to=[%s], got %v", author.Uri, comment.To)
	}
	wantCc := []string{
		activitypub.PublicCollection,
		"https://blog.example.com/users/blog/followers",
	}
	if len(comment.Cc) != 2 || comment.Cc[0] != wantCc[0] || comment.Cc[1] != wantCc[1] {
		t.Errorf("Expected cc=%v, got %v", wantCc, comment.Cc)
	}
	if !activitypub.IsUnlisted(comment.To, comment.Cc) {
		t.Errorf("Expected unlisted reply, got to=%v cc=%v", comment.To, comment.Cc)
	}
}

func TestCreateCommentPropagatesParentVisibility(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	remote := addFollower(t, database, author.Id, "alice")

	post, err := svc.CreatePost("Hello", "<p>hi</p>", "", true)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	// A followers-only remote reply
	parent := &domain.Comment{
		Id:        uuid.New(),
		Uri:       "https://remote.example/notes/1",
		ActorId:   remote.Id,
		PostId:    post.Id,
		Content:   "quiet reply",
		To:        []string{"https://remote.example/users/alice/followers"},
		Cc:        []string{},
		CreatedAt: time.Now(),
	}
	if err := database.CreateComment(parent, nil, ""); err != nil {
		t.Fatalf("Failed to create parent: %v", err)
	}

	comment, err := svc.CreateComment(context.Background(), post.Id, &parent.Id, "<p>likewise</p>")
	if err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}

	if !activitypub.IsFollowersOnly(comment.To, comment.Cc) {
		t.Errorf("Expected followers-only reply, got to=%v cc=%v", comment.To, comment.Cc)
	}
}

func TestCreateCommentResolvesCachedMentions(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	mentioned := addFollower(t, database, author.Id, "carol")

	post, err := svc.CreatePost("Hello", "<p>hi</p>", "", true)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	comment, err := svc.CreateComment(context.Background(), post.Id, nil, "shout out to @carol@remote.example !")
	if err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}

	if len(comment.Mentions) != 1 || comment.Mentions[0].Href != mentioned.Uri {
		t.Errorf("Expected cached mention resolved, got %v", comment.Mentions)
	}
}

func TestCreateCommentParentFromOtherPostRejected(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	remote := addFollower(t, database, author.Id, "alice")

	first, _ := svc.CreatePost("First", "a", "", true)
	second, _ := svc.CreatePost("Second", "b", "", true)

	parent := &domain.Comment{
		Id:        uuid.New(),
		Uri:       "https://remote.example/notes/1",
		ActorId:   remote.Id,
		PostId:    first.Id,
		Content:   "on the first post",
		CreatedAt: time.Now(),
	}
	database.CreateComment(parent, nil, "")

	if _, err := svc.CreateComment(context.Background(), second.Id, &parent.Id, "mismatch"); err == nil {
		t.Error("Expected cross-post parent to be rejected")
	}
}

func TestSetPostBanner(t *testing.T) {
	svc, database, author := setupTestBlog(t)
	addFollower(t, database, author.Id, "alice")

	post, err := svc.CreatePost("Hello", "<p>hi</p>", "", true)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	created := pendingCount(t, database)

	updated, err := svc.SetPostBanner(post.Id, "https://cdn.example.com/banner.png")
	if err != nil {
		t.Fatalf("Failed to set banner: %v", err)
	}
	if updated.BannerId == nil {
		t.Fatal("Expected banner linked to the post")
	}

	err, image := database.ReadImageById(*updated.BannerId)
	if err != nil {
		t.Fatalf("Failed to read banner image: %v", err)
	}
	if image.Url != "https://cdn.example.com/banner.png" {
		t.Errorf("Expected banner url stored, got '%s'", image.Url)
	}

	err, stored := database.ReadPostById(post.Id)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	if stored.BannerId == nil || *stored.BannerId != *updated.BannerId {
		t.Errorf("Expected persisted banner id %v, got %v", updated.BannerId, stored.BannerId)
	}

	// A published post refederates the banner change as an Update
	if got := pendingCount(t, database); got != created+1 {
		t.Errorf("Expected one more queued delivery, got %d (was %d)", got, created)
	}
}

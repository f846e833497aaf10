package db

import (
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

func createTestPost(t *testing.T, db *DB, actorId uuid.UUID, slug string, state string) *domain.Post {
	post := &domain.Post{
		Id:        uuid.New(),
		Slug:      slug,
		Title:     "Test Post",
		Content:   "Hello from the test suite",
		State:     state,
		ActorId:   actorId,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if state == domain.PostStatePublished {
		now := time.Now()
		post.PublishedAt = &now
	}
	if err := db.CreatePost(post, "https://example.com/post/"+slug); err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return post
}

func TestCreatePostBackfillsUri(t *testing.T) {
	db := setupTestDB(t)

	actor := testActor("site")
	db.CreateActor(actor)

	post := createTestPost(t, db, actor.Id, "hello-world", domain.PostStatePublished)

	if post.Uri != "https://example.com/post/hello-world" {
		t.Errorf("Expected canonical uri on returned post, got '%s'", post.Uri)
	}

	err, got := db.ReadPostById(post.Id)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	if strings.HasPrefix(got.Uri, placeholderUri) {
		t.Errorf("Expected placeholder uri to be replaced, got '%s'", got.Uri)
	}
	if got.Uri != got.Url {
		t.Errorf("Expected uri and url to match for local posts")
	}

	err, bySlug := db.ReadPostBySlug("hello-world")
	if err != nil {
		t.Fatalf("Failed to read post by slug: %v", err)
	}
	if bySlug.Id != post.Id {
		t.Errorf("Expected same post by slug")
	}

	err, byUri := db.ReadPostByUri(post.Uri)
	if err != nil {
		t.Fatalf("Failed to read post by uri: %v", err)
	}
	if byUri.Id != post.Id {
		t.Errorf("Expected same post by uri")
	}
}

func TestPostSlugUnique(t *testing.T) {
	db := setupTestDB(t)

	actor := testActor("site")
	db.CreateActor(actor)

	createTestPost(t, db, actor.Id, "hello-world", domain.PostStateDraft)

	dup := &domain.Post{
		Id:        uuid.New(),
		Slug:      "hello-world",
		Title:     "Other",
		Content:   "x",
		State:     domain.PostStateDraft,
		ActorId:   actor.Id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := db.CreatePost(dup, "https://example.com/post/hello-world")
	if err == nil {
		t.Fatal("Expected uniqueness violation for duplicate slug")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("Expected IsUniqueViolation to report true, got %v", err)
	}
}

func TestReadPostsDraftFilter(t *testing.T) {
	db := setupTestDB(t)

	actor := testActor("site")
	db.CreateActor(actor)

	createTestPost(t, db, actor.Id, "published-one", domain.PostStatePublished)
	createTestPost(t, db, actor.Id, "draft-one", domain.PostStateDraft)

	err, published := db.ReadPosts(false, 10, 0)
	if err != nil {
		t.Fatalf("Failed to read posts: %v", err)
	}
	if len(*published) != 1 {
		t.Errorf("Expected 1 published post, got %d", len(*published))
	}

	err, all := db.ReadPosts(true, 10, 0)
	if err != nil {
		t.Fatalf("Failed to read all posts: %v", err)
	}
	if len(*all) != 2 {
		t.Errorf("Expected 2 posts with drafts included, got %d", len(*all))
	}
}

func TestUpdatePost(t *testing.T) {
	db := setupTestDB(t)

	actor := testActor("site")
	db.CreateActor(actor)

	post := createTestPost(t, db, actor.Id, "draft-post", domain.PostStateDraft)
	post.Title = "Now Published"
	post.State = domain.PostStatePublished
	now := time.Now()
	post.PublishedAt = &now

	if err := db.UpdatePost(post); err != nil {
		t.Fatalf("Failed to update post: %v", err)
	}

	err, got := db.ReadPostById(post.Id)
	if err != nil {
		t.Fatalf("Failed to read post: %v", err)
	}
	if got.Title != "Now Published" {
		t.Errorf("Expected updated title, got '%s'", got.Title)
	}
	if got.State != domain.PostStatePublished {
		t.Errorf("Expected published state, got '%s'", got.State)
	}
	if got.PublishedAt == nil {
		t.Error("Expected publishedAt to be set")
	}
}

func TestDeletePostReturnsPriorRow(t *testing.T) {
	db := setupTestDB(t)

	actor := testActor("site")
	db.CreateActor(actor)

	post := createTestPost(t, db, actor.Id, "doomed", domain.PostStatePublished)

	err, deleted := db.DeletePost(post.Id)
	if err != nil {
		t.Fatalf("Failed to delete post: %v", err)
	}
	if deleted.State != domain.PostStatePublished {
		t.Errorf("Expected deleted row to carry its prior state")
	}
	if deleted.Uri != post.Uri {
		t.Errorf("Expected deleted row to carry its uri")
	}

	err, _ = db.ReadPostById(post.Id)
	if err == nil {
		t.Error("Expected read of deleted post to fail")
	}
}

package blog

import (
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/fedipage/activitypub"
	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/domain"
	"github.com/deemkeen/fedipage/util"
	"github.com/google/uuid"
)

// Service is the authoring layer behind the external UI: it owns the local
// content mutations and triggers federation after each commit. Authorization
// happens upstream.
type Service struct {
	db *db.DB
	ap *activitypub.Service
}

func NewService(database *db.DB, ap *activitypub.Service) *Service {
	return &Service{db: database, ap: ap}
}

// CreatePost stores a new post under the main actor and federates it if it
// is published. The insert and the canonical-uri backfill are one
// transaction; federation runs after the commit, so a delivery failure never
// rolls back the post.
func (s *Service) CreatePost(title, content, category string, publish bool) (*domain.Post, error) {
	err, author := s.db.ReadMainActor()
	if err != nil {
		return nil, fmt.Errorf("no main actor configured: %w", err)
	}

	now := time.Now()
	post := &domain.Post{
		Id:        uuid.New(),
		Slug:      util.Slugify(title),
		Title:     title,
		Content:   content,
		State:     domain.PostStateDraft,
		Category:  category,
		ActorId:   author.Id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if publish {
		post.State = domain.PostStatePublished
		post.PublishedAt = &now
	}

	if err := s.db.CreatePost(post, s.ap.ObjectURI(post.Slug)); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("a post with slug %q already exists", post.Slug)
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := s.ap.PostCreated(post); err != nil {
		log.Printf("Blog: Failed to federate new post %s: %v", post.Slug, err)
	}
	return post, nil
}

// UpdatePost applies an edit and federates the new state when published. A
// draft turning published sets publishedAt; draft edits never federate.
func (s *Service) UpdatePost(id uuid.UUID, title, content, category string, publish bool) (*domain.Post, error) {
	err, post := s.db.ReadPostById(id)
	if err != nil {
		return nil, fmt.Errorf("post not found: %w", err)
	}

	post.Title = title
	post.Content = content
	post.Category = category
	if publish && post.State != domain.PostStatePublished {
		now := time.Now()
		post.State = domain.PostStatePublished
		post.PublishedAt = &now
	}
	post.UpdatedAt = time.Now()

	if err := s.db.UpdatePost(post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if err := s.ap.PostUpdated(post); err != nil {
		log.Printf("Blog: Failed to federate edit of %s: %v", post.Slug, err)
	}
	return post, nil
}

// SetPostBanner stores a banner image row, links it to the post and
// refederates the rendition so followers pick up the new attachment
func (s *Service) SetPostBanner(id uuid.UUID, bannerURL string) (*domain.Post, error) {
	err, post := s.db.ReadPostById(id)
	if err != nil {
		return nil, fmt.Errorf("post not found: %w", err)
	}

	image := &domain.Image{
		Id:        uuid.New(),
		Url:       bannerURL,
		CreatedAt: time.Now(),
	}
	if err := s.db.CreateImage(image); err != nil {
		return nil, fmt.Errorf("failed to store banner: %w", err)
	}

	post.BannerId = &image.Id
	post.UpdatedAt = time.Now()
	if err := s.db.UpdatePost(post); err != nil {
		return nil, fmt.Errorf("failed to link banner: %w", err)
	}

	if err := s.ap.PostUpdated(post); err != nil {
		log.Printf("Blog: Failed to federate banner change of %s: %v", post.Slug, err)
	}
	return post, nil
}

// DeletePost removes a post and federates a Delete when the prior state was
// published
func (s *Service) DeletePost(id uuid.UUID) error {
	err, prior := s.db.DeletePost(id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if err := s.ap.PostDeleted(prior); err != nil {
		log.Printf("Blog: Failed to federate deletion of %s: %v", prior.Slug, err)
	}
	return nil
}

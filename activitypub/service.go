package activitypub

import (
	"fmt"
	"net/http"
	"time"

	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/domain"
	"github.com/deemkeen/fedipage/storage"
	"github.com/deemkeen/fedipage/util"
)

// Service is the federation layer. It is constructed once and injected into
// the transport and the authoring hooks; handlers keep no state of their own,
// everything cross-call lives in the database.
type Service struct {
	db     *db.DB
	store  storage.ObjectStore
	conf   *util.AppConfig
	client *http.Client
}

func NewService(database *db.DB, store storage.ObjectStore, conf *util.AppConfig) *Service {
	return &Service{
		db:     database,
		store:  store,
		conf:   conf,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// ActorURI returns the canonical uri of a local actor
func (s *Service) ActorURI(username string) string {
	return s.conf.PublicURL() + "/users/" + username
}

// InboxURI returns the per-actor inbox uri of a local actor
func (s *Service) InboxURI(username string) string {
	return s.ActorURI(username) + "/inbox"
}

// SharedInboxURI returns the instance-wide shared inbox uri
func (s *Service) SharedInboxURI() string {
	return s.conf.PublicURL() + "/inbox"
}

// FollowersURI returns the followers collection uri of a local actor
func (s *Service) FollowersURI(username string) string {
	return s.ActorURI(username) + "/followers"
}

// ObjectURI returns the canonical uri of a post or comment slug
func (s *Service) ObjectURI(slug string) string {
	return s.conf.PublicURL() + "/post/" + slug
}

// localActor resolves a username against this instance's own actors. Lookup
// is by canonical uri, so a cached remote actor with the same username can
// never shadow a local one.
func (s *Service) localActor(username string) (*domain.Actor, error) {
	err, actor := s.db.ReadActorByUri(s.ActorURI(username))
	if err != nil {
		return nil, fmt.Errorf("no local actor %s: %w", username, err)
	}
	return actor, nil
}

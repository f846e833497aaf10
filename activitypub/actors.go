package activitypub

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

// DispatchActor composes the public Person document of a local actor. The
// primary key (RSA) is rendered as PEM under publicKey; every pair also
// appears as a JWK assertion method. Read-only aside from lazy key creation.
func (s *Service) DispatchActor(username string) (*Person, error) {
	actor, err := s.localActor(username)
	if err != nil {
		return nil, err
	}

	pairs, err := s.KeyPairs(username)
	if err != nil {
		return nil, err
	}

	actorURI := s.ActorURI(username)
	pem, err := publicKeyPem(pairs[0].PublicJwk)
	if err != nil {
		return nil, err
	}

	assertionMethods := make([]map[string]interface{}, 0, len(pairs))
	for i, pair := range pairs {
		jwkMap, err := publicJwkMap(pair.PublicJwk)
		if err != nil {
			return nil, err
		}
		assertionMethods = append(assertionMethods, map[string]interface{}{
			"id":           fmt.Sprintf("%s#key-%d", actorURI, i),
			"type":         "Multikey",
			"controller":   actorURI,
			"publicKeyJwk": jwkMap,
		})
	}

	person := &Person{
		Context: []interface{}{
			ActivityStreamsContext,
			"https://w3id.org/security/v1",
		},
		ID:                actorURI,
		Type:              "Person",
		PreferredUsername: actor.Username,
		Name:              actor.Name,
		Summary:           actor.Summary,
		URL:               s.conf.PublicURL(),
		Inbox:             s.InboxURI(username),
		Endpoints:         &Endpoints{SharedInbox: s.SharedInboxURI()},
		Followers:         s.FollowersURI(username),
		PublicKey: &PublicKey{
			ID:           actorURI + "#main-key",
			Owner:        actorURI,
			PublicKeyPem: pem,
		},
		AssertionMethod: assertionMethods,
		Published:       actor.CreatedAt.Format(time.RFC3339),
	}

	if actor.AvatarId != nil {
		if err, image := s.db.ReadImageById(*actor.AvatarId); err == nil {
			person.Icon = &ImageObject{Type: "Image", URL: image.Url}
		}
	}
	if actor.BannerId != nil {
		if err, image := s.db.ReadImageById(*actor.BannerId); err == nil {
			person.Image = &ImageObject{Type: "Image", URL: image.Url}
		}
	}

	return person, nil
}

// UpsertActor caches a remote actor as a local shadow row keyed by its uri.
// A second call for the same uri updates, never duplicates. When the remote
// icon url differs from the stored avatar's original url the icon is
// mirrored into local object storage; a failed download or upload aborts the
// whole upsert.
func (s *Service) UpsertActor(ctx context.Context, person *Person) (*domain.Actor, error) {
	if person.ID == "" || person.Inbox == "" {
		return nil, fmt.Errorf("remote actor missing id or inbox")
	}

	host, err := extractHost(person.ID)
	if err != nil {
		return nil, err
	}
	username := strings.TrimPrefix(person.PreferredUsername, "@")

	actor := &domain.Actor{
		Id:        uuid.New(),
		Uri:       person.ID,
		Handle:    "@" + username + "@" + host,
		Username:  username,
		Name:      person.Name,
		Summary:   person.Summary,
		InboxUrl:  person.Inbox,
		Url:       person.URL,
		CreatedAt: time.Now(),
	}
	if person.Endpoints != nil {
		actor.SharedInboxUrl = person.Endpoints.SharedInbox
	}

	err, existing := s.db.ReadActorByUri(person.ID)
	if err == nil {
		actor.Id = existing.Id
		actor.AvatarId = existing.AvatarId
		actor.BannerId = existing.BannerId
		actor.CreatedAt = existing.CreatedAt
	}

	var avatar *domain.Image
	if person.Icon != nil && person.Icon.URL != "" {
		mirrored, err := s.mirrorAvatar(ctx, actor, person.Icon.URL)
		if err != nil {
			return nil, fmt.Errorf("avatar mirroring failed for %s: %w", person.ID, err)
		}
		avatar = mirrored
	}

	if err := s.db.UpsertActor(actor, avatar); err != nil {
		return nil, fmt.Errorf("failed to store remote actor %s: %w", person.ID, err)
	}

	return actor, nil
}

// mirrorAvatar downloads the remote icon and re-uploads it to local storage.
// Returns nil when the stored avatar already mirrors the current icon url.
func (s *Service) mirrorAvatar(ctx context.Context, actor *domain.Actor, iconURL string) (*domain.Image, error) {
	var stored *domain.Image
	if actor.AvatarId != nil {
		err, existing := s.db.ReadImageById(*actor.AvatarId)
		if err == nil {
			if existing.OriginalUrl == iconURL {
				return nil, nil
			}
			stored = existing
		}
	}

	data, contentType, err := s.downloadLimited(ctx, iconURL, s.conf.Conf.MaxAvatarBytes)
	if err != nil {
		return nil, err
	}

	key := "avatars/" + actor.Id.String() + path.Ext(iconURL)
	localURL, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, err
	}

	// A changed icon extension changes the object key, leaving the previous
	// mirror orphaned in storage
	if stored != nil {
		oldKey := "avatars/" + actor.Id.String() + path.Ext(stored.OriginalUrl)
		if oldKey != key {
			if err := s.store.Delete(ctx, oldKey); err != nil {
				log.Printf("ActorCache: Could not remove stale avatar %s: %v", oldKey, err)
			}
		}
	}

	log.Printf("ActorCache: Mirrored avatar for %s (%d bytes)", actor.Uri, len(data))
	return &domain.Image{Url: localURL, OriginalUrl: iconURL}, nil
}

// GetOrFetchActor returns the cached shadow row for a remote actor, fetching
// and caching it on a miss
func (s *Service) GetOrFetchActor(ctx context.Context, actorURI string) (*domain.Actor, error) {
	err, cached := s.db.ReadActorByUri(actorURI)
	if err == nil {
		return cached, nil
	}

	person, err := s.fetchActorDocument(ctx, actorURI)
	if err != nil {
		return nil, err
	}
	return s.UpsertActor(ctx, person)
}

// extractHost extracts the host from an actor uri
// Example: "https://mastodon.social/users/alice" -> "mastodon.social"
func extractHost(actorURI string) (string, error) {
	parsed, err := url.Parse(actorURI)
	if err != nil {
		return "", fmt.Errorf("invalid actor uri: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("actor uri has no host: %s", actorURI)
	}
	return parsed.Host, nil
}

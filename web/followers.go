package web

import (
	"encoding/json"
	"fmt"

	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/util"
)

// FollowersCollection is the ActivityPub OrderedCollection of an actor's
// followers. Single page: a single-author instance never accumulates enough
// followers to warrant paging.
type FollowersCollection struct {
	Context      string   `json:"@context"`
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	TotalItems   int      `json:"totalItems"`
	OrderedItems []string `json:"orderedItems"`
}

// GetFollowers renders the followers collection for a local actor
func GetFollowers(database *db.DB, conf *util.AppConfig, username string) (string, error) {
	// lookup by canonical uri: only local actors have followers here
	err, actor := database.ReadActorByUri(fmt.Sprintf("%s/users/%s", conf.PublicURL(), username))
	if err != nil {
		return "", err
	}

	err, total := database.CountFollowers(actor.Id)
	if err != nil {
		return "", err
	}

	items := []string{}
	if err, followers := database.ReadFollowersByFollowingId(actor.Id); err == nil {
		for _, follower := range *followers {
			items = append(items, follower.Uri)
		}
	}

	collection := FollowersCollection{
		Context:      "https://www.w3.org/ns/activitystreams",
		ID:           fmt.Sprintf("%s/users/%s/followers", conf.PublicURL(), actor.Username),
		Type:         "OrderedCollection",
		TotalItems:   total,
		OrderedItems: items,
	}

	data, err := json.Marshal(collection)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

package web

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/util"
	"github.com/gorilla/feeds"
)

const rssFeedSize = 50

// GetRSS renders the published posts as an RSS feed. Drafts never appear.
func GetRSS(conf *util.AppConfig, database *db.DB) (string, error) {
	err, author := database.ReadMainActor()
	if err != nil {
		log.Println("RSS: Could not read main actor!", err)
		return "", errors.New("error retrieving feed author")
	}

	err, posts := database.ReadPosts(false, rssFeedSize, 0)
	if err != nil {
		log.Println("RSS: Could not get posts!", err)
		return "", errors.New("error retrieving posts")
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - %s", author.Name, conf.Conf.SslDomain),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed", conf.PublicURL())},
		Description: fmt.Sprintf("posts by %s", author.Name),
		Author:      &feeds.Author{Name: author.Name, Email: fmt.Sprintf("%s@%s", author.Username, conf.Conf.SslDomain)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, post := range *posts {
		published := post.CreatedAt
		if post.PublishedAt != nil {
			published = *post.PublishedAt
		}
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      post.Uri,
				Title:   post.Title,
				Link:    &feeds.Link{Href: post.Url},
				Content: post.Content,
				Author:  &feeds.Author{Name: author.Name},
				Created: published,
				Updated: post.UpdatedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}

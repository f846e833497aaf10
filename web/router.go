package web

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/deemkeen/fedipage/activitypub"
	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"
)

// Router builds the handler tree and serves it on the configured http port
func Router(conf *util.AppConfig, database *db.DB, svc *activitypub.Service) error {
	log.Printf("Router: Starting server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	g := NewRouter(conf, database, svc)
	return g.Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
}

// NewRouter wires the gin engine without binding a listener
func NewRouter(conf *util.AppConfig, database *db.DB, svc *activitypub.Service) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// RSS Feed
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		rss, err := GetRSS(conf, database)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	// Canonical object urls. Federation peers get the ActivityPub document,
	// everyone else is sent to the html representation.
	g.GET("/post/:slug", func(c *gin.Context) {
		note, err := svc.ResolveObject(c.Param("slug"))
		if err != nil {
			c.JSON(404, gin.H{"error": "Object not found"})
			return
		}

		if !wantsActivityJSON(c) && note.URL != "" && note.URL != note.ID {
			c.Redirect(http.StatusFound, note.URL)
			return
		}

		c.Header("Content-Type", "application/activity+json; charset=utf-8")
		c.JSON(200, note)
	})

	if conf.Conf.WithAp {
		// Stricter rate limit for ActivityPub endpoints: 5 req/sec per IP
		apLimiter := NewRateLimiter(rate.Limit(5), 10)

		// Max 1MB request body size for ActivityPub activities
		maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024) // 1MB

		g.GET("/users/:actor", func(c *gin.Context) {
			c.Header("Content-Type", "application/activity+json; charset=utf-8")

			person, err := svc.DispatchActor(c.Param("actor"))
			if err != nil {
				c.JSON(404, gin.H{"error": "Actor not found"})
				return
			}
			c.JSON(200, person)
		})

		g.GET("/users/:actor/followers", func(c *gin.Context) {
			c.Header("Content-Type", "application/activity+json; charset=utf-8")

			collection, err := GetFollowers(database, conf, c.Param("actor"))
			if err != nil {
				c.JSON(404, gin.H{"error": "Actor not found"})
				return
			}
			c.Render(200, render.String{Format: collection})
		})

		// Single author: the shared inbox and the per-actor inbox process
		// activities identically, so both feed the same handler.
		inbox := func(c *gin.Context) {
			body, err := c.GetRawData()
			if err != nil {
				log.Printf("Inbox: Failed to read body: %v", err)
				c.Status(400)
				return
			}

			if err := svc.HandleActivity(c.Request.Context(), body); err != nil {
				log.Printf("Inbox: Failed to process activity: %v", err)
				c.Status(500)
				return
			}
			c.Status(202)
		}

		g.POST("/inbox", RateLimitMiddleware(apLimiter), maxBodySize, inbox)
		g.POST("/users/:actor/inbox", RateLimitMiddleware(apLimiter), maxBodySize, inbox)

		g.GET("/.well-known/webfinger", func(c *gin.Context) {
			c.Header("Content-Type", "application/jrd+json; charset=utf-8")

			resource := c.Query("resource")
			resp, err := Webfinger(database, conf, resource)
			if err != nil {
				c.Render(404, render.String{Format: WebFingerNotFound()})
			} else {
				c.Render(200, render.String{Format: resp})
			}
		})
	}

	return g
}

// wantsActivityJSON reports whether the request negotiates an ActivityPub
// representation
func wantsActivityJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/activity+json") ||
		strings.Contains(accept, "application/ld+json")
}

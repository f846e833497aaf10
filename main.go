package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deemkeen/fedipage/activitypub"
	"github.com/deemkeen/fedipage/blog"
	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/domain"
	"github.com/deemkeen/fedipage/storage"
	"github.com/deemkeen/fedipage/util"
	"github.com/deemkeen/fedipage/web"
	"github.com/google/uuid"
)

const databaseFileName = "fedipage.db"

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	database, err := db.Open(util.ResolveFilePath(databaseFileName))
	if err != nil {
		log.Fatalln(err)
	}
	defer database.Close()

	store := newObjectStore(conf)
	svc := activitypub.NewService(database, store, conf)
	blogSvc := blog.NewService(database, svc)

	author, err := ensureMainActor(database, svc, conf)
	if err != nil {
		log.Fatalln(err)
	}

	if len(os.Args) > 1 && os.Args[1] == "publish" {
		runPublish(blogSvc, os.Args[2:])
		return
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))
	log.Printf("Main: Serving as %s", author.Handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if conf.Conf.WithAp {
		svc.StartDeliveryWorker(ctx)
	}

	serve(cancel, conf, database, svc)
}

// newObjectStore picks the media backend: s3 when configured, otherwise an
// in-memory store that loses mirrored avatars on restart
func newObjectStore(conf *util.AppConfig) storage.ObjectStore {
	if conf.Conf.S3.Bucket != "" && conf.Conf.S3.AccessKey != "" {
		store, err := storage.NewS3Store(context.Background(), conf)
		if err != nil {
			log.Fatalln("Main: Failed to init s3 store:", err)
		}
		return store
	}

	log.Println("Main: No s3 configured, mirrored media is kept in memory only")
	return storage.NewMemoryStore(conf.PublicURL() + "/media")
}

// ensureMainActor provisions the site's actor on first start and keys it
func ensureMainActor(database *db.DB, svc *activitypub.Service, conf *util.AppConfig) (*domain.Actor, error) {
	if err, actor := database.ReadMainActor(); err == nil {
		return actor, nil
	}

	username := conf.Conf.Author.Username
	actor := &domain.Actor{
		Id:             uuid.New(),
		Uri:            svc.ActorURI(username),
		Handle:         fmt.Sprintf("@%s@%s", username, conf.Conf.SslDomain),
		Username:       username,
		Name:           conf.Conf.Author.Name,
		Summary:        conf.Conf.Author.Summary,
		InboxUrl:       svc.InboxURI(username),
		SharedInboxUrl: svc.SharedInboxURI(),
		Url:            conf.PublicURL(),
		CreatedAt:      time.Now(),
	}
	if err := database.CreateActor(actor); err != nil {
		return nil, fmt.Errorf("could not create main actor: %w", err)
	}
	if err := database.SetMainActor(actor.Id); err != nil {
		return nil, fmt.Errorf("could not set main actor: %w", err)
	}

	// Generate the signing keys eagerly so the first federation request
	// doesn't pay for it
	if _, err := svc.KeyPairs(username); err != nil {
		return nil, fmt.Errorf("could not generate keys: %w", err)
	}

	log.Printf("Main: Provisioned main actor %s", actor.Handle)
	return actor, nil
}

// runPublish is the authoring entrypoint: fedipage publish -title ... -file ...
func runPublish(blogSvc *blog.Service, args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	title := fs.String("title", "", "post title")
	file := fs.String("file", "", "path to the html content file")
	category := fs.String("category", "", "post category")
	banner := fs.String("banner", "", "url of a banner image for the post")
	draft := fs.Bool("draft", false, "save as draft instead of publishing")
	fs.Parse(args)

	if *title == "" || *file == "" {
		fs.Usage()
		os.Exit(2)
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalln("Could not read content file:", err)
	}

	post, err := blogSvc.CreatePost(*title, string(content), *category, !*draft)
	if err != nil {
		log.Fatalln("Could not create post:", err)
	}
	if *banner != "" {
		if _, err := blogSvc.SetPostBanner(post.Id, *banner); err != nil {
			log.Fatalln("Could not set banner:", err)
		}
	}
	fmt.Printf("Created post %s (%s)\n", post.Slug, post.State)
}

func serve(cancel context.CancelFunc, conf *util.AppConfig, database *db.DB, svc *activitypub.Service) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := web.Router(conf, database, svc); err != nil {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Main: Shutting down")
	cancel()
	// give the delivery worker a moment to finish the batch in flight
	time.Sleep(time.Second)
}

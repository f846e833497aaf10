package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateActorsTable = `CREATE TABLE IF NOT EXISTS actors(
		id uuid NOT NULL PRIMARY KEY,
		uri varchar(500) UNIQUE NOT NULL,
		handle varchar(255) NOT NULL,
		username varchar(100) NOT NULL,
		name varchar(255),
		summary text,
		avatar_id uuid,
		banner_id uuid,
		inbox_url varchar(500) NOT NULL,
		shared_inbox_url varchar(500),
		url varchar(500),
		created_at timestamp default current_timestamp
	)`

	sqlCreateActorsIndices = `
		CREATE INDEX IF NOT EXISTS idx_actors_uri ON actors(uri);
		CREATE INDEX IF NOT EXISTS idx_actors_username ON actors(username);
	`

	sqlCreateImagesTable = `CREATE TABLE IF NOT EXISTS images(
		id uuid NOT NULL PRIMARY KEY,
		url varchar(500) NOT NULL,
		original_url varchar(500),
		created_at timestamp default current_timestamp
	)`

	sqlCreateKeysTable = `CREATE TABLE IF NOT EXISTS keys(
		actor_id uuid NOT NULL,
		algorithm varchar(50) NOT NULL,
		private_jwk text NOT NULL,
		public_jwk text NOT NULL,
		created_at timestamp default current_timestamp,
		PRIMARY KEY(actor_id, algorithm)
	)`

	sqlCreateMainActorTable = `CREATE TABLE IF NOT EXISTS main_actor(
		id int NOT NULL PRIMARY KEY CHECK (id = 1),
		actor_id uuid NOT NULL
	)`

	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows(
		following_id uuid NOT NULL,
		follower_id uuid NOT NULL,
		created_at timestamp default current_timestamp,
		PRIMARY KEY(following_id, follower_id)
	)`

	sqlCreateFollowsIndices = `
		CREATE INDEX IF NOT EXISTS idx_follows_following_id ON follows(following_id);
		CREATE INDEX IF NOT EXISTS idx_follows_follower_id ON follows(follower_id);
	`

	sqlCreatePostsTable = `CREATE TABLE IF NOT EXISTS posts(
		id uuid NOT NULL PRIMARY KEY,
		uri varchar(500) UNIQUE NOT NULL,
		url varchar(500),
		slug varchar(255) UNIQUE NOT NULL,
		title varchar(500) NOT NULL,
		content text,
		state varchar(20) NOT NULL DEFAULT 'draft',
		category varchar(100),
		banner_id uuid,
		actor_id uuid NOT NULL,
		published_at timestamp,
		created_at timestamp default current_timestamp,
		updated_at timestamp default current_timestamp
	)`

	sqlCreatePostsIndices = `
		CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);
		CREATE INDEX IF NOT EXISTS idx_posts_uri ON posts(uri);
		CREATE INDEX IF NOT EXISTS idx_posts_state ON posts(state);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
	`

	sqlCreateCommentsTable = `CREATE TABLE IF NOT EXISTS comments(
		id uuid NOT NULL PRIMARY KEY,
		uri varchar(500) UNIQUE NOT NULL,
		url varchar(500),
		actor_id uuid NOT NULL,
		post_id uuid NOT NULL,
		parent_id uuid,
		content text,
		to_json text NOT NULL DEFAULT '[]',
		cc_json text NOT NULL DEFAULT '[]',
		mentions_json text NOT NULL DEFAULT '[]',
		created_at timestamp default current_timestamp
	)`

	sqlCreateCommentsIndices = `
		CREATE INDEX IF NOT EXISTS idx_comments_uri ON comments(uri);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
		CREATE INDEX IF NOT EXISTS idx_comments_parent_id ON comments(parent_id);
	`

	sqlCreateCommentAttachmentsTable = `CREATE TABLE IF NOT EXISTS comment_attachments(
		id uuid NOT NULL PRIMARY KEY,
		comment_id uuid NOT NULL,
		url varchar(500) NOT NULL,
		media_type varchar(100),
		sensitive int default 0,
		name varchar(500),
		FOREIGN KEY(comment_id) REFERENCES comments(id) ON DELETE CASCADE
	)`

	sqlCreateCommentAttachmentsIndices = `
		CREATE INDEX IF NOT EXISTS idx_comment_attachments_comment_id ON comment_attachments(comment_id);
	`

	// Activities log table (for deduplication & debugging)
	sqlCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities(
		id uuid NOT NULL PRIMARY KEY,
		activity_uri varchar(500) UNIQUE NOT NULL,
		activity_type varchar(50) NOT NULL,
		actor_uri varchar(500),
		object_uri varchar(500),
		raw_json text,
		processed int default 0,
		created_at timestamp default current_timestamp
	)`

	sqlCreateActivitiesIndices = `
		CREATE INDEX IF NOT EXISTS idx_activities_uri ON activities(activity_uri);
		CREATE INDEX IF NOT EXISTS idx_activities_processed ON activities(processed);
	`

	sqlCreateDeliveryQueueTable = `CREATE TABLE IF NOT EXISTS delivery_queue(
		id uuid NOT NULL PRIMARY KEY,
		inbox_uri varchar(500) NOT NULL,
		activity_json text NOT NULL,
		attempts int default 0,
		next_retry_at timestamp default current_timestamp,
		created_at timestamp default current_timestamp
	)`

	sqlCreateDeliveryQueueIndices = `
		CREATE INDEX IF NOT EXISTS idx_delivery_queue_next_retry ON delivery_queue(next_retry_at);
	`
)

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		tables := []struct {
			name string
			stmt string
		}{
			{"actors", sqlCreateActorsTable},
			{"images", sqlCreateImagesTable},
			{"keys", sqlCreateKeysTable},
			{"main_actor", sqlCreateMainActorTable},
			{"follows", sqlCreateFollowsTable},
			{"posts", sqlCreatePostsTable},
			{"comments", sqlCreateCommentsTable},
			{"comment_attachments", sqlCreateCommentAttachmentsTable},
			{"activities", sqlCreateActivitiesTable},
			{"delivery_queue", sqlCreateDeliveryQueueTable},
		}

		for _, table := range tables {
			if _, err := tx.Exec(table.stmt); err != nil {
				log.Printf("Error creating table %s: %v", table.name, err)
				return err
			}
		}

		indices := []string{
			sqlCreateActorsIndices,
			sqlCreateFollowsIndices,
			sqlCreatePostsIndices,
			sqlCreateCommentsIndices,
			sqlCreateCommentAttachmentsIndices,
			sqlCreateActivitiesIndices,
			sqlCreateDeliveryQueueIndices,
		}

		for _, stmt := range indices {
			if _, err := tx.Exec(stmt); err != nil {
				log.Printf("Warning: Failed to create indices: %v", err)
			}
		}

		return nil
	})
}

package db

import (
	"database/sql"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertPost      = `INSERT INTO posts(id, uri, url, slug, title, content, state, category, banner_id, actor_id, published_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlBackfillPostUri = `UPDATE posts SET uri = ?, url = ? WHERE id = ?`
	sqlUpdatePost      = `UPDATE posts SET title = ?, content = ?, state = ?, category = ?, banner_id = ?, published_at = ?, updated_at = ? WHERE id = ?`
	sqlDeletePost      = `DELETE FROM posts WHERE id = ?`

	sqlSelectPost       = `SELECT id, uri, url, slug, title, content, state, category, banner_id, actor_id, published_at, created_at, updated_at FROM posts`
	sqlSelectPostById   = sqlSelectPost + ` WHERE id = ?`
	sqlSelectPostBySlug = sqlSelectPost + ` WHERE slug = ?`
	sqlSelectPostByUri  = sqlSelectPost + ` WHERE uri = ?`
	sqlSelectPosts      = sqlSelectPost + ` WHERE state = 'published' ORDER BY created_at DESC LIMIT ? OFFSET ?`
	sqlSelectAllPosts   = sqlSelectPost + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
)

// placeholderUri is the temporary uri a post or comment row carries between
// insert and backfill inside the creating transaction
const placeholderUri = "https://localhost/"

// CreatePost inserts the post with a placeholder uri and backfills the
// canonical uri in the same transaction: the two writes are all-or-nothing.
func (db *DB) CreatePost(post *domain.Post, canonicalUri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPost,
			post.Id.String(),
			placeholderUri+post.Id.String(),
			nil,
			post.Slug,
			post.Title,
			post.Content,
			post.State,
			post.Category,
			uuidPtrString(post.BannerId),
			post.ActorId.String(),
			timePtr(post.PublishedAt),
			post.CreatedAt,
			post.UpdatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(sqlBackfillPostUri, canonicalUri, canonicalUri, post.Id.String())
		if err != nil {
			return err
		}

		post.Uri = canonicalUri
		post.Url = canonicalUri
		return nil
	})
}

func (db *DB) UpdatePost(post *domain.Post) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdatePost,
			post.Title,
			post.Content,
			post.State,
			post.Category,
			uuidPtrString(post.BannerId),
			timePtr(post.PublishedAt),
			time.Now(),
			post.Id.String(),
		)
		return err
	})
}

// DeletePost removes the post and returns the deleted row, so callers can
// inspect the prior state (only previously-published posts federate their
// deletion).
func (db *DB) DeletePost(id uuid.UUID) (error, *domain.Post) {
	err, post := db.ReadPostById(id)
	if err != nil {
		return err, nil
	}
	err = db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeletePost, id.String())
		return err
	})
	if err != nil {
		return err, nil
	}
	return nil, post
}

func (db *DB) ReadPostById(id uuid.UUID) (error, *domain.Post) {
	return scanPost(db.db.QueryRow(sqlSelectPostById, id.String()))
}

func (db *DB) ReadPostBySlug(slug string) (error, *domain.Post) {
	return scanPost(db.db.QueryRow(sqlSelectPostBySlug, slug))
}

func (db *DB) ReadPostByUri(uri string) (error, *domain.Post) {
	return scanPost(db.db.QueryRow(sqlSelectPostByUri, uri))
}

// ReadPosts returns posts ordered newest first. Drafts are only included
// when includeDraft is set.
func (db *DB) ReadPosts(includeDraft bool, limit, offset int) (error, *[]domain.Post) {
	query := sqlSelectPosts
	if includeDraft {
		query = sqlSelectAllPosts
	}

	rows, err := db.db.Query(query, limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var posts []domain.Post

	for rows.Next() {
		err, post := scanPostRow(rows)
		if err != nil {
			return err, &posts
		}
		posts = append(posts, *post)
	}
	if err = rows.Err(); err != nil {
		return err, &posts
	}

	return nil, &posts
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row *sql.Row) (error, *domain.Post) {
	err, post := scanPostRow(row)
	if err == sql.ErrNoRows {
		return err, nil
	}
	return err, post
}

func scanPostRow(row rowScanner) (error, *domain.Post) {
	var post domain.Post
	var idStr, actorIdStr string
	var url, content, category, bannerId sql.NullString
	var publishedAt sql.NullTime
	err := row.Scan(
		&idStr,
		&post.Uri,
		&url,
		&post.Slug,
		&post.Title,
		&content,
		&post.State,
		&category,
		&bannerId,
		&actorIdStr,
		&publishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return err, nil
	}
	post.Id, _ = uuid.Parse(idStr)
	post.ActorId, _ = uuid.Parse(actorIdStr)
	post.Url = url.String
	post.Content = content.String
	post.Category = category.String
	post.BannerId = parseUuidPtr(bannerId)
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	return nil, &post
}

func timePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

package db

import (
	"database/sql"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

const (
	// ON CONFLICT DO NOTHING makes concurrent duplicate Follow requests
	// collapse to one row
	sqlInsertFollow = `INSERT INTO follows(following_id, follower_id, created_at) VALUES (?, ?, ?) ON CONFLICT(following_id, follower_id) DO NOTHING`
	sqlDeleteFollow = `DELETE FROM follows WHERE following_id = ? AND follower_id = ?`
	sqlSelectFollow = `SELECT following_id, follower_id, created_at FROM follows WHERE following_id = ? AND follower_id = ?`
	sqlCountFollows = `SELECT COUNT(*) FROM follows WHERE following_id = ?`

	sqlSelectFollowerActors = `SELECT actors.id, actors.uri, actors.handle, actors.username, actors.name, actors.summary, actors.avatar_id, actors.banner_id, actors.inbox_url, actors.shared_inbox_url, actors.url, actors.created_at
		FROM follows INNER JOIN actors ON actors.id = follows.follower_id
		WHERE follows.following_id = ?
		ORDER BY follows.created_at DESC`
)

// CreateFollow records the edge follower -> following. Idempotent: an
// existing edge is left untouched.
func (db *DB) CreateFollow(followingId, followerId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollow, followingId.String(), followerId.String(), time.Now())
		return err
	})
}

// DeleteFollow removes the edge by composite key. Absence of the edge is a
// successful no-op.
func (db *DB) DeleteFollow(followingId, followerId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollow, followingId.String(), followerId.String())
		return err
	})
}

func (db *DB) ReadFollow(followingId, followerId uuid.UUID) (error, *domain.Follow) {
	row := db.db.QueryRow(sqlSelectFollow, followingId.String(), followerId.String())
	var follow domain.Follow
	var followingStr, followerStr string
	err := row.Scan(&followingStr, &followerStr, &follow.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	follow.FollowingId, _ = uuid.Parse(followingStr)
	follow.FollowerId, _ = uuid.Parse(followerStr)
	return nil, &follow
}

// ReadFollowersByFollowingId returns the actor rows following the given actor
func (db *DB) ReadFollowersByFollowingId(followingId uuid.UUID) (error, *[]domain.Actor) {
	rows, err := db.db.Query(sqlSelectFollowerActors, followingId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var followers []domain.Actor

	for rows.Next() {
		var actor domain.Actor
		var idStr string
		var avatarId, bannerId, name, summary, sharedInbox, url sql.NullString
		if err := rows.Scan(
			&idStr,
			&actor.Uri,
			&actor.Handle,
			&actor.Username,
			&name,
			&summary,
			&avatarId,
			&bannerId,
			&actor.InboxUrl,
			&sharedInbox,
			&url,
			&actor.CreatedAt,
		); err != nil {
			return err, &followers
		}
		actor.Id, _ = uuid.Parse(idStr)
		actor.Name = name.String
		actor.Summary = summary.String
		actor.SharedInboxUrl = sharedInbox.String
		actor.Url = url.String
		actor.AvatarId = parseUuidPtr(avatarId)
		actor.BannerId = parseUuidPtr(bannerId)
		followers = append(followers, actor)
	}
	if err = rows.Err(); err != nil {
		return err, &followers
	}

	return nil, &followers
}

func (db *DB) CountFollowers(followingId uuid.UUID) (error, int) {
	var count int
	err := db.db.QueryRow(sqlCountFollows, followingId.String()).Scan(&count)
	return err, count
}

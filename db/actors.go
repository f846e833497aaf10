package db

import (
	"database/sql"
	"time"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertActor = `INSERT INTO actors(id, uri, handle, username, name, summary, avatar_id, banner_id, inbox_url, shared_inbox_url, url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpsertActor = `INSERT INTO actors(id, uri, handle, username, name, summary, avatar_id, banner_id, inbox_url, shared_inbox_url, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			handle = excluded.handle,
			username = excluded.username,
			name = excluded.name,
			summary = excluded.summary,
			avatar_id = excluded.avatar_id,
			inbox_url = excluded.inbox_url,
			shared_inbox_url = excluded.shared_inbox_url,
			url = excluded.url`

	sqlSelectActor           = `SELECT id, uri, handle, username, name, summary, avatar_id, banner_id, inbox_url, shared_inbox_url, url, created_at FROM actors`
	sqlSelectActorByUri      = sqlSelectActor + ` WHERE uri = ?`
	sqlSelectActorById       = sqlSelectActor + ` WHERE id = ?`
	sqlSelectActorByUsername = sqlSelectActor + ` WHERE username = ?`
	sqlSelectActorByHandle   = sqlSelectActor + ` WHERE handle = ?`

	sqlInsertImage       = `INSERT INTO images(id, url, original_url, created_at) VALUES (?, ?, ?, ?)`
	sqlUpdateImage       = `UPDATE images SET url = ?, original_url = ? WHERE id = ?`
	sqlSelectImageById   = `SELECT id, url, original_url, created_at FROM images WHERE id = ?`
	sqlSelectActorAvatar = `SELECT avatar_id FROM actors WHERE uri = ?`

	sqlUpsertMainActor = `INSERT INTO main_actor(id, actor_id) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET actor_id = excluded.actor_id`
	sqlSelectMainActor = `SELECT actor_id FROM main_actor WHERE id = 1`
)

func (db *DB) CreateActor(actor *domain.Actor) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActor,
			actor.Id.String(),
			actor.Uri,
			actor.Handle,
			actor.Username,
			actor.Name,
			actor.Summary,
			uuidPtrString(actor.AvatarId),
			uuidPtrString(actor.BannerId),
			actor.InboxUrl,
			actor.SharedInboxUrl,
			actor.Url,
			actor.CreatedAt,
		)
		return err
	})
}

// UpsertActor inserts or updates the actor row keyed by uri. If avatar is
// non-nil the mirrored image row is written in the same transaction: an
// existing avatar row is updated in place, otherwise a new image row is
// created and linked. A second call for the same uri updates, never
// duplicates.
func (db *DB) UpsertActor(actor *domain.Actor, avatar *domain.Image) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if avatar != nil {
			var existing sql.NullString
			err := tx.QueryRow(sqlSelectActorAvatar, actor.Uri).Scan(&existing)
			if err != nil && err != sql.ErrNoRows {
				return err
			}

			if existing.Valid && existing.String != "" {
				id, perr := uuid.Parse(existing.String)
				if perr == nil {
					if _, err := tx.Exec(sqlUpdateImage, avatar.Url, avatar.OriginalUrl, id.String()); err != nil {
						return err
					}
					actor.AvatarId = &id
				}
			}

			if actor.AvatarId == nil {
				avatar.Id = uuid.New()
				if _, err := tx.Exec(sqlInsertImage, avatar.Id.String(), avatar.Url, avatar.OriginalUrl, time.Now()); err != nil {
					return err
				}
				actor.AvatarId = &avatar.Id
			}
		}

		_, err := tx.Exec(sqlUpsertActor,
			actor.Id.String(),
			actor.Uri,
			actor.Handle,
			actor.Username,
			actor.Name,
			actor.Summary,
			uuidPtrString(actor.AvatarId),
			uuidPtrString(actor.BannerId),
			actor.InboxUrl,
			actor.SharedInboxUrl,
			actor.Url,
			time.Now(),
		)
		return err
	})
}

func (db *DB) ReadActorByUri(uri string) (error, *domain.Actor) {
	return db.scanActor(db.db.QueryRow(sqlSelectActorByUri, uri))
}

func (db *DB) ReadActorById(id uuid.UUID) (error, *domain.Actor) {
	return db.scanActor(db.db.QueryRow(sqlSelectActorById, id.String()))
}

func (db *DB) ReadActorByUsername(username string) (error, *domain.Actor) {
	return db.scanActor(db.db.QueryRow(sqlSelectActorByUsername, username))
}

func (db *DB) ReadActorByHandle(handle string) (error, *domain.Actor) {
	return db.scanActor(db.db.QueryRow(sqlSelectActorByHandle, handle))
}

func (db *DB) scanActor(row *sql.Row) (error, *domain.Actor) {
	var actor domain.Actor
	var idStr string
	var avatarId, bannerId, name, summary, sharedInbox, url sql.NullString
	err := row.Scan(
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
	)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	actor.Id, _ = uuid.Parse(idStr)
	actor.Name = name.String
	actor.Summary = summary.String
	actor.SharedInboxUrl = sharedInbox.String
	actor.Url = url.String
	actor.AvatarId = parseUuidPtr(avatarId)
	actor.BannerId = parseUuidPtr(bannerId)
	return nil, &actor
}

func (db *DB) CreateImage(image *domain.Image) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertImage, image.Id.String(), image.Url, image.OriginalUrl, image.CreatedAt)
		return err
	})
}

func (db *DB) ReadImageById(id uuid.UUID) (error, *domain.Image) {
	row := db.db.QueryRow(sqlSelectImageById, id.String())
	var image domain.Image
	var idStr string
	var originalUrl sql.NullString
	err := row.Scan(&idStr, &image.Url, &originalUrl, &image.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	image.Id, _ = uuid.Parse(idStr)
	image.OriginalUrl = originalUrl.String
	return nil, &image
}

// SetMainActor points the main_actor singleton at the given actor
func (db *DB) SetMainActor(actorId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertMainActor, actorId.String())
		return err
	})
}

// ReadMainActor resolves the main_actor singleton to its actor row
func (db *DB) ReadMainActor() (error, *domain.Actor) {
	var idStr string
	err := db.db.QueryRow(sqlSelectMainActor).Scan(&idStr)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return err, nil
	}
	return db.ReadActorById(id)
}

func uuidPtrString(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseUuidPtr(s sql.NullString) *uuid.UUID {
	if !s.Valid || s.String == "" {
		return nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil
	}
	return &id
}

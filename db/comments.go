package db

import (
	"database/sql"
	"encoding/json"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertComment        = `INSERT INTO comments(id, uri, url, actor_id, post_id, parent_id, content, to_json, cc_json, mentions_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlBackfillCommentUri   = `UPDATE comments SET uri = ?, url = ? WHERE id = ?`
	sqlUpdateCommentContent = `UPDATE comments SET content = ?, url = ? WHERE id = ?`
	sqlDeleteComment        = `DELETE FROM comments WHERE id = ?`

	sqlSelectComment         = `SELECT id, uri, url, actor_id, post_id, parent_id, content, to_json, cc_json, mentions_json, created_at FROM comments`
	sqlSelectCommentById     = sqlSelectComment + ` WHERE id = ?`
	sqlSelectCommentByUri    = sqlSelectComment + ` WHERE uri = ?`
	sqlSelectCommentsByPost  = sqlSelectComment + ` WHERE post_id = ? ORDER BY created_at ASC`

	sqlInsertCommentAttachment    = `INSERT INTO comment_attachments(id, comment_id, url, media_type, sensitive, name) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectCommentAttachments   = `SELECT id, comment_id, url, media_type, sensitive, name FROM comment_attachments WHERE comment_id = ?`
)

// CreateComment inserts the comment (placeholder uri), its attachments, and
// the canonical-uri backfill in one transaction. When canonicalUri is empty
// the comment's uri is kept as given (inbound comments arrive with their
// remote uri already fixed).
func (db *DB) CreateComment(comment *domain.Comment, attachments []domain.CommentAttachment, canonicalUri string) error {
	to := comment.To
	if to == nil {
		to = []string{}
	}
	toJson, err := json.Marshal(to)
	if err != nil {
		return err
	}
	cc := comment.Cc
	if cc == nil {
		cc = []string{}
	}
	ccJson, err := json.Marshal(cc)
	if err != nil {
		return err
	}
	mentions := comment.Mentions
	if mentions == nil {
		mentions = []domain.Mention{}
	}
	mentionsJson, err := json.Marshal(mentions)
	if err != nil {
		return err
	}

	uri := comment.Uri
	if canonicalUri != "" {
		uri = placeholderUri + comment.Id.String()
	}

	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertComment,
			comment.Id.String(),
			uri,
			nullableString(comment.Url),
			comment.ActorId.String(),
			comment.PostId.String(),
			uuidPtrString(comment.ParentId),
			comment.Content,
			string(toJson),
			string(ccJson),
			string(mentionsJson),
			comment.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, att := range attachments {
			attId := att.Id
			if attId == uuid.Nil {
				attId = uuid.New()
			}
			_, err := tx.Exec(sqlInsertCommentAttachment,
				attId.String(),
				comment.Id.String(),
				att.Url,
				att.MediaType,
				att.Sensitive,
				att.Name,
			)
			if err != nil {
				return err
			}
		}

		if canonicalUri != "" {
			if _, err := tx.Exec(sqlBackfillCommentUri, canonicalUri, canonicalUri, comment.Id.String()); err != nil {
				return err
			}
			comment.Uri = canonicalUri
			comment.Url = canonicalUri
		}

		return nil
	})
}

func (db *DB) UpdateCommentContent(id uuid.UUID, content, url string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateCommentContent, content, nullableString(url), id.String())
		return err
	})
}

// DeleteComment removes the comment; its attachments cascade
func (db *DB) DeleteComment(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteComment, id.String())
		return err
	})
}

func (db *DB) ReadCommentById(id uuid.UUID) (error, *domain.Comment) {
	return scanComment(db.db.QueryRow(sqlSelectCommentById, id.String()))
}

func (db *DB) ReadCommentByUri(uri string) (error, *domain.Comment) {
	return scanComment(db.db.QueryRow(sqlSelectCommentByUri, uri))
}

func (db *DB) ReadCommentsByPostId(postId uuid.UUID) (error, *[]domain.Comment) {
	rows, err := db.db.Query(sqlSelectCommentsByPost, postId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var comments []domain.Comment

	for rows.Next() {
		err, comment := scanCommentRow(rows)
		if err != nil {
			return err, &comments
		}
		comments = append(comments, *comment)
	}
	if err = rows.Err(); err != nil {
		return err, &comments
	}

	return nil, &comments
}

func (db *DB) ReadAttachmentsByCommentId(commentId uuid.UUID) (error, *[]domain.CommentAttachment) {
	rows, err := db.db.Query(sqlSelectCommentAttachments, commentId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var attachments []domain.CommentAttachment

	for rows.Next() {
		var att domain.CommentAttachment
		var idStr, commentIdStr string
		var mediaType, name sql.NullString
		if err := rows.Scan(&idStr, &commentIdStr, &att.Url, &mediaType, &att.Sensitive, &name); err != nil {
			return err, &attachments
		}
		att.Id, _ = uuid.Parse(idStr)
		att.CommentId, _ = uuid.Parse(commentIdStr)
		att.MediaType = mediaType.String
		att.Name = name.String
		attachments = append(attachments, att)
	}
	if err = rows.Err(); err != nil {
		return err, &attachments
	}

	return nil, &attachments
}

func scanComment(row *sql.Row) (error, *domain.Comment) {
	err, comment := scanCommentRow(row)
	if err == sql.ErrNoRows {
		return err, nil
	}
	return err, comment
}

func scanCommentRow(row rowScanner) (error, *domain.Comment) {
	var comment domain.Comment
	var idStr, actorIdStr, postIdStr string
	var url, parentId sql.NullString
	var toJson, ccJson, mentionsJson string
	err := row.Scan(
		&idStr,
		&comment.Uri,
		&url,
		&actorIdStr,
		&postIdStr,
		&parentId,
		&comment.Content,
		&toJson,
		&ccJson,
		&mentionsJson,
		&comment.CreatedAt,
	)
	if err != nil {
		return err, nil
	}
	comment.Id, _ = uuid.Parse(idStr)
	comment.ActorId, _ = uuid.Parse(actorIdStr)
	comment.PostId, _ = uuid.Parse(postIdStr)
	comment.Url = url.String
	comment.ParentId = parseUuidPtr(parentId)

	if err := json.Unmarshal([]byte(toJson), &comment.To); err != nil {
		return err, nil
	}
	if err := json.Unmarshal([]byte(ccJson), &comment.Cc); err != nil {
		return err, nil
	}
	if err := json.Unmarshal([]byte(mentionsJson), &comment.Mentions); err != nil {
		return err, nil
	}

	return nil, &comment
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

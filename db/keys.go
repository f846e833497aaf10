package db

import (
	"database/sql"

	"github.com/deemkeen/fedipage/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertKey = `INSERT INTO keys(actor_id, algorithm, private_jwk, public_jwk, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectKey = `SELECT actor_id, algorithm, private_jwk, public_jwk, created_at FROM keys WHERE actor_id = ? AND algorithm = ?`
)

// CreateKey persists one key pair. The (actor_id, algorithm) primary key
// makes a losing concurrent writer fail with a uniqueness violation; the
// caller re-reads the winner's row in that case.
func (db *DB) CreateKey(key *domain.Key) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertKey,
			key.ActorId.String(),
			string(key.Algorithm),
			key.PrivateJwk,
			key.PublicJwk,
			key.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadKey(actorId uuid.UUID, algorithm domain.KeyAlgorithm) (error, *domain.Key) {
	row := db.db.QueryRow(sqlSelectKey, actorId.String(), string(algorithm))
	var key domain.Key
	var actorIdStr, algorithmStr string
	err := row.Scan(&actorIdStr, &algorithmStr, &key.PrivateJwk, &key.PublicJwk, &key.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	key.ActorId, _ = uuid.Parse(actorIdStr)
	key.Algorithm = domain.KeyAlgorithm(algorithmStr)
	return nil, &key
}

package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"maintline/internal/domain"
)

// HashAPIKey returns the hex sha256 of a raw key. Only the hash is stored.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (r *Repo) InsertAPIKey(ctx context.Context, k domain.APIKey) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, created_at) VALUES (?,?,?,?,?)`,
		k.ID, k.UserID, k.Name, k.KeyHash, k.CreatedAt)
	return err
}

func (r *Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	var k domain.APIKey
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, name, key_hash, created_at FROM api_keys WHERE key_hash=?`, hash).
		Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.APIKey{}, ErrNotFound
	}
	return k, err
}

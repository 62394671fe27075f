package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

const jwtSecretKey = "jwt_secret"

// GetJWTSecret returns the persisted signing secret, generating and
// storing one on first run so member tokens survive restarts. The
// insert-or-ignore plus read-back keeps concurrent first starts from
// racing each other to different secrets.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		jwtSecretKey, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}

	// Read back whichever value won: ours or an earlier run's.
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, jwtSecretKey,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt secret: %w", err)
	}

	return secret, nil
}

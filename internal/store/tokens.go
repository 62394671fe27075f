package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken blacklists a token's JTI so logout takes effect before the
// token's natural expiry. The row keeps the expiry so the list can be
// pruned once the token would have lapsed anyway.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Prune lapsed revocations while we're here.
	_, _ = db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now(),
	)

	return nil
}

// IsTokenRevoked reports whether a token's JTI is on the revocation
// list. Checked on every authenticated request.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}

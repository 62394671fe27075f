package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"
)

// CodeTTL is how long an emailed verification code stays valid.
const CodeTTL = 3 * time.Minute

// SaveVerificationCode generates a six-digit code for the email, stores it
// with an expiry, and returns it. A newer code replaces any earlier one
// for the same address.
func SaveVerificationCode(ctx context.Context, db *sql.DB, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	_, err = db.ExecContext(ctx,
		`INSERT INTO verification_codes (email, code, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		email, code, time.Now().Add(CodeTTL),
	)
	if err != nil {
		return "", fmt.Errorf("storing verification code: %w", err)
	}

	// Opportunistically clean up expired codes.
	_, _ = db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at < ?`, time.Now(),
	)

	return code, nil
}

// ConsumeVerificationCode checks a code for the email and deletes it on
// success, so each code can be used once.
func ConsumeVerificationCode(ctx context.Context, db *sql.DB, email, code string) (bool, error) {
	var stored string
	var expiresAt time.Time
	err := db.QueryRowContext(ctx,
		`SELECT code, expires_at FROM verification_codes WHERE email = ?`, email,
	).Scan(&stored, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking verification code: %w", err)
	}

	if time.Now().After(expiresAt) || stored != code {
		return false, nil
	}

	if _, err := db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE email = ?`, email,
	); err != nil {
		return false, fmt.Errorf("consuming verification code: %w", err)
	}
	return true, nil
}

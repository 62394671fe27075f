package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// ClaimLockDuration is the cooldown window during which an item cannot
// receive a new claim after one is submitted. The lock expires by
// wall-clock passage alone; its expiry, not the old claim's status, is
// authoritative for admitting the next claim.
const ClaimLockDuration = 48 * time.Hour

// SubmitClaim opens a retrieval claim on an item. The whole protocol runs
// in one transaction that takes the write lock on the item row up front,
// so concurrent submissions on the same item serialize: the loser observes
// the winner's committed lock and gets a ConflictError.
func SubmitClaim(ctx context.Context, db *sql.DB, itemID, requesterID int64, description, location string, proof []byte, proofMime string) (*model.Claim, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// No-op write on the item row: acquires the write lock for the rest
	// of the transaction and doubles as the existence check.
	res, err := tx.ExecContext(ctx,
		`UPDATE items SET updated_at = updated_at WHERE id = ?`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("locking item row: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("locking item row: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	var status string
	var lockedUntil sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT status, locked_until FROM items WHERE id = ?`, itemID,
	).Scan(&status, &lockedUntil)
	if err != nil {
		return nil, fmt.Errorf("reading item state: %w", err)
	}

	now := time.Now()

	// Approved and collected items are spoken for no matter what the
	// retained lock timestamp says.
	if status == model.ItemStatusApproved || status == model.ItemStatusCollected {
		return nil, &ConflictError{}
	}
	if lockedUntil.Valid && lockedUntil.Time.After(now) {
		t := lockedUntil.Time
		return nil, &ConflictError{LockedUntil: &t}
	}

	// The previous claim's lock has lapsed without adjudication; retire
	// the stale pending claim before admitting the new one.
	if _, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE item_id = ? AND status = ?`,
		model.ClaimStatusExpired, itemID, model.ClaimStatusPending,
	); err != nil {
		return nil, fmt.Errorf("expiring stale claims: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO claims (item_id, requester_id, description, location, proof, proof_mime, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		itemID, requesterID, description, location, proof, proofMime, model.ClaimStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	until := now.Add(ClaimLockDuration)
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, locked_until = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.ItemStatusClaimed, until, itemID,
	); err != nil {
		return nil, fmt.Errorf("locking item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	return GetClaim(ctx, db, id)
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, db *sql.DB, id int64) (*model.Claim, error) {
	c := &model.Claim{}
	var location, proofMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, item_id, requester_id, description, location, proof_mime, status, requested_at
		 FROM claims WHERE id = ?`, id,
	).Scan(&c.ID, &c.ItemID, &c.RequesterID, &c.Description, &location, &proofMime, &c.Status, &c.RequestedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	c.Location = location.String
	c.ProofMime = proofMime.String
	return c, nil
}

// ListPendingClaims returns all pending claims joined with requester and
// item summaries, oldest first so administrators review them fairly.
func ListPendingClaims(ctx context.Context, db *sql.DB) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.item_id, r.requester_id, r.description, r.location, r.proof_mime, r.status, r.requested_at,
		        m.name AS requester_name, i.name AS item_name, i.description AS item_description
		 FROM claims r
		 JOIN members m ON m.id = r.requester_id
		 JOIN items i ON i.id = r.item_id
		 WHERE r.status = ?
		 ORDER BY r.requested_at ASC`, model.ClaimStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var location, proofMime, itemDescription sql.NullString
		if err := rows.Scan(&c.ID, &c.ItemID, &c.RequesterID, &c.Description, &location, &proofMime, &c.Status, &c.RequestedAt,
			&c.RequesterName, &c.ItemName, &itemDescription); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		c.Location = location.String
		c.ProofMime = proofMime.String
		c.ItemDescription = itemDescription.String
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// DecideClaim finalizes a pending claim. Approval marks the claim and the
// item approved and leaves the lock timestamp untouched (it has no gating
// effect once the item is approved, but is kept for audit). Rejection
// reverts the item to held and clears the lock, which is the only path
// that reopens an item to new claims before natural lock expiry.
func DecideClaim(ctx context.Context, db *sql.DB, id int64, approve bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// No-op write acquires the write lock so the decision orders against
	// concurrent claim submissions, and checks the claim exists.
	res, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = status WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("locking claim row: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("locking claim row: %w", err)
	} else if n == 0 {
		return fmt.Errorf("claim %d: %w", id, ErrNotFound)
	}

	var itemID int64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT item_id, status FROM claims WHERE id = ?`, id,
	).Scan(&itemID, &status)
	if err != nil {
		return fmt.Errorf("reading claim state: %w", err)
	}

	if status != model.ClaimStatusPending {
		return &ConflictError{}
	}

	if approve {
		if _, err := tx.ExecContext(ctx,
			`UPDATE claims SET status = ? WHERE id = ?`, model.ClaimStatusApproved, id,
		); err != nil {
			return fmt.Errorf("approving claim: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.ItemStatusApproved, itemID,
		); err != nil {
			return fmt.Errorf("approving item: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE claims SET status = ? WHERE id = ?`, model.ClaimStatusRejected, id,
		); err != nil {
			return fmt.Errorf("rejecting claim: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET status = ?, locked_until = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.ItemStatusHeld, itemID,
		); err != nil {
			return fmt.Errorf("releasing item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing decision: %w", err)
	}
	return nil
}

// ListCollectable returns a member's approved claims on items that have
// not been picked up yet.
func ListCollectable(ctx context.Context, db *sql.DB, memberID int64) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.item_id, r.requester_id, r.description, r.location, r.proof_mime, r.status, r.requested_at,
		        i.name AS item_name, i.locker_number
		 FROM claims r
		 JOIN items i ON i.id = r.item_id
		 WHERE r.requester_id = ? AND r.status = ? AND i.is_retrieved = 0
		 ORDER BY r.requested_at ASC`, memberID, model.ClaimStatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("listing collectable items: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var location, proofMime sql.NullString
		if err := rows.Scan(&c.ID, &c.ItemID, &c.RequesterID, &c.Description, &location, &proofMime, &c.Status, &c.RequestedAt,
			&c.ItemName, &c.LockerNumber); err != nil {
			return nil, fmt.Errorf("scanning collectable claim: %w", err)
		}
		c.Location = location.String
		c.ProofMime = proofMime.String
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// Collect finalizes pickup of an approved item. The caller must hold the
// approved claim on the item and the item must not have been retrieved.
// Returns the locker number so the kiosk boundary can open the door; the
// physical actuation is the caller's side effect, not ours.
func Collect(ctx context.Context, db *sql.DB, memberID, itemID int64) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET updated_at = updated_at WHERE id = ?`, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("locking item row: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("locking item row: %w", err)
	} else if n == 0 {
		return 0, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	var claimID int64
	var lockerNumber int
	err = tx.QueryRowContext(ctx,
		`SELECT r.id, i.locker_number
		 FROM claims r
		 JOIN items i ON i.id = r.item_id
		 WHERE r.item_id = ? AND r.requester_id = ? AND r.status = ? AND i.is_retrieved = 0`,
		itemID, memberID, model.ClaimStatusApproved,
	).Scan(&claimID, &lockerNumber)
	if err == sql.ErrNoRows {
		return 0, ErrDenied
	}
	if err != nil {
		return 0, fmt.Errorf("checking pickup authorization: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET is_retrieved = 1, status = ?, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, model.ItemStatusCollected, itemID,
	); err != nil {
		return 0, fmt.Errorf("marking item collected: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE id = ?`, model.ClaimStatusCollected, claimID,
	); err != nil {
		return 0, fmt.Errorf("marking claim collected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing pickup: %w", err)
	}
	return lockerNumber, nil
}

// GetClaimProof returns a claim's proof photo data and MIME type.
func GetClaimProof(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var proof []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT proof, proof_mime FROM claims WHERE id = ?`, id,
	).Scan(&proof, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting claim proof: %w", err)
	}
	return proof, mime.String, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// CreateMember creates a new member account.
func CreateMember(ctx context.Context, db *sql.DB, name, email, passwordHash, phoneNumber, role string) (*model.Member, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO members (name, email, password_hash, phone_number, role) VALUES (?, ?, ?, ?, ?)`,
		name, email, passwordHash, phoneNumber, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting member id: %w", err)
	}

	return GetMember(ctx, db, id)
}

// GetMember returns a member by ID.
func GetMember(ctx context.Context, db *sql.DB, id int64) (*model.Member, error) {
	m := &model.Member{}
	var phone sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, phone_number, role, point, created_at, deleted_at
		 FROM members WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &phone, &m.Role, &m.Point, &m.CreatedAt, &m.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member: %w", err)
	}
	m.PhoneNumber = phone.String
	return m, nil
}

// GetMemberByEmail returns a member by email (including soft-deleted for
// auth checks).
func GetMemberByEmail(ctx context.Context, db *sql.DB, email string) (*model.Member, error) {
	m := &model.Member{}
	var phone sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, phone_number, role, point, created_at, deleted_at
		 FROM members WHERE email = ?`, email,
	).Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &phone, &m.Role, &m.Point, &m.CreatedAt, &m.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member by email: %w", err)
	}
	m.PhoneNumber = phone.String
	return m, nil
}

// ListMembers returns all non-deleted members.
func ListMembers(ctx context.Context, db *sql.DB) ([]model.Member, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, email, password_hash, phone_number, role, point, created_at, deleted_at
		 FROM members WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		var phone sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &phone, &m.Role, &m.Point, &m.CreatedAt, &m.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.PhoneNumber = phone.String
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateMemberPassword updates a member's password hash.
func UpdateMemberPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE members SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating member password: %w", err)
	}
	return nil
}

// DeleteMember soft-deletes a member.
func DeleteMember(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE members SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// FinderReward is the number of points credited to a registered finder
// when they hand in a found item.
const FinderReward = 100

// CreateItem registers a found item. When finderID is non-nil the
// finder's point balance is credited in the same transaction, so the
// insert and the reward commit or roll back together.
func CreateItem(ctx context.Context, db *sql.DB, name string, categoryID, placeID int64, description, foundDate string, finderID *int64, lockerNumber int) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Credit the reward before the insert: the zero-rows check is what
	// reports an unknown finder, and the items row references members so
	// the insert would trip the foreign key first.
	if finderID != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE members SET point = point + ? WHERE id = ? AND deleted_at IS NULL`,
			FinderReward, *finderID,
		)
		if err != nil {
			return nil, fmt.Errorf("crediting finder reward: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("checking finder reward: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("crediting finder %d: %w", *finderID, ErrNotFound)
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (name, category_id, place_id, description, found_date, finder_id, locker_number, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, categoryID, placeID, description, foundDate, finderID, lockerNumber, model.ItemStatusHeld,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description, foundDate, imageMime sql.NullString
	var lockedUntil sql.NullTime
	err := db.QueryRowContext(ctx,
		`SELECT id, name, category_id, place_id, description, found_date, image_mime,
		        status, locked_until, is_retrieved, locker_number, finder_id, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.CategoryID, &item.PlaceID, &description, &foundDate, &imageMime,
		&item.Status, &lockedUntil, &item.IsRetrieved, &item.LockerNumber, &item.FinderID, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	item.FoundDate = foundDate.String
	item.ImageMime = imageMime.String
	if lockedUntil.Valid {
		item.LockedUntil = &lockedUntil.Time
	}
	return item, nil
}

// GetItemDetail returns an item joined with its category and place.
func GetItemDetail(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description, foundDate, imageMime, placeAddress sql.NullString
	var lockedUntil sql.NullTime
	err := db.QueryRowContext(ctx,
		`SELECT i.id, i.name, i.category_id, i.place_id, i.description, i.found_date, i.image_mime,
		        i.status, i.locked_until, i.is_retrieved, i.locker_number, i.finder_id, i.created_at, i.updated_at,
		        c.name AS category_name, p.name AS place_name, p.address AS place_address
		 FROM items i
		 JOIN categories c ON c.id = i.category_id
		 JOIN places p ON p.id = i.place_id
		 WHERE i.id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.CategoryID, &item.PlaceID, &description, &foundDate, &imageMime,
		&item.Status, &lockedUntil, &item.IsRetrieved, &item.LockerNumber, &item.FinderID, &item.CreatedAt, &item.UpdatedAt,
		&item.CategoryName, &item.PlaceName, &placeAddress)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item detail: %w", err)
	}
	item.Description = description.String
	item.FoundDate = foundDate.String
	item.ImageMime = imageMime.String
	item.PlaceAddress = placeAddress.String
	if lockedUntil.Valid {
		item.LockedUntil = &lockedUntil.Time
	}
	return item, nil
}

// ListOpenItems returns items that are held or under an active claim,
// newest first. Availability is derived by the caller at read time from
// status and locked_until.
func ListOpenItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, category_id, place_id, description, found_date, image_mime,
		        status, locked_until, is_retrieved, locker_number, finder_id, created_at, updated_at
		 FROM items WHERE status IN (?, ?) ORDER BY created_at DESC`,
		model.ItemStatusHeld, model.ItemStatusClaimed,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, foundDate, imageMime sql.NullString
		var lockedUntil sql.NullTime
		if err := rows.Scan(&item.ID, &item.Name, &item.CategoryID, &item.PlaceID, &description, &foundDate, &imageMime,
			&item.Status, &lockedUntil, &item.IsRetrieved, &item.LockerNumber, &item.FinderID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.FoundDate = foundDate.String
		item.ImageMime = imageMime.String
		if lockedUntil.Valid {
			item.LockedUntil = &lockedUntil.Time
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetItemImage sets an item's photo data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's photo data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

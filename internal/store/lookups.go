package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// ListCategories returns all item categories.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory creates an item category.
func CreateCategory(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	result, err := db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}
	return &model.Category{ID: id, Name: name}, nil
}

// ListPlaces returns all found-at places.
func ListPlaces(ctx context.Context, db *sql.DB) ([]model.Place, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, address FROM places ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing places: %w", err)
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		var p model.Place
		var address sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &address); err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}
		p.Address = address.String
		places = append(places, p)
	}
	return places, rows.Err()
}

// CreatePlace creates a found-at place.
func CreatePlace(ctx context.Context, db *sql.DB, name, address string) (*model.Place, error) {
	result, err := db.ExecContext(ctx, `INSERT INTO places (name, address) VALUES (?, ?)`, name, address)
	if err != nil {
		return nil, fmt.Errorf("creating place: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting place id: %w", err)
	}
	return &model.Place{ID: id, Name: name, Address: address}, nil
}

package model

import (
	"fmt"
	"time"
)

// Item represents a found object held in a locker.
type Item struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	CategoryID   int64      `json:"category_id"`
	PlaceID      int64      `json:"place_id"`
	Description  string     `json:"description,omitempty"`
	FoundDate    string     `json:"found_date,omitempty"`
	ImageMime    string     `json:"image_mime,omitempty"`
	Status       string     `json:"status"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
	IsRetrieved  bool       `json:"is_retrieved"`
	LockerNumber int        `json:"locker_number"`
	FinderID     *int64     `json:"finder_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
	PlaceName    string `json:"place_name,omitempty"`
	PlaceAddress string `json:"place_address,omitempty"`
}

// Item statuses. An item moves held → claimed → approved → collected,
// or back to held when a claim is rejected.
const (
	ItemStatusHeld      = "held"
	ItemStatusClaimed   = "claimed"
	ItemStatusApproved  = "approved"
	ItemStatusCollected = "collected"
)

// Available reports whether a new claim can be submitted for the item at
// the given time. The claim lock expires purely by wall-clock passage, so
// availability must be derived at read time and never cached.
func (i *Item) Available(now time.Time) bool {
	switch i.Status {
	case ItemStatusHeld:
		return true
	case ItemStatusClaimed:
		return i.LockedUntil == nil || !now.Before(*i.LockedUntil)
	default:
		// approved and collected are terminal for claiming, regardless
		// of the (retained) lock timestamp.
		return false
	}
}

// DisplayStatus returns the status shown to the public, folding an
// expired claim lock back into "held".
func (i *Item) DisplayStatus(now time.Time) string {
	if i.Status == ItemStatusClaimed && i.Available(now) {
		return ItemStatusHeld
	}
	return i.Status
}

// LockMessage returns a human-readable explanation when the item cannot
// be claimed, or an empty string when it is available.
func (i *Item) LockMessage(now time.Time) string {
	if i.Available(now) {
		return ""
	}
	switch i.Status {
	case ItemStatusApproved, ItemStatusCollected:
		return "already claimed by owner"
	default:
		return fmt.Sprintf("claim pending, locked until %s", i.LockedUntil.Format(time.RFC3339))
	}
}

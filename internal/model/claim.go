package model

import "time"

// Claim represents a member's retrieval request for a found item,
// adjudicated by an administrator.
type Claim struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	RequesterID int64     `json:"requester_id"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	ProofMime   string    `json:"proof_mime,omitempty"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`

	// Joined fields (not always populated).
	RequesterName   string `json:"requester_name,omitempty"`
	ItemName        string `json:"item_name,omitempty"`
	ItemDescription string `json:"item_description,omitempty"`
	LockerNumber    int    `json:"locker_number,omitempty"`
}

// Claim statuses. A claim is created pending, then approved or rejected
// by an administrator; approved claims advance to collected at pickup.
// A pending claim whose item lock lapsed is marked expired when the next
// claim is admitted. rejected, collected and expired are terminal.
const (
	ClaimStatusPending   = "pending"
	ClaimStatusApproved  = "approved"
	ClaimStatusRejected  = "rejected"
	ClaimStatusCollected = "collected"
	ClaimStatusExpired   = "expired"
)

// Category is a lookup entry for classifying items.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Place is a lookup entry for where an item was found.
type Place struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

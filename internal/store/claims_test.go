package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func newFixtures(t *testing.T) (*sql.DB, *model.Item, *model.Member) {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	cat, err := CreateCategory(ctx, database, "test")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	place, err := CreatePlace(ctx, database, "library", "second floor")
	if err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}
	item, err := CreateItem(ctx, database, "black umbrella", cat.ID, place.ID, "wooden handle", "2025-03-01", nil, 3)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	member, err := CreateMember(ctx, database, "Alice", "alice@example.com", "hash", "", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	return database, item, member
}

// backdateLock rewrites an item's claim lock so expiry scenarios don't
// have to wait out the real cooldown.
func backdateLock(t *testing.T, database *sql.DB, itemID int64, until time.Time) {
	t.Helper()
	if _, err := database.Exec(`UPDATE items SET locked_until = ? WHERE id = ?`, until, itemID); err != nil {
		t.Fatalf("backdating lock: %v", err)
	}
}

func TestSubmitClaimLocksItem(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	before := time.Now()
	claim, err := SubmitClaim(ctx, database, item.ID, member.ID, "it is mine", "lost near gym", nil, "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}
	if claim.Status != model.ClaimStatusPending {
		t.Errorf("expected pending claim, got %s", claim.Status)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusClaimed {
		t.Errorf("expected item status claimed, got %s", got.Status)
	}
	if got.LockedUntil == nil {
		t.Fatal("expected locked_until to be set")
	}

	// Lock must be submission time + the cooldown, within clock tolerance.
	want := before.Add(ClaimLockDuration)
	if diff := got.LockedUntil.Sub(want); diff < 0 || diff > 10*time.Second {
		t.Errorf("locked_until off by %s from expected %s", diff, want)
	}
}

func TestSubmitClaimConflictWhileLocked(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	if _, err := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, ""); err != nil {
		t.Fatalf("first SubmitClaim: %v", err)
	}

	other, _ := CreateMember(ctx, database, "Bob", "bob@example.com", "hash", "", model.RoleUser)
	_, err := SubmitClaim(ctx, database, item.ID, other.ID, "no, mine", "", nil, "")
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	var ce *ConflictError
	errors.As(err, &ce)
	if ce.LockedUntil == nil {
		t.Error("conflict should carry the lock expiry for display")
	}

	// The losing attempt must not have created a claim row.
	var count int
	database.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 claim row, got %d", count)
	}
}

func TestSubmitClaimUnknownItem(t *testing.T) {
	database, _, member := newFixtures(t)

	_, err := SubmitClaim(context.Background(), database, 9999, member.ID, "mine", "", nil, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitClaimAfterLockExpiry(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	first, err := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	if err != nil {
		t.Fatalf("first SubmitClaim: %v", err)
	}

	// T0+47h: still locked.
	backdateLock(t, database, item.ID, time.Now().Add(time.Hour))
	other, _ := CreateMember(ctx, database, "Bob", "bob@example.com", "hash", "", model.RoleUser)
	if _, err := SubmitClaim(ctx, database, item.ID, other.ID, "mine too", "", nil, ""); !IsConflict(err) {
		t.Fatalf("expected conflict inside cooldown, got %v", err)
	}

	// T0+49h: lock lapsed, resubmission is admitted and the stale pending
	// claim is retired.
	backdateLock(t, database, item.ID, time.Now().Add(-time.Hour))
	second, err := SubmitClaim(ctx, database, item.ID, other.ID, "mine too", "", nil, "")
	if err != nil {
		t.Fatalf("SubmitClaim after expiry: %v", err)
	}
	if second.Status != model.ClaimStatusPending {
		t.Errorf("expected pending claim, got %s", second.Status)
	}

	stale, _ := GetClaim(ctx, database, first.ID)
	if stale.Status != model.ClaimStatusExpired {
		t.Errorf("expected stale claim expired, got %s", stale.Status)
	}

	// Invariant: at most one claim per item in {pending, approved}.
	var active int
	database.QueryRow(`SELECT COUNT(*) FROM claims WHERE item_id = ? AND status IN ('pending', 'approved')`, item.ID).Scan(&active)
	if active != 1 {
		t.Errorf("expected exactly 1 active claim, got %d", active)
	}
}

func TestConcurrentSubmitExactlyOneWins(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	other, _ := CreateMember(ctx, database, "Bob", "bob@example.com", "hash", "", model.RoleUser)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, id := range []int64{member.ID, other.ID} {
		wg.Add(1)
		go func(requester int64) {
			defer wg.Done()
			_, err := SubmitClaim(ctx, database, item.ID, requester, "mine", "", nil, "")
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case IsConflict(err):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Errorf("expected 1 success and 1 conflict, got %d/%d", ok, conflict)
	}

	var active int
	database.QueryRow(`SELECT COUNT(*) FROM claims WHERE item_id = ? AND status IN ('pending', 'approved')`, item.ID).Scan(&active)
	if active != 1 {
		t.Errorf("expected exactly 1 active claim, got %d", active)
	}
}

func TestRejectReleasesLockEarly(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	claim, err := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}

	if err := DecideClaim(ctx, database, claim.ID, false); err != nil {
		t.Fatalf("DecideClaim(reject): %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusHeld {
		t.Errorf("expected item back to held, got %s", got.Status)
	}
	if got.LockedUntil != nil {
		t.Errorf("expected lock cleared, got %v", got.LockedUntil)
	}

	rejected, _ := GetClaim(ctx, database, claim.ID)
	if rejected.Status != model.ClaimStatusRejected {
		t.Errorf("expected claim rejected, got %s", rejected.Status)
	}

	// A new claim is admitted immediately, well before natural expiry.
	other, _ := CreateMember(ctx, database, "Bob", "bob@example.com", "hash", "", model.RoleUser)
	if _, err := SubmitClaim(ctx, database, item.ID, other.ID, "mine", "", nil, ""); err != nil {
		t.Fatalf("resubmission after rejection: %v", err)
	}
}

func TestApproveKeepsLockAndGatesItem(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	claim, err := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}
	locked, _ := GetItem(ctx, database, item.ID)

	if err := DecideClaim(ctx, database, claim.ID, true); err != nil {
		t.Fatalf("DecideClaim(approve): %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusApproved {
		t.Errorf("expected item approved, got %s", got.Status)
	}
	if got.LockedUntil == nil || !got.LockedUntil.Equal(*locked.LockedUntil) {
		t.Errorf("expected locked_until untouched on approval, got %v", got.LockedUntil)
	}

	// Terminal gating: unavailable even when the retained lock lapses.
	backdateLock(t, database, item.ID, time.Now().Add(-time.Hour))
	got, _ = GetItem(ctx, database, item.ID)
	if got.Available(time.Now()) {
		t.Error("approved item must never be available")
	}

	other, _ := CreateMember(ctx, database, "Bob", "bob@example.com", "hash", "", model.RoleUser)
	if _, err := SubmitClaim(ctx, database, item.ID, other.ID, "mine", "", nil, ""); !IsConflict(err) {
		t.Fatalf("expected conflict on approved item, got %v", err)
	}
}

func TestDecideUnknownAndDecidedClaims(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	if err := DecideClaim(ctx, database, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown claim, got %v", err)
	}

	claim, _ := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	if err := DecideClaim(ctx, database, claim.ID, true); err != nil {
		t.Fatalf("DecideClaim: %v", err)
	}

	// Deciding again must not mutate anything.
	if err := DecideClaim(ctx, database, claim.ID, false); !IsConflict(err) {
		t.Errorf("expected conflict for already-decided claim, got %v", err)
	}
	got, _ := GetClaim(ctx, database, claim.ID)
	if got.Status != model.ClaimStatusApproved {
		t.Errorf("decided claim mutated to %s", got.Status)
	}
}

func TestCollectHappyPath(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	claim, _ := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	if err := DecideClaim(ctx, database, claim.ID, true); err != nil {
		t.Fatalf("DecideClaim: %v", err)
	}

	collectable, err := ListCollectable(ctx, database, member.ID)
	if err != nil {
		t.Fatalf("ListCollectable: %v", err)
	}
	if len(collectable) != 1 || collectable[0].ItemID != item.ID {
		t.Fatalf("expected 1 collectable item, got %v", collectable)
	}

	locker, err := Collect(ctx, database, member.ID, item.ID)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if locker != 3 {
		t.Errorf("expected locker 3, got %d", locker)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusCollected || !got.IsRetrieved {
		t.Errorf("expected collected+retrieved item, got %s retrieved=%v", got.Status, got.IsRetrieved)
	}
	if got.LockedUntil != nil {
		t.Errorf("expected lock cleared on collection, got %v", got.LockedUntil)
	}
	done, _ := GetClaim(ctx, database, claim.ID)
	if done.Status != model.ClaimStatusCollected {
		t.Errorf("expected claim collected, got %s", done.Status)
	}

	// Nothing left to collect, and a second pickup is denied.
	collectable, _ = ListCollectable(ctx, database, member.ID)
	if len(collectable) != 0 {
		t.Errorf("expected empty collectable list, got %d", len(collectable))
	}
	if _, err := Collect(ctx, database, member.ID, item.ID); !errors.Is(err, ErrDenied) {
		t.Errorf("expected ErrDenied for double pickup, got %v", err)
	}
}

func TestCollectDeniedForStranger(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	claim, _ := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	DecideClaim(ctx, database, claim.ID, true)

	other, _ := CreateMember(ctx, database, "Mallory", "mallory@example.com", "hash", "", model.RoleUser)
	if _, err := Collect(ctx, database, other.ID, item.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}

	// No mutation happened.
	got, _ := GetItem(ctx, database, item.ID)
	if got.IsRetrieved || got.Status != model.ItemStatusApproved {
		t.Errorf("denied pickup mutated item: %s retrieved=%v", got.Status, got.IsRetrieved)
	}
}

func TestCollectDeniedWhilePending(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	if _, err := Collect(ctx, database, member.ID, item.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied for unadjudicated claim, got %v", err)
	}
}

func TestListPendingClaimsFIFO(t *testing.T) {
	database, item, member := newFixtures(t)
	ctx := context.Background()

	cat, _ := CreateCategory(ctx, database, "test2")
	place, _ := CreatePlace(ctx, database, "cafeteria", "")
	item2, _ := CreateItem(ctx, database, "blue scarf", cat.ID, place.ID, "", "2025-03-02", nil, 4)

	first, _ := SubmitClaim(ctx, database, item.ID, member.ID, "mine", "", nil, "")
	// Force distinct requested_at ordering.
	database.Exec(`UPDATE claims SET requested_at = datetime('now', '-1 hour') WHERE id = ?`, first.ID)
	second, _ := SubmitClaim(ctx, database, item2.ID, member.ID, "also mine", "", nil, "")

	pending, err := ListPendingClaims(ctx, database)
	if err != nil {
		t.Fatalf("ListPendingClaims: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending claims, got %d", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Errorf("expected oldest-first order, got %d then %d", pending[0].ID, pending[1].ID)
	}
	if pending[0].RequesterName != "Alice" || pending[0].ItemName == "" {
		t.Errorf("expected joined requester and item fields, got %+v", pending[0])
	}
}

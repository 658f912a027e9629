package sqlite_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/artpar/voxmeter/adapters/sqlite"
	"github.com/artpar/voxmeter/domain/ledger"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/domain/user"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "voxmeter-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
	}

	return db, cleanup
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testTrial(id string, userID int64, start time.Time) window.Window {
	return window.Window{
		ID:              id,
		UserID:          userID,
		Kind:            window.FreeTrial,
		Start:           start,
		End:             start.AddDate(0, 0, 7),
		TTSLimitChars:   10_000,
		STTLimitSeconds: 3_600,
		CostLimit:       money.Unlimited,
		CreatedAt:       start,
	}
}

// -----------------------------------------------------------------------------
// UserStore Tests
// -----------------------------------------------------------------------------

func TestUserStore_RegisterAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUserStore(db)
	ctx := context.Background()
	now := date(2024, time.January, 1)

	u := user.User{
		ID:        100,
		FirstName: "Alice",
		LastName:  "Anderson",
		Username:  "alice",
		VIP:       true,
		CreatedAt: now,
	}
	if err := store.Register(ctx, u, testTrial("w-1", 100, now)); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := store.Get(ctx, 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FirstName != "Alice" || got.Username != "alice" || !got.VIP {
		t.Errorf("got = %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, now)
	}
}

func TestUserStore_GetMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUserStore(db)
	if _, err := store.Get(context.Background(), 999); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUserStore_RegisterDuplicate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUserStore(db)
	ctx := context.Background()
	now := date(2024, time.January, 1)

	u := user.User{ID: 100, CreatedAt: now}
	if err := store.Register(ctx, u, testTrial("w-1", 100, now)); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := store.Register(ctx, u, testTrial("w-2", 100, now))
	if !errors.Is(err, ports.ErrExists) {
		t.Errorf("err = %v, want ErrExists", err)
	}
}

func TestUserStore_RegisterAtomic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	users := sqlite.NewUserStore(db)
	windows := sqlite.NewWindowStore(db)
	ctx := context.Background()
	now := date(2024, time.January, 1)

	// Seed a window so the second registration's trial insert collides
	// on the window primary key.
	if err := users.Register(ctx, user.User{ID: 1, CreatedAt: now}, testTrial("w-1", 1, now)); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Same window ID, new user: the window insert fails, and the user
	// row must not survive on its own.
	if err := users.Register(ctx, user.User{ID: 2, CreatedAt: now}, testTrial("w-1", 2, now)); err == nil {
		t.Fatal("expected window collision to fail registration")
	}
	if _, err := users.Get(ctx, 2); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("user 2 leaked past a failed registration: err = %v", err)
	}

	got, err := windows.ListByUser(ctx, 2)
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("windows for user 2 = %d, want 0", len(got))
	}
}

func TestUserStore_ListAndCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUserStore(db)
	ctx := context.Background()
	now := date(2024, time.January, 1)

	for _, id := range []int64{3, 1, 2} {
		w := testTrial("w-"+string(rune('0'+id)), id, now)
		if err := store.Register(ctx, user.User{ID: id, CreatedAt: now}, w); err != nil {
			t.Fatalf("register %d: %v", id, err)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	list, err := store.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 2 {
		t.Errorf("list = %+v, want users 1 and 2", list)
	}
}

// -----------------------------------------------------------------------------
// WindowStore Tests
// -----------------------------------------------------------------------------

func TestWindowStore_CreateAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	users := sqlite.NewUserStore(db)
	store := sqlite.NewWindowStore(db)
	ctx := context.Background()
	now := date(2024, time.January, 1)

	if err := users.Register(ctx, user.User{ID: 1, CreatedAt: now}, testTrial("w-1", 1, now)); err != nil {
		t.Fatalf("register: %v", err)
	}

	sub := window.Window{
		ID:              "w-2",
		UserID:          1,
		Kind:            window.Subscription,
		Start:           now,
		End:             date(2024, time.April, 1),
		TTSLimitChars:   100_000,
		STTLimitSeconds: window.NoLimit,
		CostLimit:       money.FromDollars(5),
		CreatedAt:       now,
	}
	if err := store.Create(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := store.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want trial + subscription", len(list))
	}
	for _, w := range list {
		if w.ID == "w-2" {
			if w.Kind != window.Subscription || w.STTLimitSeconds != window.NoLimit {
				t.Errorf("subscription = %+v", w)
			}
			if w.CostLimit != money.FromDollars(5) {
				t.Errorf("cost limit = %d", w.CostLimit)
			}
			if !w.End.Equal(date(2024, time.April, 1)) {
				t.Errorf("end = %v", w.End)
			}
		}
	}
}

func TestWindowStore_SharedPool(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewWindowStore(db)
	ctx := context.Background()

	if _, err := store.SharedPool(ctx); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound before creation", err)
	}

	pool := window.Window{
		ID:              "pool",
		Kind:            window.SharedPool,
		Start:           date(2024, time.January, 1),
		TTSLimitChars:   window.NoLimit,
		STTLimitSeconds: window.NoLimit,
		CostLimit:       money.FromCents(300),
		CreatedAt:       date(2024, time.January, 1),
	}
	if err := store.Create(ctx, pool); err != nil {
		t.Fatalf("create pool: %v", err)
	}

	got, err := store.SharedPool(ctx)
	if err != nil {
		t.Fatalf("shared pool: %v", err)
	}
	if got.ID != "pool" || got.UserID != 0 {
		t.Errorf("pool = %+v", got)
	}
	if !got.OpenEnded() {
		t.Error("pool end should round-trip as open-ended")
	}

	// The pool belongs to no user; per-user listings must not include it.
	list, err := store.ListByUser(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListByUser(0) = %+v, want empty", list)
	}
}

func TestWindowStore_ExtendEnd(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	users := sqlite.NewUserStore(db)
	store := sqlite.NewWindowStore(db)
	ctx := context.Background()
	now := date(2024, time.January, 1)

	if err := users.Register(ctx, user.User{ID: 1, CreatedAt: now}, testTrial("w-1", 1, now)); err != nil {
		t.Fatalf("register: %v", err)
	}

	newEnd := date(2024, time.June, 1)
	if err := store.ExtendEnd(ctx, "w-1", newEnd); err != nil {
		t.Fatalf("extend: %v", err)
	}

	list, _ := store.ListByUser(ctx, 1)
	if len(list) != 1 || !list[0].End.Equal(newEnd) {
		t.Errorf("end = %v, want %v", list[0].End, newEnd)
	}

	if err := store.ExtendEnd(ctx, "missing", newEnd); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// -----------------------------------------------------------------------------
// LedgerStore Tests
// -----------------------------------------------------------------------------

func seedLedgerUser(t *testing.T, db *sqlite.DB, id int64) {
	t.Helper()
	now := date(2024, time.January, 1)
	users := sqlite.NewUserStore(db)
	err := users.Register(context.Background(), user.User{ID: id, CreatedAt: now},
		testTrial("trial-"+string(rune('0'+id)), id, now))
	if err != nil {
		t.Fatalf("register %d: %v", id, err)
	}
}

func TestLedgerStore_AppendAndSum(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedLedgerUser(t, db, 1)
	seedLedgerUser(t, db, 2)
	store := sqlite.NewLedgerStore(db)
	ctx := context.Background()

	events := []ledger.Event{
		{ID: "e1", UserID: 1, Kind: resource.TTSChars, Quantity: 100, Cost: 3_000, Timestamp: date(2024, time.January, 2)},
		{ID: "e2", UserID: 1, Kind: resource.STTSeconds, Quantity: 60, Cost: 12_000, Timestamp: date(2024, time.January, 3)},
		{ID: "e3", UserID: 2, Kind: resource.TTSChars, Quantity: 50, Cost: 1_500, Timestamp: date(2024, time.January, 3)},
		{ID: "e4", UserID: 1, Kind: resource.TTSChars, Quantity: 25, Cost: 750, Timestamp: date(2024, time.February, 2)},
	}
	for _, e := range events {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}

	janStart, febStart := date(2024, time.January, 1), date(2024, time.February, 1)

	// Per-user, per-kind, period-bounded.
	got, err := store.SumQuantity(ctx, 1, resource.TTSChars, janStart, febStart)
	if err != nil {
		t.Fatalf("sum quantity: %v", err)
	}
	if got != 100 {
		t.Errorf("SumQuantity = %d, want 100", got)
	}

	// AllUsers drops the user filter.
	got, err = store.SumQuantity(ctx, ledger.AllUsers, resource.TTSChars, janStart, febStart)
	if err != nil {
		t.Fatalf("sum quantity: %v", err)
	}
	if got != 150 {
		t.Errorf("SumQuantity(AllUsers) = %d, want 150", got)
	}

	// Cost aggregates across both kinds.
	cost, err := store.SumCost(ctx, 1, janStart, febStart)
	if err != nil {
		t.Fatalf("sum cost: %v", err)
	}
	if cost != 15_000 {
		t.Errorf("SumCost = %d, want 15000", cost)
	}

	cost, err = store.SumCost(ctx, ledger.AllUsers, janStart, febStart)
	if err != nil {
		t.Fatalf("sum cost: %v", err)
	}
	if cost != 16_500 {
		t.Errorf("SumCost(AllUsers) = %d, want 16500", cost)
	}
}

func TestLedgerStore_SumEmptyPeriod(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewLedgerStore(db)
	got, err := store.SumQuantity(context.Background(), 1, resource.TTSChars,
		date(2024, time.January, 1), date(2024, time.February, 1))
	if err != nil {
		t.Fatalf("sum quantity: %v", err)
	}
	if got != 0 {
		t.Errorf("SumQuantity on empty ledger = %d, want 0", got)
	}
}

func TestLedgerStore_Recent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedLedgerUser(t, db, 1)
	store := sqlite.NewLedgerStore(db)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		e := ledger.Event{
			ID:        "e" + string(rune('0'+i)),
			UserID:    1,
			Kind:      resource.TTSChars,
			Quantity:  int64(i),
			Timestamp: date(2024, time.January, i),
		}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 1, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	if recent[0].Quantity != 5 || recent[2].Quantity != 3 {
		t.Errorf("recent order = %+v, want newest first", recent)
	}
}

// -----------------------------------------------------------------------------
// PaymentStore Tests
// -----------------------------------------------------------------------------

func TestPaymentStore_RecordAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedLedgerUser(t, db, 1)
	store := sqlite.NewPaymentStore(db)
	ctx := context.Background()

	p := ports.Payment{
		ID:       "pay-1",
		UserID:   1,
		WindowID: "trial-1",
		Amount:   money.FromCents(500),
		Method:   "card",
		PaidAt:   date(2024, time.January, 5),
	}
	if err := store.Record(ctx, p); err != nil {
		t.Fatalf("record: %v", err)
	}

	list, err := store.ListByUser(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	got := list[0]
	if got.Amount != money.FromCents(500) || got.Method != "card" || got.WindowID != "trial-1" {
		t.Errorf("payment = %+v", got)
	}
	if !got.PaidAt.Equal(p.PaidAt) {
		t.Errorf("paid at = %v, want %v", got.PaidAt, p.PaidAt)
	}
}

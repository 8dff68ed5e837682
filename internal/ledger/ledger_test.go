package ledger

import (
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pantry-ledger-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTempItem_CreateAndFetch(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateTempItem("Burger", 850, 60, 45, 35, "2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	items, err := db.TempItemsForDay("2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	it := items[0]
	if it.ID != id || it.Name != "Burger" || it.Calories != 850 || it.Protein != 35 {
		t.Errorf("unexpected item: %+v", it)
	}
	if it.CreatedAt.IsZero() {
		t.Error("created_at should be set by the database")
	}
}

func TestTempItem_DayIsolation(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateTempItem("A", 100, 10, 5, 8, "2026-08-29"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateTempItem("B", 200, 20, 10, 16, "2026-08-30"); err != nil {
		t.Fatal(err)
	}

	items, err := db.TempItemsForDay("2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "B" {
		t.Fatalf("day filter leaked: %+v", items)
	}
}

func TestTempItem_Delete(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateTempItem("Snack", 150, 20, 5, 3, "2026-08-30")
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := db.DeleteTempItem(id)
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Error("first delete should report a deleted row")
	}

	deleted, err = db.DeleteTempItem(id)
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("second delete should report no row")
	}
}

func TestTempItemDays_DescOrder(t *testing.T) {
	db := testDB(t)

	for _, day := range []string{"2026-08-28", "2026-08-30", "2026-08-29", "2026-08-30"} {
		if _, err := db.CreateTempItem("x", 1, 0, 0, 0, day); err != nil {
			t.Fatal(err)
		}
	}

	days, err := db.TempItemDays()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-08-30", "2026-08-29", "2026-08-28"}
	if len(days) != len(want) {
		t.Fatalf("got %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("got %v, want %v", days, want)
		}
	}
}

func TestConfig_SeededDefaults(t *testing.T) {
	db := testDB(t)

	got, err := db.GetConfig("day_start_hour")
	if err != nil {
		t.Fatal(err)
	}
	if got != "6" {
		t.Errorf("day_start_hour = %q, want %q", got, "6")
	}

	got, err = db.GetConfig("goal_calories")
	if err != nil {
		t.Fatal(err)
	}
	if got != "3500" {
		t.Errorf("goal_calories = %q, want %q", got, "3500")
	}
}

func TestConfig_SetOverwrites(t *testing.T) {
	db := testDB(t)

	if err := db.SetConfig("day_start_hour", "4"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetConfig("day_start_hour")
	if err != nil {
		t.Fatal(err)
	}
	if got != "4" {
		t.Errorf("day_start_hour = %q, want %q", got, "4")
	}
}

func TestConfig_MissingKeyIsEmpty(t *testing.T) {
	db := testDB(t)

	got, err := db.GetConfig("no_such_key")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("missing key = %q, want empty", got)
	}
}

func TestOpen_ReopenKeepsSeedOverrides(t *testing.T) {
	dbFile, err := os.CreateTemp("", "pantry-ledger-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetConfig("goal_protein", "180"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	// Reopening reruns the seed inserts; they must not clobber user values.
	db, err = Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	got, err := db.GetConfig("goal_protein")
	if err != nil {
		t.Fatal(err)
	}
	if got != "180" {
		t.Errorf("goal_protein after reopen = %q, want %q", got, "180")
	}
}

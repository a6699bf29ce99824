package db

import (
	"errors"
	"testing"

	"github.com/Extended3652/supplements/internal/model"
)

func mustCreate(t *testing.T, db *DB, f ItemFields) string {
	t.Helper()
	id, err := db.CreateItem(f)
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return id
}

func countRows(t *testing.T, db *DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func strp(s string) *string   { return &s }
func f64p(v float64) *float64 { return &v }
func boolp(b bool) *bool      { return &b }

func TestCreateItem(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{
		NameDisplay: "Vitamin D",
		Category:    model.CategorySupplement,
		Amount:      f64p(2000),
		Unit:        strp("IU"),
		TimeAM:      true,
	})

	item, dose, err := db.GetItem(id)
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}

	if item.NameDisplay != "Vitamin D" {
		t.Errorf("name = %q, want %q", item.NameDisplay, "Vitamin D")
	}
	if item.Status != model.StatusActive {
		t.Errorf("status = %q, want active", item.Status)
	}
	if item.StopDate != nil {
		t.Errorf("stop_date = %v, want nil", *item.StopDate)
	}

	if dose == nil {
		t.Fatal("expected a dose row")
	}
	if dose.Amount == nil || *dose.Amount != 2000 {
		t.Errorf("amount = %v, want 2000", dose.Amount)
	}
	if !dose.TimeAM || dose.TimeMidday || dose.TimePM {
		t.Errorf("time flags = %v/%v/%v, want true/false/false", dose.TimeAM, dose.TimeMidday, dose.TimePM)
	}
}

func TestCreateItem_AlwaysCreatesDose(t *testing.T) {
	db := setupTestDB(t)

	// No dose fields given — the dose row must still exist
	id := mustCreate(t, db, ItemFields{NameDisplay: "Aspirin", Category: model.CategoryOTC})

	if n := countRows(t, db, `SELECT COUNT(*) FROM doses WHERE item_id = ?`, id); n != 1 {
		t.Errorf("dose count = %d, want 1", n)
	}
}

func TestCreateItem_AppendsCreateHistory(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Zinc", Category: model.CategorySupplement})

	events, err := db.GetHistory(id, 0)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("history count = %d, want 1", len(events))
	}
	if events[0].Action != model.ActionCreate {
		t.Errorf("action = %q, want create", events[0].Action)
	}
	if events[0].Note == nil || *events[0].Note != "created item" {
		t.Errorf("note = %v, want %q", events[0].Note, "created item")
	}
}

func TestCreateItem_Validation(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name   string
		fields ItemFields
	}{
		{"empty name", ItemFields{NameDisplay: "", Category: model.CategoryRx}},
		{"blank name", ItemFields{NameDisplay: "   ", Category: model.CategoryRx}},
		{"bad category", ItemFields{NameDisplay: "X", Category: "vitamin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateItem(tt.fields)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	// Nothing should have been written
	if n := countRows(t, db, `SELECT COUNT(*) FROM items`); n != 0 {
		t.Errorf("item count = %d, want 0", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM history`); n != 0 {
		t.Errorf("history count = %d, want 0", n)
	}
}

func TestCreateItem_UniqueIDs(t *testing.T) {
	db := setupTestDB(t)

	a := mustCreate(t, db, ItemFields{NameDisplay: "A", Category: model.CategoryRx})
	b := mustCreate(t, db, ItemFields{NameDisplay: "B", Category: model.CategoryRx})
	if a == b {
		t.Errorf("two creates returned the same id: %s", a)
	}
}

func TestUpdateItem(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Magnesium", Category: model.CategorySupplement})

	err := db.UpdateItem(id, ItemFields{
		NameDisplay: "Magnesium Glycinate",
		Category:    model.CategorySupplement,
		Brand:       strp("Doctor's Best"),
		Amount:      f64p(400),
		Unit:        strp("mg"),
		TimePM:      true,
		WithFood:    boolp(true),
	})
	if err != nil {
		t.Fatalf("failed to update item: %v", err)
	}

	item, dose, err := db.GetItem(id)
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.NameDisplay != "Magnesium Glycinate" {
		t.Errorf("name = %q, want updated name", item.NameDisplay)
	}
	if item.Brand == nil || *item.Brand != "Doctor's Best" {
		t.Errorf("brand = %v, want Doctor's Best", item.Brand)
	}
	if dose == nil || dose.Amount == nil || *dose.Amount != 400 {
		t.Errorf("dose amount not updated: %+v", dose)
	}
	if dose.WithFood == nil || !*dose.WithFood {
		t.Errorf("with_food = %v, want true", dose.WithFood)
	}
	if !dose.TimePM {
		t.Error("time_pm should be set")
	}
}

func TestUpdateItem_NeverCreatesSecondDose(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Fish Oil", Category: model.CategorySupplement})

	for i := 0; i < 5; i++ {
		err := db.UpdateItem(id, ItemFields{
			NameDisplay: "Fish Oil",
			Category:    model.CategorySupplement,
			Amount:      f64p(float64(i + 1)),
		})
		if err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM doses WHERE item_id = ?`, id); n != 1 {
		t.Errorf("dose count = %d, want 1 after repeated updates", n)
	}
}

func TestUpdateItem_HealsMissingDose(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Iron", Category: model.CategorySupplement})

	// Simulate a lost dose row
	if _, err := db.Exec(`DELETE FROM doses WHERE item_id = ?`, id); err != nil {
		t.Fatalf("failed to delete dose: %v", err)
	}

	err := db.UpdateItem(id, ItemFields{NameDisplay: "Iron", Category: model.CategorySupplement, Amount: f64p(18)})
	if err != nil {
		t.Fatalf("failed to update item: %v", err)
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM doses WHERE item_id = ?`, id); n != 1 {
		t.Errorf("dose count = %d, want 1 after self-heal", n)
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	db := setupTestDB(t)

	err := db.UpdateItem("no-such-id", ItemFields{NameDisplay: "X", Category: model.CategoryRx})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// The failed update must not leave a dangling history row
	if n := countRows(t, db, `SELECT COUNT(*) FROM history`); n != 0 {
		t.Errorf("history count = %d, want 0", n)
	}
}

func TestUpdateItem_AppendsOneHistoryEvent(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "B12", Category: model.CategorySupplement})
	if err := db.UpdateItem(id, ItemFields{NameDisplay: "B12", Category: model.CategorySupplement}); err != nil {
		t.Fatalf("failed to update item: %v", err)
	}

	n := countRows(t, db, `SELECT COUNT(*) FROM history WHERE item_id = ? AND action = 'update'`, id)
	if n != 1 {
		t.Errorf("update history count = %d, want 1", n)
	}
}

func TestSetStatus(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Lisinopril", Category: model.CategoryRx})

	if err := db.SetStatus(id, model.StatusPaused); err != nil {
		t.Fatalf("failed to pause: %v", err)
	}
	item, _, err := db.GetItem(id)
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.Status != model.StatusPaused {
		t.Errorf("status = %q, want paused", item.Status)
	}
	if item.StopDate != nil {
		t.Errorf("stop_date = %v, want nil while paused", *item.StopDate)
	}
}

func TestSetStatus_StopSetsStopDate(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Melatonin", Category: model.CategorySupplement})

	if err := db.SetStatus(id, model.StatusStopped); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	item, _, err := db.GetItem(id)
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.Status != model.StatusStopped {
		t.Errorf("status = %q, want stopped", item.Status)
	}
	if item.StopDate == nil {
		t.Fatal("stop_date should be set when stopped")
	}
	if len(*item.StopDate) != len("2006-01-02") {
		t.Errorf("stop_date = %q, want YYYY-MM-DD", *item.StopDate)
	}
}

func TestSetStatus_ReactivateClearsStopDate(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Ibuprofen", Category: model.CategoryOTC})

	// stopped -> active is a permitted transition
	if err := db.SetStatus(id, model.StatusStopped); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	if err := db.SetStatus(id, model.StatusActive); err != nil {
		t.Fatalf("failed to reactivate: %v", err)
	}

	item, _, err := db.GetItem(id)
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.Status != model.StatusActive {
		t.Errorf("status = %q, want active", item.Status)
	}
	if item.StopDate != nil {
		t.Errorf("stop_date = %v, want nil after reactivating", *item.StopDate)
	}
}

func TestSetStatus_EveryCallAppendsHistory(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "CoQ10", Category: model.CategorySupplement})

	transitions := []model.Status{
		model.StatusPaused,
		model.StatusActive,
		model.StatusStopped,
		model.StatusActive,
		model.StatusStopped,
	}
	for _, s := range transitions {
		if err := db.SetStatus(id, s); err != nil {
			t.Fatalf("failed to set status %s: %v", s, err)
		}
	}

	n := countRows(t, db, `SELECT COUNT(*) FROM history WHERE item_id = ? AND action = 'status_change'`, id)
	if n != len(transitions) {
		t.Errorf("status_change count = %d, want %d", n, len(transitions))
	}

	// Last transition was to stopped, so stop_date must be set
	item, _, err := db.GetItem(id)
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.StopDate == nil {
		t.Error("stop_date should be set after final stop")
	}
}

func TestSetStatus_NoteRecordsNewStatus(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Zyrtec", Category: model.CategoryOTC})
	if err := db.SetStatus(id, model.StatusPaused); err != nil {
		t.Fatalf("failed to pause: %v", err)
	}

	events, err := db.GetHistory(id, 1)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("history count = %d, want 1", len(events))
	}
	if events[0].Note == nil || *events[0].Note != "status -> paused" {
		t.Errorf("note = %v, want %q", events[0].Note, "status -> paused")
	}
}

func TestSetStatus_Validation(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "X", Category: model.CategoryRx})

	err := db.SetStatus(id, "archived")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestSetStatus_NotFound(t *testing.T) {
	db := setupTestDB(t)

	err := db.SetStatus("no-such-id", model.StatusPaused)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, _, err := db.GetItem("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteItem_Cascades(t *testing.T) {
	db := setupTestDB(t)

	id := mustCreate(t, db, ItemFields{NameDisplay: "Old Med", Category: model.CategoryRx})
	if err := db.SetStatus(id, model.StatusStopped); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}

	if err := db.DeleteItem(id); err != nil {
		t.Fatalf("failed to delete item: %v", err)
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM items WHERE id = ?`, id); n != 0 {
		t.Errorf("item count = %d, want 0", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM doses WHERE item_id = ?`, id); n != 0 {
		t.Errorf("orphan dose count = %d, want 0", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM history WHERE item_id = ?`, id); n != 0 {
		t.Errorf("orphan history count = %d, want 0", n)
	}
}

func TestDeleteItem_NotFound(t *testing.T) {
	db := setupTestDB(t)

	if err := db.DeleteItem("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

package db

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Extended3652/supplements/internal/model"
)

func TestExportJSON(t *testing.T) {
	db := setupTestDB(t)

	mustCreate(t, db, ItemFields{
		NameDisplay: "Vitamin D",
		Category:    model.CategorySupplement,
		Amount:      f64p(2000),
		Unit:        strp("IU"),
		TimeAM:      true,
	})

	var buf bytes.Buffer
	if err := db.ExportJSON(&buf); err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	if records[0]["name"] != "Vitamin D" {
		t.Errorf("name = %v, want Vitamin D", records[0]["name"])
	}
	dose, ok := records[0]["dose"].(map[string]any)
	if !ok {
		t.Fatal("expected a dose object")
	}
	if dose["unit"] != "IU" {
		t.Errorf("unit = %v, want IU", dose["unit"])
	}
	if dose["time_am"] != true {
		t.Errorf("time_am = %v, want true", dose["time_am"])
	}
}

func TestExportCSV(t *testing.T) {
	db := setupTestDB(t)

	mustCreate(t, db, ItemFields{NameDisplay: "Aspirin", Category: model.CategoryOTC, Amount: f64p(81), Unit: strp("mg")})
	mustCreate(t, db, ItemFields{NameDisplay: "Zinc", Category: model.CategorySupplement})

	var buf bytes.Buffer
	if err := db.ExportCSV(&buf); err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	// Header plus one row per item
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want 3", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("first header column = %q, want id", rows[0][0])
	}
	if !strings.Contains(strings.Join(rows[1], ","), "Aspirin") {
		t.Errorf("first data row should be Aspirin (otc before supplement): %v", rows[1])
	}
}

func TestBackup(t *testing.T) {
	db := setupTestDB(t)

	mustCreate(t, db, ItemFields{NameDisplay: "Zinc", Category: model.CategorySupplement})

	dst := filepath.Join(t.TempDir(), "backup.db")
	if err := db.Backup(dst); err != nil {
		t.Fatalf("failed to back up: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("backup file is empty")
	}

	// The backup must be a working database with the data in it
	copyDB, err := Open(dst)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer func() { _ = copyDB.Close() }()

	rows, err := copyDB.ListByStatus(model.StatusActive)
	if err != nil {
		t.Fatalf("failed to list from backup: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("backup row count = %d, want 1", len(rows))
	}
}

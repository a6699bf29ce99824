package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Extended3652/supplements/internal/model"
)

// ItemFields is the editable field set shared by CreateItem and UpdateItem.
// It deliberately excludes status and the start/stop dates, which only
// change through SetStatus.
type ItemFields struct {
	NameDisplay  string
	Category     model.Category
	NameGeneric  *string
	Brand        *string
	Form         *string
	Route        *string
	Notes        *string
	Prescriber   *string
	Pharmacy     *string
	Amount       *float64
	Unit         *string
	TimeAM       bool
	TimeMidday   bool
	TimePM       bool
	WithFood     *bool
	Instructions *string
}

func (f *ItemFields) validate() error {
	if strings.TrimSpace(f.NameDisplay) == "" {
		return validationf("name is required")
	}
	if !f.Category.IsValid() {
		return validationf("invalid category: %s", f.Category)
	}
	return nil
}

// CreateItem inserts a new item with status=active, its dose row (always
// created, even when no dose fields are given), and a 'create' history
// event, all in one transaction. Returns the new item's ID.
func (db *DB) CreateItem(f ItemFields) (string, error) {
	if err := f.validate(); err != nil {
		return "", err
	}

	itemID := model.NewID()
	now := fmtTime(nowUTC())

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO items (
			id, name_display, name_generic, brand, category, form, route, notes,
			status, start_date, stop_date, prescriber, pharmacy, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'active', NULL, NULL, ?, ?, ?, ?)`,
		itemID, f.NameDisplay, f.NameGeneric, f.Brand, f.Category, f.Form, f.Route, f.Notes,
		f.Prescriber, f.Pharmacy, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert item: %w", err)
	}

	if err := insertDose(tx, itemID, &f, now); err != nil {
		return "", err
	}

	if err := appendHistory(tx, itemID, model.ActionCreate, "created item"); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return itemID, nil
}

// UpdateItem replaces the item's editable fields and upserts its dose row,
// self-healing a missing dose. Appends a single 'update' history event in
// the same transaction. Returns ErrNotFound for an unknown id.
func (db *DB) UpdateItem(itemID string, f ItemFields) error {
	if err := f.validate(); err != nil {
		return err
	}

	now := fmtTime(nowUTC())

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireItem(tx, itemID); err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE items
		SET name_display = ?, name_generic = ?, brand = ?, category = ?,
		    form = ?, route = ?, notes = ?, prescriber = ?, pharmacy = ?,
		    updated_at = ?
		WHERE id = ?`,
		f.NameDisplay, f.NameGeneric, f.Brand, f.Category,
		f.Form, f.Route, f.Notes, f.Prescriber, f.Pharmacy,
		now, itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	// Upsert keyed on the unique doses(item_id) index, so an item ends up
	// with exactly one dose row whether or not one existed before.
	_, err = tx.Exec(`
		INSERT INTO doses (
			id, item_id, amount, unit, time_am, time_midday, time_pm,
			with_food, instructions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			amount = excluded.amount,
			unit = excluded.unit,
			time_am = excluded.time_am,
			time_midday = excluded.time_midday,
			time_pm = excluded.time_pm,
			with_food = excluded.with_food,
			instructions = excluded.instructions,
			updated_at = excluded.updated_at`,
		model.NewID(), itemID, f.Amount, f.Unit, f.TimeAM, f.TimeMidday, f.TimePM,
		f.WithFood, f.Instructions, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dose: %w", err)
	}

	if err := appendHistory(tx, itemID, model.ActionUpdate, "updated item"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetStatus transitions an item to the given status. All transitions between
// the three states are permitted; there is no terminal state. stop_date is
// set to today's date when transitioning to stopped and cleared otherwise.
// Appends a 'status_change' history event in the same transaction.
func (db *DB) SetStatus(itemID string, status model.Status) error {
	if !status.IsValid() {
		return validationf("invalid status: %s", status)
	}

	now := nowUTC()
	var stopDate *string
	if status == model.StatusStopped {
		d := now.Format(dateLayout)
		stopDate = &d
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireItem(tx, itemID); err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE items SET status = ?, stop_date = ?, updated_at = ? WHERE id = ?`,
		status, stopDate, fmtTime(now), itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	if err := appendHistory(tx, itemID, model.ActionStatusChange, "status -> "+string(status)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetItem retrieves an item and its dose (nil if the dose row is missing).
func (db *DB) GetItem(itemID string) (*model.Item, *model.Dose, error) {
	rows, err := db.queryItemsWithDoses(`WHERE i.id = ?`, itemID)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, notFoundf(itemID)
	}
	return &rows[0].Item, rows[0].Dose, nil
}

// DeleteItem removes an item; its dose and history rows go with it via the
// cascade constraints.
func (db *DB) DeleteItem(itemID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireItem(tx, itemID); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// requireItem verifies the item exists inside the current transaction.
func requireItem(tx *sql.Tx, itemID string) error {
	var one int
	err := tx.QueryRow(`SELECT 1 FROM items WHERE id = ?`, itemID).Scan(&one)
	if err == sql.ErrNoRows {
		return notFoundf(itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}
	return nil
}

func insertDose(tx *sql.Tx, itemID string, f *ItemFields, now string) error {
	_, err := tx.Exec(`
		INSERT INTO doses (
			id, item_id, amount, unit, time_am, time_midday, time_pm,
			with_food, instructions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		model.NewID(), itemID, f.Amount, f.Unit, f.TimeAM, f.TimeMidday, f.TimePM,
		f.WithFood, f.Instructions, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dose: %w", err)
	}
	return nil
}

package db

import (
	"database/sql"
	"fmt"

	"github.com/Extended3652/supplements/internal/model"
)

// ItemWithDose pairs an item with its dose row. Dose is nil when the item
// has no dose record.
type ItemWithDose struct {
	Item model.Item
	Dose *model.Dose
}

const itemDoseColumns = `
	i.id, i.name_display, i.name_generic, i.brand, i.category, i.form, i.route, i.notes,
	i.status, i.start_date, i.stop_date, i.prescriber, i.pharmacy, i.created_at, i.updated_at,
	d.id, d.amount, d.unit, d.time_am, d.time_midday, d.time_pm,
	d.with_food, d.instructions, d.created_at, d.updated_at`

// ListByStatus returns items in the given status paired with their doses.
// Items without a dose row still appear, with a nil Dose. Ordering is a
// user-facing contract: prescriptions before OTC before supplements, then
// case-insensitive name, then id as a deterministic tiebreak.
func (db *DB) ListByStatus(status model.Status) ([]ItemWithDose, error) {
	if !status.IsValid() {
		return nil, validationf("invalid status: %s", status)
	}
	return db.queryItemsWithDoses(`WHERE i.status = ?`, status)
}

// ListAll returns every item regardless of status, in the same order as
// ListByStatus. Used by export.
func (db *DB) ListAll() ([]ItemWithDose, error) {
	return db.queryItemsWithDoses(``)
}

// StatusCounts returns how many items are in each lifecycle state.
func (db *DB) StatusCounts() (map[model.Status]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[model.Status]int{}
	for rows.Next() {
		var status model.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// queryItemsWithDoses runs the left-join query with an optional WHERE clause
// and scans the rows.
func (db *DB) queryItemsWithDoses(where string, args ...any) ([]ItemWithDose, error) {
	query := `SELECT ` + itemDoseColumns + `
		FROM items i
		LEFT JOIN doses d ON d.item_id = i.id
		` + where + `
		ORDER BY
			CASE i.category WHEN 'rx' THEN 1 WHEN 'otc' THEN 2 ELSE 3 END,
			lower(i.name_display) ASC,
			i.id ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ItemWithDose
	for rows.Next() {
		pair, err := scanItemWithDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}

func scanItemWithDose(rows *sql.Rows) (ItemWithDose, error) {
	var pair ItemWithDose
	item := &pair.Item

	var nameGeneric, brand, form, route, notes sql.NullString
	var startDate, stopDate, prescriber, pharmacy sql.NullString
	var createdAt, updatedAt string

	var doseID, doseUnit, doseInstructions sql.NullString
	var doseAmount sql.NullFloat64
	var doseAM, doseMidday, dosePM, doseWithFood sql.NullBool
	var doseCreatedAt, doseUpdatedAt sql.NullString

	err := rows.Scan(
		&item.ID, &item.NameDisplay, &nameGeneric, &brand, &item.Category,
		&form, &route, &notes, &item.Status, &startDate, &stopDate,
		&prescriber, &pharmacy, &createdAt, &updatedAt,
		&doseID, &doseAmount, &doseUnit, &doseAM, &doseMidday, &dosePM,
		&doseWithFood, &doseInstructions, &doseCreatedAt, &doseUpdatedAt,
	)
	if err != nil {
		return pair, fmt.Errorf("failed to scan item: %w", err)
	}

	item.NameGeneric = nullStr(nameGeneric)
	item.Brand = nullStr(brand)
	item.Form = nullStr(form)
	item.Route = nullStr(route)
	item.Notes = nullStr(notes)
	item.StartDate = nullStr(startDate)
	item.StopDate = nullStr(stopDate)
	item.Prescriber = nullStr(prescriber)
	item.Pharmacy = nullStr(pharmacy)
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return pair, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return pair, err
	}

	if doseID.Valid {
		dose := &model.Dose{
			ID:           doseID.String,
			ItemID:       item.ID,
			TimeAM:       doseAM.Valid && doseAM.Bool,
			TimeMidday:   doseMidday.Valid && doseMidday.Bool,
			TimePM:       dosePM.Valid && dosePM.Bool,
			Unit:         nullStr(doseUnit),
			Instructions: nullStr(doseInstructions),
		}
		if doseAmount.Valid {
			dose.Amount = &doseAmount.Float64
		}
		if doseWithFood.Valid {
			dose.WithFood = &doseWithFood.Bool
		}
		if dose.CreatedAt, err = parseTime(doseCreatedAt.String); err != nil {
			return pair, err
		}
		if dose.UpdatedAt, err = parseTime(doseUpdatedAt.String); err != nil {
			return pair, err
		}
		pair.Dose = dose
	}

	return pair, nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

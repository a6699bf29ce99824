package db

import (
	"database/sql"
	"fmt"

	"github.com/Extended3652/supplements/internal/model"
)

// DefaultHistoryLimit caps GetHistory when the caller passes limit <= 0.
const DefaultHistoryLimit = 200

// appendHistory writes one audit record inside the caller's transaction.
// This is the only code path that writes to the history table; every
// mutation commits together with exactly one of these.
func appendHistory(tx *sql.Tx, itemID string, action model.Action, note string) error {
	_, err := tx.Exec(`
		INSERT INTO history (id, ts, item_id, action, field, old_value, new_value, note)
		VALUES (?, ?, ?, ?, NULL, NULL, NULL, ?)`,
		model.NewID(), fmtTime(nowUTC()), itemID, action, note,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// GetHistory returns audit events newest first, truncated to limit.
// An empty itemID returns the global feed across all items. Events sharing
// a timestamp fall back to reverse insertion order (rowid) so the order is
// deterministic.
func (db *DB) GetHistory(itemID string, limit int) ([]model.HistoryEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `SELECT id, ts, item_id, action, field, old_value, new_value, note FROM history`
	args := []any{}
	if itemID != "" {
		query += ` WHERE item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY ts DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.HistoryEvent
	for rows.Next() {
		var ev model.HistoryEvent
		var ts string
		var field, oldValue, newValue, note sql.NullString
		if err := rows.Scan(&ev.ID, &ts, &ev.ItemID, &ev.Action, &field, &oldValue, &newValue, &note); err != nil {
			return nil, fmt.Errorf("failed to scan history event: %w", err)
		}
		if ev.TS, err = parseTime(ts); err != nil {
			return nil, err
		}
		ev.Field = nullStr(field)
		ev.OldValue = nullStr(oldValue)
		ev.NewValue = nullStr(newValue)
		ev.Note = nullStr(note)
		events = append(events, ev)
	}
	return events, rows.Err()
}

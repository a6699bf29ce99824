package db

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// exportRecord is the serialized shape of one item and its dose.
type exportRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	GenericName *string      `json:"generic_name,omitempty"`
	Brand       *string      `json:"brand,omitempty"`
	Category    string       `json:"category"`
	Form        *string      `json:"form,omitempty"`
	Route       *string      `json:"route,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	Status      string       `json:"status"`
	StartDate   *string      `json:"start_date,omitempty"`
	StopDate    *string      `json:"stop_date,omitempty"`
	Prescriber  *string      `json:"prescriber,omitempty"`
	Pharmacy    *string      `json:"pharmacy,omitempty"`
	Dose        *exportDose  `json:"dose,omitempty"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

type exportDose struct {
	Amount       *float64 `json:"amount,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	TimeAM       bool     `json:"time_am"`
	TimeMidday   bool     `json:"time_midday"`
	TimePM       bool     `json:"time_pm"`
	WithFood     *bool    `json:"with_food,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
}

func toExportRecords(pairs []ItemWithDose) []exportRecord {
	records := make([]exportRecord, 0, len(pairs))
	for _, pair := range pairs {
		rec := exportRecord{
			ID:          pair.Item.ID,
			Name:        pair.Item.NameDisplay,
			GenericName: pair.Item.NameGeneric,
			Brand:       pair.Item.Brand,
			Category:    string(pair.Item.Category),
			Form:        pair.Item.Form,
			Route:       pair.Item.Route,
			Notes:       pair.Item.Notes,
			Status:      string(pair.Item.Status),
			StartDate:   pair.Item.StartDate,
			StopDate:    pair.Item.StopDate,
			Prescriber:  pair.Item.Prescriber,
			Pharmacy:    pair.Item.Pharmacy,
			CreatedAt:   fmtTime(pair.Item.CreatedAt),
			UpdatedAt:   fmtTime(pair.Item.UpdatedAt),
		}
		if d := pair.Dose; d != nil {
			rec.Dose = &exportDose{
				Amount:       d.Amount,
				Unit:         d.Unit,
				TimeAM:       d.TimeAM,
				TimeMidday:   d.TimeMidday,
				TimePM:       d.TimePM,
				WithFood:     d.WithFood,
				Instructions: d.Instructions,
			}
		}
		records = append(records, rec)
	}
	return records
}

// ExportJSON writes every item with its dose as indented JSON.
func (db *DB) ExportJSON(w io.Writer) error {
	pairs, err := db.ListAll()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toExportRecords(pairs)); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// ExportCSV writes every item with its dose as one CSV row per item.
func (db *DB) ExportCSV(w io.Writer) error {
	pairs, err := db.ListAll()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"id", "name", "generic_name", "brand", "category", "form", "route",
		"status", "start_date", "stop_date", "prescriber", "pharmacy",
		"amount", "unit", "time_am", "time_midday", "time_pm", "with_food",
		"instructions", "notes", "created_at", "updated_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, rec := range toExportRecords(pairs) {
		row := []string{
			rec.ID, rec.Name, deref(rec.GenericName), deref(rec.Brand),
			rec.Category, deref(rec.Form), deref(rec.Route),
			rec.Status, deref(rec.StartDate), deref(rec.StopDate),
			deref(rec.Prescriber), deref(rec.Pharmacy),
		}
		if d := rec.Dose; d != nil {
			amount := ""
			if d.Amount != nil {
				amount = strconv.FormatFloat(*d.Amount, 'g', -1, 64)
			}
			withFood := ""
			if d.WithFood != nil {
				withFood = strconv.FormatBool(*d.WithFood)
			}
			row = append(row,
				amount, deref(d.Unit),
				strconv.FormatBool(d.TimeAM), strconv.FormatBool(d.TimeMidday), strconv.FormatBool(d.TimePM),
				withFood, deref(d.Instructions),
			)
		} else {
			row = append(row, "", "", "false", "false", "false", "", "")
		}
		row = append(row, deref(rec.Notes), rec.CreatedAt, rec.UpdatedAt)

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Backup writes a consistent snapshot of the database to dst using
// VACUUM INTO, which is safe against the live connection.
func (db *DB) Backup(dst string) error {
	if _, err := db.Exec(`VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

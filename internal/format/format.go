// Package format derives display-ready rows from fetched entities.
// Everything here is pure: no persistence access, no side effects.
package format

import (
	"strconv"
	"strings"

	"github.com/Extended3652/supplements/internal/model"
)

// Row is one display line for an item and its dose.
type Row struct {
	ID       string
	Name     string
	Category string
	Dose     string
	Schedule string
	Brand    string
	Notes    string
}

// ItemRow builds the display row for an item. dose may be nil.
func ItemRow(item model.Item, dose *model.Dose) Row {
	r := Row{
		ID:       item.ID,
		Name:     item.NameDisplay,
		Category: string(item.Category),
		Dose:     DoseLabel(dose),
		Schedule: ScheduleLabel(dose),
	}
	if item.Brand != nil {
		r.Brand = *item.Brand
	}
	if item.Notes != nil {
		r.Notes = *item.Notes
	}
	return r
}

// ScheduleLabel joins the set time-of-day flags, e.g. "AM, PM".
// Empty when no flag is set or the dose is absent.
func ScheduleLabel(dose *model.Dose) string {
	if dose == nil {
		return ""
	}
	var parts []string
	if dose.TimeAM {
		parts = append(parts, "AM")
	}
	if dose.TimeMidday {
		parts = append(parts, "Midday")
	}
	if dose.TimePM {
		parts = append(parts, "PM")
	}
	return strings.Join(parts, ", ")
}

// DoseLabel renders amount and unit: "2000 IU", "2000", "IU", or "".
func DoseLabel(dose *model.Dose) string {
	if dose == nil {
		return ""
	}
	switch {
	case dose.Amount != nil && dose.Unit != nil && *dose.Unit != "":
		return Amount(*dose.Amount) + " " + *dose.Unit
	case dose.Amount != nil:
		return Amount(*dose.Amount)
	case dose.Unit != nil:
		return *dose.Unit
	}
	return ""
}

// Amount renders a dose quantity compactly: no trailing zeros, no
// thousands separators.
func Amount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a tracked item.
type Category string

const (
	CategoryRx         Category = "rx"
	CategoryOTC        Category = "otc"
	CategorySupplement Category = "supplement"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryRx, CategoryOTC, CategorySupplement:
		return true
	}
	return false
}

// Rank orders categories for display: prescriptions first, supplements last.
func (c Category) Rank() int {
	switch c {
	case CategoryRx:
		return 1
	case CategoryOTC:
		return 2
	default:
		return 3
	}
}

// Status is the lifecycle state of an item.
type Status string

const (
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusStopped:
		return true
	}
	return false
}

// Action is the kind of mutation a history event records.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionStatusChange Action = "status_change"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionStatusChange:
		return true
	}
	return false
}

// Item is one tracked medication or supplement.
type Item struct {
	ID          string
	NameDisplay string
	NameGeneric *string
	Brand       *string
	Category    Category
	Form        *string
	Route       *string
	Notes       *string
	Status      Status
	StartDate   *string // YYYY-MM-DD
	StopDate    *string // YYYY-MM-DD, set iff Status == stopped
	Prescriber  *string
	Pharmacy    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Dose is the dosing schedule attached to one item. Each item owns at most
// one dose row; deleting the item cascades to it.
type Dose struct {
	ID           string
	ItemID       string
	Amount       *float64
	Unit         *string
	TimeAM       bool
	TimeMidday   bool
	TimePM       bool
	WithFood     *bool
	Instructions *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HistoryEvent is an immutable audit record of one mutation to an item.
// History rows are only ever appended, never updated or deleted, except by
// cascade when the owning item is deleted.
type HistoryEvent struct {
	ID       string
	TS       time.Time
	ItemID   string
	Action   Action
	Field    *string
	OldValue *string
	NewValue *string
	Note     *string
}

// NewID returns a fresh identifier for items, doses, and history rows.
func NewID() string {
	return uuid.NewString()
}

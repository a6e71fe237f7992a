package models

import "time"

// SlotFill reports staffing for one slot on one date.
type SlotFill struct {
	SlotID   string `json:"slotId"`
	Label    string `json:"label"`
	Filled   int    `json:"filled"`
	Required int    `json:"required"`
	Shortage int    `json:"shortage"`
}

// DayFill aggregates slot staffing for one date. TotalFilled counts each
// slot at most up to its requirement, so overbooking never masks a
// shortage elsewhere.
type DayFill struct {
	Date          string     `json:"date"`
	Slots         []SlotFill `json:"slots"`
	TotalFilled   int        `json:"totalFilled"`
	TotalRequired int        `json:"totalRequired"`
}

// CalendarStats summarises staffing across the whole operation period.
type CalendarStats struct {
	TotalSlots    int `json:"totalSlots"`
	FilledSlots   int `json:"filledSlots"`
	ShortageSlots int `json:"shortageSlots"`
}

// ExportBundle is the full JSON dump of schedule data.
type ExportBundle struct {
	ExportedAt   time.Time         `json:"exportedAt"`
	Shifts       []ShiftSubmission `json:"shifts"`
	ClockRecords []ClockRecord     `json:"clockRecords"`
}

// Export bundle job states.
const (
	BundleStatusPending   = "pending"
	BundleStatusCompleted = "completed"
	BundleStatusFailed    = "failed"
)

// ExportBundleJob tracks an asynchronous bundle generation.
type ExportBundleJob struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	FilePath    string     `json:"-"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	RequestedAt time.Time  `json:"requestedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

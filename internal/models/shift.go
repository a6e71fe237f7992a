package models

import "time"

// ShiftSubmission is one staff member's availability entry for a slot.
type ShiftSubmission struct {
	ID        string    `db:"id" json:"id"`
	Date      string    `db:"date" json:"date"`
	StaffID   string    `db:"staff_id" json:"staffId"`
	StaffName string    `db:"staff_name" json:"staffName"`
	SlotID    string    `db:"slot_id" json:"slotId"`
	WeekKey   string    `db:"week_key" json:"weekKey"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StaffStats summarises one staff member's activity.
type StaffStats struct {
	StaffID    string `json:"staffId"`
	StaffName  string `json:"staffName"`
	ShiftCount int    `json:"shiftCount"`
	ClockCount int    `json:"clockCount"`
}

package models

import (
	"strings"
	"time"
)

// Clock punch directions.
const (
	ClockTypeIn  = "in"
	ClockTypeOut = "out"
)

// Punch statuses assigned at record time.
const (
	StatusNormal     = "normal"
	StatusLate       = "late"
	StatusEarlyLeave = "early_leave"
)

// ClockRecord is a single punch event.
type ClockRecord struct {
	ID        string    `db:"id" json:"id"`
	Date      string    `db:"date" json:"date"`
	StaffID   string    `db:"staff_id" json:"staffId"`
	StaffName string    `db:"staff_name" json:"staffName"`
	SlotID    string    `db:"slot_id" json:"slotId"`
	SlotLabel string    `db:"slot_label" json:"slotLabel"`
	ClockType string    `db:"clock_type" json:"clockType"`
	Time      string    `db:"time" json:"time"`
	Status    string    `db:"status" json:"status"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// NormalizeClockType maps loose punch type values onto the in/out
// constants. Records from older exports carry "IN"/"OUT" or blank values.
func NormalizeClockType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ClockTypeIn:
		return ClockTypeIn
	case ClockTypeOut:
		return ClockTypeOut
	default:
		return ""
	}
}

// AttendanceRow pairs the in and out punches for one staff member, date
// and slot.
type AttendanceRow struct {
	Date      string `json:"date"`
	StaffID   string `json:"staffId"`
	StaffName string `json:"staffName"`
	SlotID    string `json:"slotId"`
	SlotLabel string `json:"slotLabel"`
	InTime    string `json:"inTime"`
	OutTime   string `json:"outTime"`
	InStatus  string `json:"inStatus"`
	OutStatus string `json:"outStatus"`
}

// AttendanceSummary aggregates reconciled rows.
type AttendanceSummary struct {
	RowCount        int `json:"rowCount"`
	CompletedCount  int `json:"completedCount"`
	TotalMinutes    int `json:"totalMinutes"`
	LateCount       int `json:"lateCount"`
	EarlyLeaveCount int `json:"earlyLeaveCount"`
}

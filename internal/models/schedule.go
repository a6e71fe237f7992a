package models

// ShiftSlot describes a bookable time slot on the schedule.
type ShiftSlot struct {
	ID            string `db:"slot_id" json:"id"`
	Label         string `db:"label" json:"label"`
	Start         string `db:"start_time" json:"start"`
	End           string `db:"end_time" json:"end"`
	RequiredStaff int    `db:"required_staff" json:"requiredStaff"`
}

// DateSlotConfig maps a calendar date to its slot list. A key holding an
// empty slice is an explicit deletion and is distinct from an absent key.
type DateSlotConfig map[string][]ShiftSlot

// OperatingDate is one bookable day on the calendar.
type OperatingDate struct {
	Date         string `json:"date"`
	Weekday      string `json:"weekday"`
	HasMorning   bool   `json:"hasMorning"`
	HasAfternoon bool   `json:"hasAfternoon"`
}

// OperationPeriod is the inclusive first and last operating date.
type OperationPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Week groups operating dates under a Monday-keyed label such as "1/19週".
type Week struct {
	WeekKey string   `json:"weekKey"`
	Label   string   `json:"label"`
	Dates   []string `json:"dates"`
}

// WeeklyViolation reports a staff member with more than the allowed number
// of submissions inside one week.
type WeeklyViolation struct {
	WeekKey     string            `json:"weekKey"`
	StaffID     string            `json:"staffId"`
	StaffName   string            `json:"staffName"`
	Count       int               `json:"count"`
	Submissions []ShiftSubmission `json:"submissions"`
}

// WeekSummary aggregates submission activity for one week.
type WeekSummary struct {
	WeekKey     string         `json:"weekKey"`
	Label       string         `json:"label"`
	MemberCount int            `json:"memberCount"`
	DateCounts  map[string]int `json:"dateCounts"`
}

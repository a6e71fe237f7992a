package dto

// PunchRequest records a clock-in or clock-out.
type PunchRequest struct {
	StaffID   string `json:"staffId" binding:"required" validate:"required"`
	StaffName string `json:"staffName" binding:"required" validate:"required"`
	SlotID    string `json:"slotId"`
	// ClockType is normalised case-insensitively; "IN" and "in" both work.
	ClockType string `json:"clockType" binding:"required" validate:"required"`
	// Date and Time default to the server clock when omitted; kiosks
	// running offline replay punches with explicit values.
	Date string `json:"date" validate:"omitempty,caldate"`
	Time string `json:"time" validate:"omitempty,clocktime"`
}

// RecordFilter narrows clock record queries.
type RecordFilter struct {
	Date    string `form:"date" validate:"omitempty,caldate"`
	StaffID string `form:"staffId"`
}

package dto

// CreateShiftRequest submits availability for one slot.
type CreateShiftRequest struct {
	Date      string `json:"date" binding:"required" validate:"required,caldate"`
	StaffID   string `json:"staffId" binding:"required" validate:"required"`
	StaffName string `json:"staffName" binding:"required" validate:"required"`
	SlotID    string `json:"slotId" binding:"required" validate:"required"`
}

// CreateShiftResponse echoes the stored submission and any weekly limit
// warning triggered by it.
type CreateShiftResponse struct {
	ID           string `json:"id"`
	WeekKey      string `json:"weekKey"`
	WeeklyCount  int    `json:"weeklyCount"`
	OverLimit    bool   `json:"overLimit"`
	LimitPerWeek int    `json:"limitPerWeek"`
}

package dto

// SaveSlotRequest creates or updates one slot on a date's custom
// configuration. An empty SlotID asks the server to assign one.
type SaveSlotRequest struct {
	Date          string `json:"date" binding:"required" validate:"required,caldate"`
	SlotID        string `json:"slotId"`
	Label         string `json:"label" binding:"required" validate:"required"`
	Start         string `json:"start" binding:"required" validate:"required,clocktime"`
	End           string `json:"end" binding:"required" validate:"required,clocktime"`
	RequiredStaff int    `json:"requiredStaff" binding:"required" validate:"required,min=1,max=10"`
}

// ImportRow is one line of a bulk slot import.
type ImportRow struct {
	Date          string `json:"date"`
	Label         string `json:"label"`
	Start         string `json:"start"`
	End           string `json:"end"`
	RequiredStaff int    `json:"requiredStaff"`
}

// ImportRequest carries the parsed rows of an uploaded file.
type ImportRequest struct {
	Rows []ImportRow `json:"rows" binding:"required"`
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

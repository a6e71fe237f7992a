package dto

// ImportBundleRequest restores a previously exported data bundle.
type ImportBundleRequest struct {
	Shifts       []ImportedShift       `json:"shifts"`
	ClockRecords []ImportedClockRecord `json:"clockRecords"`
}

// ImportedShift tolerates older export field names.
type ImportedShift struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StaffID   string `json:"staffId"`
	StaffName string `json:"staffName"`
	SlotID    string `json:"slotId"`
}

// ImportedClockRecord tolerates older export field names: "type" for the
// punch direction and "name" for the staff name.
type ImportedClockRecord struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	StaffID    string `json:"staffId"`
	StaffName  string `json:"staffName"`
	LegacyName string `json:"name"`
	SlotID     string `json:"slotId"`
	SlotLabel  string `json:"slotLabel"`
	ClockType  string `json:"clockType"`
	LegacyType string `json:"type"`
	Time       string `json:"time"`
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
}

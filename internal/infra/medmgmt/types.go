package medmgmt

import "time"

type MedicationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Dosage      string    `json:"dosage"`
	DosesPerDay int       `json:"doses_per_day"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date,omitempty"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MedicationsResponse struct {
	Medications []MedicationResponse `json:"medications"`
	Count       int                  `json:"count"`
}

type MarkTakenRequest struct {
	DoseTime time.Time `json:"dose_time"`
	TakenAt  time.Time `json:"taken_at"`
	Late     bool      `json:"late"`
}

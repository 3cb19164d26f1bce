package records

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is a staff-entered note of a diagnosis and its treatment.
type MedicalRecord struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Condition string    `json:"condition"`
	Treatment string    `json:"treatment"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Condition string    `json:"condition"`
	Treatment string    `json:"treatment"`
}

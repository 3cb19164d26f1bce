package catalog

import (
	"time"

	"github.com/google/uuid"
)

type Hospital struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	FeesRange string    `json:"fees_range"`
	CreatedAt time.Time `json:"created_at"`
}

type Doctor struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Specialty  string    `json:"specialty"`
	Experience int       `json:"experience"`
	Fees       float64   `json:"fees"`
	HospitalID uuid.UUID `json:"hospital_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DoctorFilter narrows ListDoctors. Zero fields match everything;
// HospitalName matches case-insensitively.
type DoctorFilter struct {
	HospitalID   uuid.UUID
	HospitalName string
}

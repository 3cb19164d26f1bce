package booking

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusNoShow    = "no-show"
)

var validStatuses = map[string]bool{
	StatusConfirmed: true, StatusCompleted: true, StatusNoShow: true,
}

type Appointment struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	HospitalID    uuid.UUID `json:"hospital_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Reason        string    `json:"reason"`
	PaymentMethod string    `json:"payment_method"`
	IsPaid        bool      `json:"is_paid"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BookingForm is what a patient fills in before paying.
type BookingForm struct {
	DoctorID   uuid.UUID `json:"doctor_id" form:"doctor_id"`
	HospitalID uuid.UUID `json:"hospital_id" form:"hospital_id"`
	Name       string    `json:"name" form:"name"`
	Phone      string    `json:"phone" form:"phone"`
	Date       string    `json:"date" form:"date"`
	Time       string    `json:"time" form:"time"`
	Reason     string    `json:"reason" form:"reason"`
}

type PaymentForm struct {
	BookingToken  string `json:"booking_token,omitempty" form:"booking_token"`
	PaymentMethod string `json:"payment_method" form:"payment_method"`
	CardNumber    string `json:"card_number,omitempty" form:"card_number"`
	Expiry        string `json:"expiry,omitempty" form:"expiry"`
	CVV           string `json:"cvv,omitempty" form:"cvv"`
}

// BookRequest books and pays in one call.
type BookRequest struct {
	BookingForm
	PaymentForm
}

type RescheduleRequest struct {
	Date string `json:"date" form:"date"`
	Time string `json:"time" form:"time"`
}

// AppointmentUpdate carries a staff edit. Nil fields are left unchanged.
type AppointmentUpdate struct {
	DoctorID   *uuid.UUID `json:"doctor_id,omitempty"`
	HospitalID *uuid.UUID `json:"hospital_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	Date       *string    `json:"date,omitempty"`
	Time       *string    `json:"time,omitempty"`
	Reason     *string    `json:"reason,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

// Schedule is a patient's appointments split around today.
type Schedule struct {
	Upcoming []*Appointment `json:"upcoming"`
	Past     []*Appointment `json:"past"`
}

package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
)

var (
	ErrHospitalNotFound = apperr.NotFound("Hospital not found")
	ErrDoctorNotFound   = apperr.NotFound("Doctor not found")
	// ErrDoctorNotAtHospital is returned when a booking names a doctor who
	// does not practise at the chosen hospital.
	ErrDoctorNotAtHospital = apperr.Invalid("The selected doctor does not work at the selected hospital.")
)

type Service struct {
	hospitals HospitalRepository
	doctors   DoctorRepository
}

func NewService(hospitals HospitalRepository, doctors DoctorRepository) *Service {
	return &Service{hospitals: hospitals, doctors: doctors}
}

// -- Hospital --

func validateHospital(h *Hospital) error {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return apperr.Invalid("name is required")
	}
	return nil
}

func (s *Service) CreateHospital(ctx context.Context, h *Hospital) error {
	if err := validateHospital(h); err != nil {
		return err
	}
	return s.hospitals.Create(ctx, h)
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

func (s *Service) UpdateHospital(ctx context.Context, h *Hospital) error {
	if err := validateHospital(h); err != nil {
		return err
	}
	return s.hospitals.Update(ctx, h)
}

func (s *Service) DeleteHospital(ctx context.Context, id uuid.UUID) error {
	return s.hospitals.Delete(ctx, id)
}

func (s *Service) ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.List(ctx, limit, offset)
}

// -- Doctor --

func (s *Service) validateDoctor(ctx context.Context, d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apperr.Invalid("name is required")
	}
	if d.Experience < 0 {
		return apperr.Invalid("experience cannot be negative")
	}
	if d.Fees <= 0 {
		return apperr.Invalid("fees must be positive")
	}
	if d.HospitalID == uuid.Nil {
		return apperr.Invalid("hospital_id is required")
	}
	if _, err := s.hospitals.GetByID(ctx, d.HospitalID); err != nil {
		return err
	}
	return nil
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := s.validateDoctor(ctx, d); err != nil {
		return err
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if err := s.validateDoctor(ctx, d); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	f.HospitalName = strings.TrimSpace(f.HospitalName)
	return s.doctors.List(ctx, f, limit, offset)
}

// DoctorAt checks that doctorID practises at hospitalID.
func (s *Service) DoctorAt(ctx context.Context, doctorID, hospitalID uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if d.HospitalID != hospitalID {
		return nil, ErrDoctorNotAtHospital
	}
	return d, nil
}

package records

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/account"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
)

var (
	ErrNotFound        = apperr.NotFound("Medical record not found")
	ErrPatientRequired = apperr.Invalid("patient_id is required")
	ErrConditionEmpty  = apperr.Invalid("condition is required")
	ErrDateFormat      = apperr.Invalid("Invalid date format. Use YYYY-MM-DD.")
)

// PatientDirectory confirms that a record's patient exists.
type PatientDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*account.User, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
}

func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*MedicalRecord, error) {
	if req.PatientID == uuid.Nil {
		return nil, ErrPatientRequired
	}
	m := &MedicalRecord{
		PatientID: req.PatientID,
		Condition: strings.TrimSpace(req.Condition),
		Treatment: strings.TrimSpace(req.Treatment),
	}
	if m.Condition == "" {
		return nil, ErrConditionEmpty
	}
	d, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return nil, ErrDateFormat
	}
	m.Date = d.Format("2006-01-02")

	if _, err := s.patients.GetUser(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// ListForPatient returns patientID's records, latest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

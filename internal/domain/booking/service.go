package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/catalog"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/kv"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/websocket"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	ErrNotFound            = apperr.NotFound("Appointment not found")
	ErrNotFoundOrForbidden = apperr.NotFound("Appointment not found or you don't have permission")
	ErrPastDate            = apperr.Invalid("Appointment date must be in the future.")
	ErrPastReschedule      = apperr.Invalid("Rescheduled appointment must be in the future.")
	ErrPhone               = apperr.Invalid("Phone number must be exactly 10 digits.")
	ErrDateFormat          = apperr.Invalid("Invalid date format. Use YYYY-MM-DD.")
	ErrTimeFormat          = apperr.Invalid("Invalid time format. Use HH:MM.")
)

// DoctorDirectory resolves the doctor a booking names.
type DoctorDirectory interface {
	DoctorAt(ctx context.Context, doctorID, hospitalID uuid.UUID) (*catalog.Doctor, error)
}

type Service struct {
	repo       Repository
	drafts     kv.Store
	doctors    DoctorDirectory
	events     websocket.EventPublisher
	stagingTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

func NewService(repo Repository, drafts kv.Store, doctors DoctorDirectory, stagingTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		drafts:     drafts,
		doctors:    doctors,
		stagingTTL: stagingTTL,
		now:        time.Now,
		logger:     logger.With().Str("component", "booking").Logger(),
	}
}

// SetPublisher sends appointment events to pub.
func (s *Service) SetPublisher(pub websocket.EventPublisher) {
	s.events = pub
}

func (s *Service) today() string {
	return s.now().Format(dateLayout)
}

// normalizeDate parses a YYYY-MM-DD date and reformats it so that string
// comparison orders dates.
func normalizeDate(v string) (string, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return "", ErrDateFormat
	}
	return t.Format(dateLayout), nil
}

func normalizeTime(v string) (string, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(v))
	if err != nil {
		return "", ErrTimeFormat
	}
	return t.Format(timeLayout), nil
}

// normalizePhone drops every non-digit and requires ten digits.
func normalizePhone(v string) (string, error) {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 10 {
		return "", ErrPhone
	}
	return b.String(), nil
}

func (s *Service) futureDate(v string, pastErr error) (string, error) {
	d, err := normalizeDate(v)
	if err != nil {
		return "", err
	}
	if d <= s.today() {
		return "", pastErr
	}
	return d, nil
}

func (s *Service) validateForm(ctx context.Context, f *BookingForm) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Reason = strings.TrimSpace(f.Reason)
	switch {
	case f.DoctorID == uuid.Nil:
		return apperr.Invalid("doctor_id is required")
	case f.HospitalID == uuid.Nil:
		return apperr.Invalid("hospital_id is required")
	case f.Name == "":
		return apperr.Invalid("name is required")
	case strings.TrimSpace(f.Phone) == "":
		return apperr.Invalid("phone is required")
	case strings.TrimSpace(f.Date) == "":
		return apperr.Invalid("date is required")
	case strings.TrimSpace(f.Time) == "":
		return apperr.Invalid("time is required")
	case f.Reason == "":
		return apperr.Invalid("reason is required")
	}

	var err error
	if f.Date, err = s.futureDate(f.Date, ErrPastDate); err != nil {
		return err
	}
	if f.Time, err = normalizeTime(f.Time); err != nil {
		return err
	}
	if f.Phone, err = normalizePhone(f.Phone); err != nil {
		return err
	}
	if _, err := s.doctors.DoctorAt(ctx, f.DoctorID, f.HospitalID); err != nil {
		return err
	}
	return nil
}

func (s *Service) publish(ctx context.Context, a *Appointment, eventType string) {
	if s.events == nil {
		return
	}
	evt := websocket.NewUserEvent(a.PatientID, eventType, "appointment", a.ID, a)
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Msg("publish event")
	}
}

// Get returns an appointment its owner or staff may see.
func (s *Service) Get(ctx context.Context, callerID uuid.UUID, staff bool, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != callerID && !staff {
		return nil, ErrNotFound
	}
	return a, nil
}

// MyAppointments splits patientID's appointments into upcoming (today and
// later, soonest first) and past (latest first).
func (s *Service) MyAppointments(ctx context.Context, patientID uuid.UUID) (*Schedule, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	sched := &Schedule{Upcoming: []*Appointment{}, Past: []*Appointment{}}
	for _, a := range items {
		if a.Date >= today {
			sched.Upcoming = append(sched.Upcoming, a)
		} else {
			sched.Past = append(sched.Past, a)
		}
	}
	sort.Slice(sched.Upcoming, func(i, j int) bool { return slotKey(sched.Upcoming[i]) < slotKey(sched.Upcoming[j]) })
	sort.Slice(sched.Past, func(i, j int) bool { return slotKey(sched.Past[i]) > slotKey(sched.Past[j]) })
	return sched, nil
}

func slotKey(a *Appointment) string {
	return a.Date + " " + a.Time
}

// ownedBy loads an appointment the caller may modify. Missing and foreign
// appointments give the same error.
func (s *Service) ownedBy(ctx context.Context, id, callerID uuid.UUID, staff bool) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, err
	}
	if a.PatientID != callerID && !staff {
		return nil, ErrNotFoundOrForbidden
	}
	cp := *a
	return &cp, nil
}

// Reschedule moves an owner's appointment to a later date and time.
func (s *Service) Reschedule(ctx context.Context, patientID, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	a, err := s.ownedBy(ctx, id, patientID, false)
	if err != nil {
		return nil, err
	}
	date, err := s.futureDate(req.Date, ErrPastReschedule)
	if err != nil {
		return nil, err
	}
	tm, err := normalizeTime(req.Time)
	if err != nil {
		return nil, err
	}
	a.Date, a.Time = date, tm
	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}
	s.publish(ctx, a, "appointment.rescheduled")
	return a, nil
}

// Cancel deletes an appointment. Only its owner or staff may cancel it.
func (s *Service) Cancel(ctx context.Context, callerID uuid.UUID, staff bool, id uuid.UUID) error {
	a, err := s.ownedBy(ctx, id, callerID, staff)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	s.publish(ctx, a, "appointment.cancelled")
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Update applies a staff edit. The owner and payment fields cannot change.
// A changed date must still be in the future.
func (s *Service) Update(ctx context.Context, id uuid.UUID, u AppointmentUpdate) (*Appointment, error) {
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *stored
	a := &cp

	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return nil, apperr.Invalid("name is required")
		}
		a.Name = strings.TrimSpace(*u.Name)
	}
	if u.Reason != nil {
		if strings.TrimSpace(*u.Reason) == "" {
			return nil, apperr.Invalid("reason is required")
		}
		a.Reason = strings.TrimSpace(*u.Reason)
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
	if a.Phone, err = normalizePhone(a.Phone); err != nil {
		return nil, err
	}
	if u.Date != nil {
		date, err := normalizeDate(*u.Date)
		if err != nil {
			return nil, err
		}
		if date != a.Date {
			if date, err = s.futureDate(date, ErrPastDate); err != nil {
				return nil, err
			}
			a.Date = date
		}
	}
	if u.Time != nil {
		if a.Time, err = normalizeTime(*u.Time); err != nil {
			return nil, err
		}
	}
	if u.Status != nil {
		if !validStatuses[*u.Status] {
			return nil, apperr.Invalidf("invalid status: %s", *u.Status)
		}
		a.Status = *u.Status
	}
	if u.DoctorID != nil || u.HospitalID != nil {
		if u.DoctorID != nil {
			a.DoctorID = *u.DoctorID
		}
		if u.HospitalID != nil {
			a.HospitalID = *u.HospitalID
		}
		if _, err := s.doctors.DoctorAt(ctx, a.DoctorID, a.HospitalID); err != nil {
			return nil, err
		}
	}

	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return a, nil
}

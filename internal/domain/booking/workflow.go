package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
)

// State is the position of a booking in the staging workflow.
type State string

const (
	StateDraft           State = "draft"
	StateAwaitingPayment State = "awaiting_payment"
	StateConfirmed       State = "confirmed"
	StateCancelled       State = "cancelled"
)

var transitions = map[State][]State{
	StateDraft:           {StateAwaitingPayment, StateCancelled},
	StateAwaitingPayment: {StateConfirmed, StateCancelled},
}

// CanTransition reports whether a booking may move from one state to another.
// Confirmed and cancelled are terminal.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var ErrNoStagedBooking = apperr.Invalid("You must book an appointment before proceeding to payment.")

// Draft is a validated booking waiting for payment. It lives in the
// staging store under its token, never in the appointments table.
type Draft struct {
	Token     string      `json:"token"`
	PatientID uuid.UUID   `json:"patient_id"`
	Form      BookingForm `json:"form"`
	State     State       `json:"state"`
	StagedAt  time.Time   `json:"staged_at"`
}

func (d *Draft) transition(to State) error {
	if !CanTransition(d.State, to) {
		return fmt.Errorf("booking %s: cannot move from %s to %s", d.Token, d.State, to)
	}
	d.State = to
	return nil
}

func draftKey(token string) string {
	return "booking:" + token
}

// Stage validates form and parks it in the staging store. Nothing is staged
// when validation fails.
func (s *Service) Stage(ctx context.Context, patientID uuid.UUID, form BookingForm) (*Draft, error) {
	if err := s.validateForm(ctx, &form); err != nil {
		return nil, err
	}

	d := &Draft{
		Token:     uuid.NewString(),
		PatientID: patientID,
		Form:      form,
		State:     StateDraft,
		StagedAt:  s.now().UTC(),
	}
	if err := d.transition(StateAwaitingPayment); err != nil {
		return nil, err
	}
	if err := s.drafts.Set(ctx, draftKey(d.Token), d, s.stagingTTL); err != nil {
		return nil, fmt.Errorf("stage booking: %w", err)
	}
	return d, nil
}

// Draft returns patientID's staged booking for token.
func (s *Service) Draft(ctx context.Context, patientID uuid.UUID, token string) (*Draft, error) {
	if token == "" {
		return nil, ErrNoStagedBooking
	}
	var d Draft
	found, err := s.drafts.Get(ctx, draftKey(token), &d)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if !found || d.PatientID != patientID {
		return nil, ErrNoStagedBooking
	}
	return &d, nil
}

// Confirm validates payment and turns the staged booking into an
// appointment. The draft is taken from the store atomically, so a token
// confirms at most one appointment. A failed payment check leaves the draft
// in place for another attempt.
func (s *Service) Confirm(ctx context.Context, patientID uuid.UUID, token string, pay PaymentForm) (*Appointment, error) {
	if _, err := s.Draft(ctx, patientID, token); err != nil {
		return nil, err
	}
	if err := ValidatePayment(&pay); err != nil {
		return nil, err
	}

	var d Draft
	found, err := s.drafts.Take(ctx, draftKey(token), &d)
	if err != nil {
		return nil, fmt.Errorf("take booking: %w", err)
	}
	if !found || d.PatientID != patientID {
		return nil, ErrNoStagedBooking
	}
	if err := d.transition(StateConfirmed); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a := &Appointment{
		PatientID:     patientID,
		DoctorID:      d.Form.DoctorID,
		HospitalID:    d.Form.HospitalID,
		Name:          d.Form.Name,
		Phone:         d.Form.Phone,
		Date:          d.Form.Date,
		Time:          d.Form.Time,
		Reason:        d.Form.Reason,
		PaymentMethod: pay.PaymentMethod,
		IsPaid:        IsPaid(pay.PaymentMethod),
		Status:        StatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		// Put the draft back so the patient can retry the payment.
		d.State = StateAwaitingPayment
		if rerr := s.drafts.Set(ctx, draftKey(token), &d, s.stagingTTL); rerr != nil {
			s.logger.Error().Err(rerr).Str("token", token).Msg("restore staged booking")
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.publish(ctx, a, "appointment.confirmed")
	return a, nil
}

// Discard cancels a staged booking. Discarding a token that no longer
// exists is not an error.
func (s *Service) Discard(ctx context.Context, patientID uuid.UUID, token string) error {
	if token == "" {
		return nil
	}
	var d Draft
	found, err := s.drafts.Get(ctx, draftKey(token), &d)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if !found {
		return nil
	}
	if d.PatientID != patientID {
		return ErrNoStagedBooking
	}
	if err := d.transition(StateCancelled); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, draftKey(token))
}

// Book stages and confirms in one step. A rejected payment discards the
// draft it just staged.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, error) {
	d, err := s.Stage(ctx, patientID, req.BookingForm)
	if err != nil {
		return nil, err
	}
	a, err := s.Confirm(ctx, patientID, d.Token, req.PaymentForm)
	if err != nil {
		if derr := s.Discard(ctx, patientID, d.Token); derr != nil {
			s.logger.Warn().Err(derr).Str("token", d.Token).Msg("discard staged booking")
		}
		return nil, err
	}
	return a, nil
}

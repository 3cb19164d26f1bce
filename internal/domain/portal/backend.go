package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/account"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/accountapi"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/session"
)

var (
	ErrEmailRegistered = apperr.Conflict("Email already registered. Please log in.")
	ErrSessionExpired  = apperr.Unauthorized("Your session has expired. Please log in again.")
)

// Account is the identity a portal session is bound to.
type Account struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	Roles    []string
	// APIToken is set by backends that authenticate over HTTP.
	APIToken string
}

// AccountBackend signs users up and in for the portal.
type AccountBackend interface {
	Signup(ctx context.Context, form account.SignupForm) error
	Login(ctx context.Context, email, password string) (*Account, error)
	Profile(ctx context.Context, s *session.Session) (*account.Profile, error)
	UpdateAccount(ctx context.Context, s *session.Session, req account.AccountUpdate) (*Account, error)
}

func sessionUserID(s *session.Session) (uuid.UUID, error) {
	id, err := uuid.Parse(s.UserID)
	if err != nil {
		return uuid.Nil, ErrSessionExpired
	}
	return id, nil
}

// LocalAccounts serves the portal from the in-process account service.
type LocalAccounts struct {
	svc *account.Service
}

func NewLocalAccounts(svc *account.Service) *LocalAccounts {
	return &LocalAccounts{svc: svc}
}

func (l *LocalAccounts) Signup(ctx context.Context, form account.SignupForm) error {
	_, err := l.svc.Signup(ctx, form)
	if errors.Is(err, account.ErrEmailTaken) {
		return ErrEmailRegistered
	}
	return err
}

func (l *LocalAccounts) Login(ctx context.Context, email, password string) (*Account, error) {
	u, err := l.svc.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &Account{UserID: u.ID, Email: u.Email, FullName: u.FullName, Roles: u.Roles()}, nil
}

func (l *LocalAccounts) Profile(ctx context.Context, s *session.Session) (*account.Profile, error) {
	id, err := sessionUserID(s)
	if err != nil {
		return nil, err
	}
	return l.svc.GetProfile(ctx, id)
}

func (l *LocalAccounts) UpdateAccount(ctx context.Context, s *session.Session, req account.AccountUpdate) (*Account, error) {
	id, err := sessionUserID(s)
	if err != nil {
		return nil, err
	}
	u, err := l.svc.UpdateAccount(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return &Account{UserID: u.ID, Email: u.Email, FullName: u.FullName, Roles: u.Roles()}, nil
}

// RemoteAccounts serves the portal through the JSON API of another
// instance. Signup rules are still checked here because the API applies
// the looser register rules.
type RemoteAccounts struct {
	client *accountapi.Client
	now    func() time.Time
}

func NewRemoteAccounts(client *accountapi.Client) *RemoteAccounts {
	return &RemoteAccounts{client: client, now: time.Now}
}

// sessionError classifies a failure of a call made with the session's API
// token. A rejected token means the remote session is gone.
func sessionError(err error) error {
	if accountapi.StatusOf(err) == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	var ae *accountapi.APIError
	if errors.As(err, &ae) && ae.Status == http.StatusConflict {
		return account.ErrEmailTaken
	}
	return remoteError(err)
}

// remoteError classifies an API failure the way the local service would.
func remoteError(err error) error {
	var ae *accountapi.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("account backend: %w", err)
	}
	switch ae.Status {
	case http.StatusBadRequest:
		return apperr.Invalid(ae.Message)
	case http.StatusUnauthorized:
		return account.ErrInvalidCredentials
	case http.StatusConflict:
		return ErrEmailRegistered
	}
	return fmt.Errorf("account backend: %w", err)
}

func (r *RemoteAccounts) Signup(ctx context.Context, form account.SignupForm) error {
	if err := account.ValidateSignup(&form, r.now()); err != nil {
		return err
	}
	err := r.client.Register(ctx, accountapi.RegisterRequest{
		FullName: form.FullName,
		Email:    form.Email,
		Password: form.Password,
		DOB:      form.DOB,
		Gender:   form.Gender,
	})
	if err != nil {
		return remoteError(err)
	}
	return nil
}

func (r *RemoteAccounts) Login(ctx context.Context, email, password string) (*Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, account.ErrLoginRequired
	}
	res, err := r.client.Login(ctx, email, password)
	if err != nil {
		return nil, remoteError(err)
	}
	u, err := r.client.User(ctx, res.AccessToken, res.UserID)
	if err != nil {
		return nil, remoteError(err)
	}
	return &Account{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Roles:    auth.RolesFor(u.IsStaff, u.IsAdmin),
		APIToken: res.AccessToken,
	}, nil
}

func (r *RemoteAccounts) Profile(ctx context.Context, s *session.Session) (*account.Profile, error) {
	if s.APIToken == "" {
		return nil, ErrSessionExpired
	}
	p, err := r.client.Profile(ctx, s.APIToken)
	if err != nil {
		return nil, sessionError(err)
	}
	return &account.Profile{
		UserID:             p.UserID,
		PhoneNumber:        p.PhoneNumber,
		DateOfBirth:        p.DateOfBirth,
		Gender:             p.Gender,
		BloodGroup:         p.BloodGroup,
		Address:            p.Address,
		Height:             p.Height,
		Weight:             p.Weight,
		Allergies:          p.Allergies,
		MedicalConditions:  p.MedicalConditions,
		CurrentMedications: p.CurrentMedications,
	}, nil
}

func (r *RemoteAccounts) UpdateAccount(ctx context.Context, s *session.Session, req account.AccountUpdate) (*Account, error) {
	if s.APIToken == "" {
		return nil, ErrSessionExpired
	}
	u, err := r.client.UpdateAccount(ctx, s.APIToken, accountapi.AccountUpdate{
		FullName: req.FullName,
		Email:    req.Email,
		DOB:      req.DOB,
		Gender:   req.Gender,
	})
	if err != nil {
		return nil, sessionError(err)
	}
	return &Account{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Roles:    auth.RolesFor(u.IsStaff, u.IsAdmin),
		APIToken: s.APIToken,
	}, nil
}

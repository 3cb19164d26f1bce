package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
)

const MsgSettingsUpdated = "Settings updated successfully!"

var (
	ErrNotFound           = apperr.NotFound("User not found")
	ErrEmailTaken         = apperr.Conflict("Email already registered.")
	ErrInvalidCredentials = apperr.Unauthorized("Invalid email or password")
)

type Service struct {
	users    UserRepository
	profiles ProfileRepository
	tokens   *auth.TokenIssuer
	hashCost int
	now      func() time.Time
}

func NewService(users UserRepository, profiles ProfileRepository, tokens *auth.TokenIssuer) *Service {
	return &Service{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Register creates a patient account from the JSON API body.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := validateRegister(&req); err != nil {
		return nil, err
	}
	return s.create(ctx, req, false, false)
}

// Signup creates a patient account from the portal form.
func (s *Service) Signup(ctx context.Context, form SignupForm) (*User, error) {
	if err := validateSignup(&form, s.now()); err != nil {
		return nil, err
	}
	return s.create(ctx, form.RegisterRequest, false, false)
}

// CreateStaff creates a staff account, or an admin when admin is set.
func (s *Service) CreateStaff(ctx context.Context, email, fullName, password string, admin bool) (*User, error) {
	req := RegisterRequest{FullName: fullName, Email: email, Password: password}
	req.normalize()
	if req.Email == "" || req.FullName == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, ErrInvalidEmail
	}
	if !basicPassword(req.Password) {
		return nil, ErrWeakPassword
	}
	return s.create(ctx, req, true, admin)
}

func (s *Service) create(ctx context.Context, req RegisterRequest, staff, admin bool) (*User, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		DOB:          req.DOB,
		Gender:       req.Gender,
		IsActive:     true,
		IsStaff:      staff || admin,
		IsAdmin:      admin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials without issuing a token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrLoginRequired
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(u.ID, u.Email, u.Roles())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{User: u, AccessToken: token}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// UpdateAccount replaces userID's name, email, date of birth and gender.
// The email may only change to one no other account uses.
func (s *Service) UpdateAccount(ctx context.Context, userID uuid.UUID, req AccountUpdate) (*User, error) {
	if err := validateAccountUpdate(&req); err != nil {
		return nil, err
	}
	stored, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	other, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && other.ID != userID:
		return nil, ErrEmailTaken
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	u := *stored
	u.FullName = req.FullName
	u.Email = req.Email
	u.DOB = req.DOB
	u.Gender = req.Gender
	if err := s.users.Update(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetProfile returns the user's profile, creating an empty one on first use.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	p = &Profile{UserID: userID}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, p *Profile) error {
	if p.UserID == uuid.Nil {
		return apperr.Invalid("user_id is required")
	}
	if err := validateProfile(p); err != nil {
		return err
	}
	return s.profiles.Upsert(ctx, p)
}

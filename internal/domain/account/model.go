package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	DOB          string    `json:"dob,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsAdmin      bool      `json:"is_admin"`
	DateJoined   time.Time `json:"date_joined"`
}

func (u *User) Roles() []string {
	return auth.RolesFor(u.IsStaff, u.IsAdmin)
}

type Profile struct {
	UserID             uuid.UUID `json:"user_id"`
	PhoneNumber        string    `json:"phone_number"`
	DateOfBirth        string    `json:"date_of_birth"`
	Gender             string    `json:"gender"`
	BloodGroup         string    `json:"blood_group"`
	Address            string    `json:"address"`
	Height             *float64  `json:"height,omitempty"`
	Weight             *float64  `json:"weight,omitempty"`
	Allergies          string    `json:"allergies"`
	MedicalConditions  string    `json:"medical_conditions"`
	CurrentMedications string    `json:"current_medications"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RegisterRequest is the JSON API registration body.
type RegisterRequest struct {
	FullName string `json:"full_name" form:"full_name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	DOB      string `json:"dob" form:"dob"`
	Gender   string `json:"gender" form:"gender"`
}

// SignupForm is the portal signup form. It is validated more strictly than
// RegisterRequest.
type SignupForm struct {
	RegisterRequest
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// AccountUpdate replaces the account settings of a user.
type AccountUpdate struct {
	FullName string `json:"full_name" form:"full_name"`
	Email    string `json:"email" form:"email"`
	DOB      string `json:"dob" form:"dob"`
	Gender   string `json:"gender" form:"gender"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type LoginResult struct {
	User        *User
	AccessToken string
}

var ProfileGenders = []string{"Male", "Female", "Other", "Prefer not to say"}

var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

package account

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+$`)

const (
	minPasswordLen   = 8
	minSignupAge     = 16
	passwordSpecials = "@$!%*?&"
	dateLayout       = "2006-01-02"
)

var (
	ErrNoInput          = apperr.Invalid("No input data provided")
	ErrMissingFields    = apperr.Invalid("Missing required fields")
	ErrInvalidEmail     = apperr.Invalid("Invalid email format")
	ErrWeakPassword     = apperr.Invalid("Password must be at least 8 characters long and contain letters and numbers")
	ErrStrictPassword   = apperr.Invalid("Password must be at least 8 characters long, with 1 uppercase, 1 lowercase, 1 digit, and 1 special character (@$!%*?&).")
	ErrPasswordMismatch = apperr.Invalid("Passwords do not match.")
	ErrTooYoung         = apperr.Invalid("You must be at least 16 years old to register.")
	ErrInvalidDOB       = apperr.Invalid("Invalid date of birth format.")
	ErrLoginRequired    = apperr.Invalid("Email and password are required")
)

func (r *RegisterRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.DOB = strings.TrimSpace(r.DOB)
	r.Gender = strings.TrimSpace(r.Gender)
}

func (r *RegisterRequest) empty() bool {
	return *r == RegisterRequest{}
}

func validateRegister(r *RegisterRequest) error {
	if r.empty() {
		return ErrNoInput
	}
	r.normalize()
	if r.FullName == "" || r.Email == "" || r.Password == "" || r.DOB == "" || r.Gender == "" {
		return ErrMissingFields
	}
	if !emailPattern.MatchString(r.Email) {
		return ErrInvalidEmail
	}
	if !basicPassword(r.Password) {
		return ErrWeakPassword
	}
	return nil
}

// ValidateSignup applies the portal signup rules to f as of today. It
// normalizes f in place.
func ValidateSignup(f *SignupForm, today time.Time) error {
	return validateSignup(f, today)
}

func validateSignup(f *SignupForm, today time.Time) error {
	if err := validateRegister(&f.RegisterRequest); err != nil {
		return err
	}
	if !strictPassword(f.Password) {
		return ErrStrictPassword
	}
	if f.Password != f.ConfirmPassword {
		return ErrPasswordMismatch
	}
	dob, err := time.Parse(dateLayout, f.DOB)
	if err != nil {
		return ErrInvalidDOB
	}
	if ageOn(dob, today) < minSignupAge {
		return ErrTooYoung
	}
	return nil
}

// basicPassword needs minPasswordLen characters including a letter and a digit.
func basicPassword(pw string) bool {
	if len(pw) < minPasswordLen {
		return false
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// strictPassword needs an upper, a lower, a digit and a special character,
// and allows nothing outside those classes.
func strictPassword(pw string) bool {
	if len(pw) < minPasswordLen {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return upper && lower && digit && special
}

// ageOn returns the age in whole years a person born on dob has reached on day.
func ageOn(dob, day time.Time) int {
	age := day.Year() - dob.Year()
	if day.Month() < dob.Month() || (day.Month() == dob.Month() && day.Day() < dob.Day()) {
		age--
	}
	return age
}

func validateAccountUpdate(u *AccountUpdate) error {
	u.FullName = strings.TrimSpace(u.FullName)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.DOB = strings.TrimSpace(u.DOB)
	u.Gender = strings.TrimSpace(u.Gender)
	if u.FullName == "" || u.Email == "" {
		return ErrMissingFields
	}
	if !emailPattern.MatchString(u.Email) {
		return ErrInvalidEmail
	}
	if u.DOB != "" {
		if _, err := time.Parse(dateLayout, u.DOB); err != nil {
			return ErrInvalidDOB
		}
	}
	return nil
}

func validateProfile(p *Profile) error {
	if p.Gender != "" && !contains(ProfileGenders, p.Gender) {
		return apperr.Invalidf("invalid gender: %s", p.Gender)
	}
	if p.BloodGroup != "" && !contains(BloodGroups, p.BloodGroup) {
		return apperr.Invalidf("invalid blood group: %s", p.BloodGroup)
	}
	if p.Height != nil && *p.Height <= 0 {
		return apperr.Invalid("height must be positive")
	}
	if p.Weight != nil && *p.Weight <= 0 {
		return apperr.Invalid("weight must be positive")
	}
	if p.DateOfBirth != "" {
		if _, err := time.Parse(dateLayout, p.DateOfBirth); err != nil {
			return ErrInvalidDOB
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Role names
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SendOTPRequest asks for a one-time login code to be emailed.
type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest exchanges an emailed code for a token.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// User represents an authenticated account.
type User struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Phone       string            `json:"phone,omitempty"`
	Role        string            `json:"role"`
	Preferences map[string]string `json:"preferences,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewUser creates a user for a first-time login. The display name defaults to the email local part.
func NewUser(email string) *User {
	now := time.Now().UTC()
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpdateProfileRequest is a partial profile update.
type UpdateProfileRequest struct {
	Name        *string           `json:"name" validate:"omitempty,min=1,max=100"`
	Phone       *string           `json:"phone" validate:"omitempty,max=20"`
	Preferences map[string]string `json:"preferences"`
}

// Apply copies the set fields onto u.
func (r *UpdateProfileRequest) Apply(u *User) {
	if r.Name != nil {
		u.Name = *r.Name
	}
	if r.Phone != nil {
		u.Phone = *r.Phone
	}
	if r.Preferences != nil {
		u.Preferences = r.Preferences
	}
}

// LoginResponse represents the verify/refresh response with user data and authentication token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// OTPRecord is a pending one-time code. Only the hash of the code is kept.
type OTPRecord struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"-"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the code is no longer usable at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Validate validates the SendOTPRequest using the validator.
func (r *SendOTPRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the VerifyOTPRequest using the validator.
func (r *VerifyOTPRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

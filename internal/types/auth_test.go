//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyOTPRequest_Validation(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		request VerifyOTPRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid request",
			request: VerifyOTPRequest{Email: "john@example.com", OTP: "123456"},
		},
		{
			name:    "missing email",
			request: VerifyOTPRequest{OTP: "123456"},
			wantErr: true,
			errMsg:  "required",
		},
		{
			name:    "invalid email format",
			request: VerifyOTPRequest{Email: "not-an-email", OTP: "123456"},
			wantErr: true,
			errMsg:  "email",
		},
		{
			name:    "short code",
			request: VerifyOTPRequest{Email: "john@example.com", OTP: "12345"},
			wantErr: true,
			errMsg:  "len",
		},
		{
			name:    "non numeric code",
			request: VerifyOTPRequest{Email: "john@example.com", OTP: "12a456"},
			wantErr: true,
			errMsg:  "numeric",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.request)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSendOTPRequest_Validate(t *testing.T) {
	assert.NoError(t, (&SendOTPRequest{Email: "a@b.co"}).Validate())
	assert.Error(t, (&SendOTPRequest{Email: ""}).Validate())
	assert.Error(t, (&SendOTPRequest{Email: "nope"}).Validate())
}

func TestNewUser(t *testing.T) {
	u := NewUser("priya.sharma@innovatetech.in")
	assert.Equal(t, "priya.sharma", u.Name)
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.IsAdmin())
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", u.ID.String())
}

func TestUpdateProfileRequest_Apply(t *testing.T) {
	u := NewUser("a@b.co")
	name := "Ahmed"
	req := UpdateProfileRequest{Name: &name, Preferences: map[string]string{"theme": "dark"}}
	req.Apply(u)

	assert.Equal(t, "Ahmed", u.Name)
	assert.Empty(t, u.Phone)
	assert.Equal(t, "dark", u.Preferences["theme"])
}

func TestOTPRecord_Expired(t *testing.T) {
	now := time.Now()
	rec := OTPRecord{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, rec.Expired(now))
	assert.True(t, rec.Expired(now.Add(2*time.Minute)))
}

func TestOTPRecord_HashNotSerialized(t *testing.T) {
	rec := OTPRecord{Email: "a@b.co", CodeHash: "secret-hash"}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
}

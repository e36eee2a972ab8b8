package config

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTPConfig(t *testing.T) {
	tests := []struct {
		name         string
		ttl          string
		attempts     string
		cost         string
		wantTTL      time.Duration
		wantAttempts int
		wantCost     int
		wantErr      string
	}{
		{
			name:         "defaults",
			wantTTL:      10 * time.Minute,
			wantAttempts: 3,
			wantCost:     10,
		},
		{
			name:         "custom values",
			ttl:          "5",
			attempts:     "5",
			cost:         "4",
			wantTTL:      5 * time.Minute,
			wantAttempts: 5,
			wantCost:     4,
		},
		{name: "zero ttl", ttl: "0", wantErr: "OTP_TTL_MINUTES"},
		{name: "non-numeric ttl", ttl: "soon", wantErr: "OTP_TTL_MINUTES"},
		{name: "zero attempts", attempts: "0", wantErr: "OTP_MAX_ATTEMPTS"},
		{name: "cost too low", cost: "3", wantErr: "bcrypt cost"},
		{name: "cost too high", cost: "15", wantErr: "bcrypt cost"},
		{name: "non-numeric cost", cost: "high", wantErr: "OTP_BCRYPT_COST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTP_TTL_MINUTES", tt.ttl)
			t.Setenv("OTP_MAX_ATTEMPTS", tt.attempts)
			t.Setenv("OTP_BCRYPT_COST", tt.cost)

			cfg, err := NewOTPConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTTL, cfg.TTL)
			assert.Equal(t, tt.wantAttempts, cfg.MaxAttempts)
			assert.Equal(t, tt.wantCost, cfg.BcryptCost)
		})
	}
}

func TestDefaultOTPConfig(t *testing.T) {
	cfg := DefaultOTPConfig()
	assert.NoError(t, cfg.normalize())
	assert.Equal(t, 10*time.Minute, cfg.TTL)
}

func TestOTPConfig_GenerateCode(t *testing.T) {
	cfg := &OTPConfig{BcryptCost: 4}
	sixDigits := regexp.MustCompile(`^[0-9]{6}$`)

	for i := 0; i < 50; i++ {
		code, err := cfg.GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestOTPConfig_HashAndVerify(t *testing.T) {
	cfg := &OTPConfig{BcryptCost: 4}

	hash, err := cfg.HashCode("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	assert.True(t, cfg.VerifyCode("123456", hash))
	assert.False(t, cfg.VerifyCode("654321", hash))
	assert.False(t, cfg.VerifyCode("123456", "not-a-hash"))

	// bcrypt salts each hash
	again, err := cfg.HashCode("123456")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

package config

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OTP defaults
const (
	DefaultOTPTTLMinutes  = 10
	DefaultOTPMaxAttempts = 3
	DefaultOTPBcryptCost  = 10
	OTPLength             = 6
)

// OTPConfig holds configuration for one-time login codes.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	BcryptCost  int
}

// NewOTPConfig creates a new OTP configuration from environment variables.
// It reads OTP_TTL_MINUTES (default: 10), OTP_MAX_ATTEMPTS (default: 3)
// and OTP_BCRYPT_COST (default: 10).
func NewOTPConfig() (*OTPConfig, error) {
	ttl, err := intEnv("OTP_TTL_MINUTES", DefaultOTPTTLMinutes)
	if err != nil {
		return nil, err
	}
	attempts, err := intEnv("OTP_MAX_ATTEMPTS", DefaultOTPMaxAttempts)
	if err != nil {
		return nil, err
	}
	cost, err := intEnv("OTP_BCRYPT_COST", DefaultOTPBcryptCost)
	if err != nil {
		return nil, err
	}

	config := &OTPConfig{
		TTL:         time.Duration(ttl) * time.Minute,
		MaxAttempts: attempts,
		BcryptCost:  cost,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultOTPConfig returns the configuration used when no environment overrides are set.
func DefaultOTPConfig() *OTPConfig {
	return &OTPConfig{
		TTL:         DefaultOTPTTLMinutes * time.Minute,
		MaxAttempts: DefaultOTPMaxAttempts,
		BcryptCost:  DefaultOTPBcryptCost,
	}
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

// normalize validates the configuration.
func (c *OTPConfig) normalize() error {
	if c.TTL < time.Minute {
		return fmt.Errorf("OTP_TTL_MINUTES must be at least 1, got: %v", c.TTL)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1, got: %d", c.MaxAttempts)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-14)", c.BcryptCost, bcrypt.MinCost)
	}
	return nil
}

// GenerateCode returns a uniformly random numeric code of OTPLength digits.
func (c *OTPConfig) GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// HashCode hashes a code using bcrypt.
func (c *OTPConfig) HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hash), nil
}

// VerifyCode verifies a code against a stored hash.
func (c *OTPConfig) VerifyCode(code, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(code)) == nil
}

package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/types"
)

func otpKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SaveOTP stores a pending code, replacing any earlier code for the same email
func (db *DB) SaveOTP(ctx context.Context, rec *types.OTPRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO otp_codes (email, code_hash, attempts, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email) DO UPDATE
		 SET code_hash = EXCLUDED.code_hash, attempts = EXCLUDED.attempts,
		     created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		otpKey(rec.Email), rec.CodeHash, rec.Attempts, createdAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

// GetOTP retrieves the pending code for an email
func (db *DB) GetOTP(ctx context.Context, email string) (*types.OTPRecord, error) {
	var rec types.OTPRecord
	err := db.pool.QueryRow(ctx,
		`SELECT email, code_hash, attempts, created_at, expires_at FROM otp_codes WHERE email = $1`,
		otpKey(email)).Scan(&rec.Email, &rec.CodeHash, &rec.Attempts, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", notFound(err))
	}
	return &rec, nil
}

// IncrementOTPAttempts records a failed verification and returns the new attempt count
func (db *DB) IncrementOTPAttempts(ctx context.Context, email string) (int, error) {
	var attempts int
	err := db.pool.QueryRow(ctx,
		`UPDATE otp_codes SET attempts = attempts + 1 WHERE email = $1 RETURNING attempts`,
		otpKey(email)).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to increment otp attempts: %w", notFound(err))
	}
	return attempts, nil
}

// DeleteOTP removes the pending code for an email
func (db *DB) DeleteOTP(ctx context.Context, email string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM otp_codes WHERE email = $1`, otpKey(email)); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// DeleteExpiredOTPs removes every code that expired before now
func (db *DB) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM otp_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return int(result.RowsAffected()), nil
}

var _ store.OTPStore = (*DB)(nil)

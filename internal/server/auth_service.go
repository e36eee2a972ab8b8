package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/marketing-hub/internal/config"
	"github.com/jonathan/marketing-hub/internal/mail"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/types"
)

// AuthStore is the persistence the login flow needs.
type AuthStore interface {
	store.UserStore
	store.OTPStore
}

// AuthService implements passwordless login: a numeric code is emailed and
// exchanged for a session token. Only bcrypt hashes of codes are stored.
type AuthService struct {
	store       AuthStore
	mailer      mail.Mailer
	otp         *config.OTPConfig
	from        string
	adminEmails map[string]bool
	now         func() time.Time
}

// NewAuthService creates an AuthService. Users whose email is in adminEmails
// are given the admin role when they log in.
func NewAuthService(st AuthStore, mailer mail.Mailer, otp *config.OTPConfig, from string, adminEmails []string) *AuthService {
	if otp == nil {
		otp = config.DefaultOTPConfig()
	}
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &AuthService{
		store:       st,
		mailer:      mailer,
		otp:         otp,
		from:        from,
		adminEmails: admins,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendOTP generates a code for email, replaces any pending one and mails it.
func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	code, err := s.otp.GenerateCode()
	if err != nil {
		return err
	}
	hash, err := s.otp.HashCode(code)
	if err != nil {
		return err
	}

	now := s.now()
	rec := &types.OTPRecord{
		Email:     email,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.otp.TTL),
	}
	if err := s.store.SaveOTP(ctx, rec); err != nil {
		return fmt.Errorf("failed to save verification code: %w", err)
	}

	var name string
	if u, err := s.store.GetUserByEmail(ctx, email); err == nil {
		name = u.Name
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	msg, err := mail.OTPMessage(s.from, email, name, code, s.otp.TTL)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}

	log.Printf("[auth] verification code sent to %s", email)
	return nil
}

// VerifyOTP checks code against the pending record for email. On success the
// record is consumed and the matching user is returned, created on first login.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*types.User, error) {
	email = normalizeEmail(email)

	rec, err := s.store.GetOTP(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &ErrOTPNotFound{}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load verification code: %w", err)
	}

	if rec.Expired(s.now()) {
		s.discardOTP(ctx, email)
		return nil, &ErrOTPExpired{}
	}
	if rec.Attempts >= s.otp.MaxAttempts {
		s.discardOTP(ctx, email)
		return nil, &ErrOTPAttemptsExceeded{}
	}

	if !s.otp.VerifyCode(code, rec.CodeHash) {
		attempts, err := s.store.IncrementOTPAttempts(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		log.Printf("[auth] invalid code for %s (attempt %d of %d)", email, attempts, s.otp.MaxAttempts)
		return nil, &ErrOTPInvalid{Remaining: max(s.otp.MaxAttempts-attempts, 0)}
	}

	user, err := s.loginUser(ctx, email)
	if err != nil {
		return nil, err
	}
	s.discardOTP(ctx, email)

	log.Printf("[auth] user authenticated: %s", email)
	return user, nil
}

func (s *AuthService) loginUser(ctx context.Context, email string) (*types.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = types.NewUser(email)
		if s.adminEmails[email] {
			user.Role = types.RoleAdmin
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.sendWelcome(ctx, user)
		return user, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if s.adminEmails[email] {
		user.Role = types.RoleAdmin
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// sendWelcome mails a greeting to a new user. Delivery failures do not fail the login.
func (s *AuthService) sendWelcome(ctx context.Context, user *types.User) {
	msg, err := mail.WelcomeMessage(s.from, user.Email, user.Name)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		log.Printf("[auth] failed to send welcome email to %s: %v", user.Email, err)
	}
}

func (s *AuthService) discardOTP(ctx context.Context, email string) {
	if err := s.store.DeleteOTP(ctx, email); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("[auth] failed to delete verification code for %s: %v", email, err)
	}
}

// Profile returns the user with the given id.
func (s *AuthService) Profile(ctx context.Context, id uuid.UUID) (*types.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &ErrNotFound{Resource: "user", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies req to the user's profile.
func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, req *types.UpdateProfileRequest) (*types.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(user)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ErrNotFound{Resource: "user", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ListUsers returns every account.
func (s *AuthService) ListUsers(ctx context.Context) ([]*types.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CleanupExpired removes codes that are past their expiry.
func (s *AuthService) CleanupExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredOTPs(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", err)
	}
	return n, nil
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (s *AuthService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.CleanupExpired(ctx)
			if err != nil {
				log.Printf("[auth] %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[auth] removed %d expired verification codes", n)
			}
		}
	}
}

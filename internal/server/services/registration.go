// Package services contains server-side business logic. This file implements
// RegistrationService: one-time-code registration, login and the cleanup of
// expired pending registrations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/docseal/internal/auth"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/cryptox"
	"github.com/dmitrijs2005/docseal/internal/dbx"
	"github.com/dmitrijs2005/docseal/internal/identity"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/dmitrijs2005/docseal/internal/server/config"
	"github.com/dmitrijs2005/docseal/internal/server/models"
	"github.com/dmitrijs2005/docseal/internal/server/notify"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/repomanager"
)

// OTPLength is the number of digits in a registration code.
const OTPLength = 6

type RegistrationService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	sender            notify.Sender
	logger            logging.Logger
	jwtSecret         []byte
	tokenValidity     time.Duration
	otpTTL            time.Duration
	emailDomain       string
	minPasswordLength int
	now               func() time.Time
}

func NewRegistrationService(db *sql.DB, m repomanager.RepositoryManager, sender notify.Sender, l logging.Logger, cfg *config.Config) *RegistrationService {
	return &RegistrationService{
		db:                db,
		repomanager:       m,
		sender:            sender,
		logger:            l.With("module", "registration"),
		jwtSecret:         []byte(cfg.SecretKey),
		tokenValidity:     cfg.TokenValidity,
		otpTTL:            cfg.OTPTTL,
		emailDomain:       cfg.EmailDomain,
		minPasswordLength: cfg.MinPasswordLength,
		now:               time.Now,
	}
}

// Initiate stores a pending registration for email and sends it a fresh
// one-time code. Any earlier pending registration for the same email is
// replaced. If the code cannot be delivered nothing is stored.
func (s *RegistrationService) Initiate(ctx context.Context, email, password, name string) (*models.PendingRegistration, error) {
	email = identity.Normalize(email)
	problems := identity.Validate(email, s.emailDomain)
	if len(password) < s.minPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", s.minPasswordLength))
	}
	if len(password) > cryptox.MaxSecretBytes {
		problems = append(problems, fmt.Sprintf("password must be at most %d bytes", cryptox.MaxSecretBytes))
	}
	if len(problems) > 0 {
		return nil, common.NewValidationError(problems...)
	}

	exists, err := s.repomanager.Users(s.db).Exists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking user: %w", err)
	}
	if exists {
		return nil, common.ErrConflict
	}

	passwordHash, err := cryptox.HashSecret(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	code, err := cryptox.GenerateNumericCode(OTPLength)
	if err != nil {
		return nil, fmt.Errorf("error generating code: %w", err)
	}
	otpHash, err := cryptox.HashSecret(code)
	if err != nil {
		return nil, fmt.Errorf("error hashing code: %w", err)
	}

	now := s.now()
	p := &models.PendingRegistration{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		OTPHash:      otpHash,
		ExpiresAt:    now.Add(s.otpTTL),
		CreatedAt:    now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Pending(tx)
		if err := repo.Delete(ctx, email); err != nil {
			return fmt.Errorf("error deleting stale registration: %w", err)
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("error storing registration: %w", err)
		}
		if err := s.sender.SendCode(ctx, email, code, s.otpTTL); err != nil {
			return fmt.Errorf("%w: sending code: %v", common.ErrUpstream, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "registration initiated", "email", email, "expires_at", p.ExpiresAt)
	return p, nil
}

// Verify consumes the pending registration for email when code matches and
// creates the user account. A code can be used once.
func (s *RegistrationService) Verify(ctx context.Context, email, code string) (*models.User, error) {
	email = identity.Normalize(email)
	var problems []string
	if email == "" {
		problems = append(problems, "email is required")
	}
	if !cryptox.IsNumericCode(code, OTPLength) {
		problems = append(problems, fmt.Sprintf("otp must be %d digits", OTPLength))
	}
	if len(problems) > 0 {
		return nil, common.NewValidationError(problems...)
	}

	pendingRepo := s.repomanager.Pending(s.db)
	p, err := pendingRepo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("no pending registration: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading registration: %w", err)
	}

	if p.Expired(s.now()) {
		if err := pendingRepo.Delete(ctx, email); err != nil {
			s.logger.Warn(ctx, "failed to delete expired registration", "email", email, "error", err)
		}
		return nil, common.ErrOTPExpired
	}

	if err := cryptox.CompareSecret(p.OTPHash, code); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return nil, common.ErrInvalidCode
		}
		return nil, fmt.Errorf("error comparing code: %w", err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        p.Email,
			Name:         p.Name,
			PasswordHash: p.PasswordHash,
		})
		if err != nil {
			return err
		}
		if err := s.repomanager.Pending(tx).Delete(ctx, email); err != nil {
			return fmt.Errorf("error deleting registration: %w", err)
		}
		user = u
		return nil
	})

	if errors.Is(err, common.ErrConflict) {
		// The failed insert aborted the transaction, so the row goes separately.
		if derr := pendingRepo.Delete(ctx, email); derr != nil {
			s.logger.Warn(ctx, "failed to delete duplicate registration", "email", email, "error", derr)
		}
		return nil, common.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "registration verified", "email", email, "user_id", user.ID)
	return user, nil
}

// Login checks the password and mints a session credential.
func (s *RegistrationService) Login(ctx context.Context, email, password string) (string, error) {
	email = identity.Normalize(email)
	if email == "" || password == "" {
		return "", common.NewValidationError("email and password are required")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	if err := cryptox.CompareSecret(user.PasswordHash, password); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("error comparing password: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return token, nil
}

// CleanupExpired deletes pending registrations whose code has expired.
func (s *RegistrationService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Pending(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error deleting expired registrations: %w", err)
	}
	return n, nil
}

// RunJanitor calls CleanupExpired every interval until ctx is done.
func (s *RegistrationService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.CleanupExpired(ctx)
			if err != nil {
				s.logger.Error(ctx, "pending cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug(ctx, "expired registrations removed", "count", n)
			}
		}
	}
}

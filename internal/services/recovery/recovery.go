// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package recovery orchestrates the code-based password-reset and
// email-verification flows.
//
// A reset is two externally triggered steps. RequestReset mints a code
// for the address whether or not an account exists (the response never
// says which). CommitReset validates and consumes the code in one
// atomic step, writes the new credential and sweeps the user's
// sessions. There is no persisted "verified" state in between;
// verification and consumption happen together at commit time, so a
// code can never be spent without the password actually changing
// hands.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gatekit/gatekit/internal/repository"
	"github.com/gatekit/gatekit/internal/services/auth"
	"github.com/gatekit/gatekit/internal/services/otp"
	"github.com/gatekit/gatekit/internal/services/session"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidOrExpiredCode deliberately covers a wrong code, an expired
// one, an exhausted attempt cap and a missing account alike. Callers
// must not be able to tell these apart.
var ErrInvalidOrExpiredCode = errors.New("invalid or expired code")

// timingDummy is compared against when no account exists, to keep the
// request path from returning observably faster.
var timingDummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Service runs the recovery flows.
type Service struct {
	repo     *repository.Repository
	issuer   *otp.Issuer
	sessions *session.Manager
	policy   auth.PasswordPolicy
}

// NewService creates a recovery service.
func NewService(repo *repository.Repository, issuer *otp.Issuer, sessions *session.Manager, policy auth.PasswordPolicy) *Service {
	return &Service{
		repo:     repo,
		issuer:   issuer,
		sessions: sessions,
		policy:   policy,
	}
}

// RequestReset issues a reset code for the address. For an unknown
// address it does nothing but still returns nil: the caller's response
// must be identical either way. Only otp.ErrDispatchFailed escapes
// distinctly, so callers can log it; it does not invalidate the code.
func (s *Service) RequestReset(ctx context.Context, address string) error {
	return s.requestCode(ctx, address, otp.PurposePasswordReset)
}

// RequestVerification issues an email-confirmation code, with the same
// anti-enumeration behavior as RequestReset.
func (s *Service) RequestVerification(ctx context.Context, address string) error {
	return s.requestCode(ctx, address, otp.PurposeVerifyEmail)
}

func (s *Service) requestCode(ctx context.Context, address, purpose string) error {
	user, err := s.repo.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(timingDummy, []byte(address))
			return nil
		}
		return fmt.Errorf("looking up account: %w", err)
	}

	return s.issuer.Issue(ctx, user.Email, purpose)
}

// CommitReset validates the submitted code and, if it consumes, writes
// the new credential and invalidates every session of the user. The
// session sweep is hardening, not a correctness requirement: a partial
// failure there is logged and the commit still succeeds. If the
// credential write fails after the code was consumed, the code stays
// spent and the caller must request a fresh one.
func (s *Service) CommitReset(ctx context.Context, address, code, newPassword string) error {
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	ok, err := s.issuer.ValidateAndConsume(ctx, address, otp.PurposePasswordReset, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredCode
	}

	user, err := s.repo.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("looking up account: %w", err)
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}

	if count, err := s.sessions.InvalidateAll(ctx, user.ID); err != nil {
		slog.Error("session sweep after reset failed", "user_id", user.PublicID, "error", err)
	} else {
		slog.Info("password reset committed", "user_id", user.PublicID, "sessions_invalidated", count)
	}

	return nil
}

// ConfirmVerification consumes an email-confirmation code and marks
// the account verified.
func (s *Service) ConfirmVerification(ctx context.Context, address, code string) error {
	ok, err := s.issuer.ValidateAndConsume(ctx, address, otp.PurposeVerifyEmail, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredCode
	}

	user, err := s.repo.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("looking up account: %w", err)
	}

	if err := s.repo.SetEmailVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("marking email verified: %w", err)
	}

	slog.Info("email verified", "user_id", user.PublicID)
	return nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and validates short-lived numeric one-time codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/gatekit/gatekit/internal/models"
	"github.com/gatekit/gatekit/internal/repository"
	"github.com/gatekit/gatekit/internal/services/email"
)

// Code purposes. A code only ever validates for the purpose it was
// issued under.
const (
	PurposePasswordReset = "forget-password"
	PurposeVerifyEmail   = "verify-email"
)

// CodeLength is the number of digits in a code.
const CodeLength = 6

// ErrDispatchFailed signals that the code was stored but could not be
// delivered. The code stays valid; a retried request reaches it.
var ErrDispatchFailed = errors.New("code dispatch failed")

// Issuer mints, stores and validates one-time codes.
type Issuer struct {
	repo        *repository.Repository
	dispatcher  email.Dispatcher
	ttl         time.Duration
	maxAttempts int
}

// NewIssuer creates an Issuer.
func NewIssuer(repo *repository.Repository, dispatcher email.Dispatcher, ttl time.Duration, maxAttempts int) *Issuer {
	return &Issuer{
		repo:        repo,
		dispatcher:  dispatcher,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

// Issue generates a fresh code for the (email, purpose) pair, retiring
// any previous active code, and dispatches it out-of-band. The raw code
// is never returned or logged; it only travels through the dispatcher.
func (i *Issuer) Issue(ctx context.Context, address, purpose string) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}

	now := time.Now().UTC()
	record := &models.OneTimeCode{
		Email:     strings.ToLower(address),
		Purpose:   purpose,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	if err := i.repo.ReplaceActiveCode(ctx, record); err != nil {
		return fmt.Errorf("storing code: %w", err)
	}

	if err := i.dispatcher.SendCode(ctx, record.Email, purpose, code); err != nil {
		// Issuance stands; the stored code is reachable by a retry.
		slog.Error("code dispatch failed", "purpose", purpose, "error", err)
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	return nil
}

// ValidateAndConsume checks a submitted code and, on a match, marks it
// consumed in the same atomic store operation. It fails closed: a
// missing record, an expired or consumed code, an exhausted attempt cap
// and a plain mismatch all report false without distinction. A wrong
// guess increments the persistent attempt counter.
func (i *Issuer) ValidateAndConsume(ctx context.Context, address, purpose, code string) (bool, error) {
	address = strings.ToLower(address)
	now := time.Now().UTC()

	ok, err := i.repo.ConsumeCode(ctx, address, purpose, code, i.maxAttempts, now)
	if err != nil {
		return false, fmt.Errorf("consuming code: %w", err)
	}
	if ok {
		return true, nil
	}

	if err := i.repo.CountWrongAttempt(ctx, address, purpose, i.maxAttempts, now); err != nil {
		return false, fmt.Errorf("counting attempt: %w", err)
	}
	return false, nil
}

// generateCode returns a uniformly random 6-digit code, leading zeros
// preserved.
func generateCode() (string, error) {
	max := big.NewInt(1)
	for range CodeLength {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"
)

// Noop is a Dispatcher that drops every message. It keeps the code
// flows working in environments without an SMTP server; the code itself
// is never logged.
type Noop struct{}

// NewNoop creates a Noop dispatcher.
func NewNoop() *Noop {
	return &Noop{}
}

// SendCode logs that a code was dropped and discards it.
func (n *Noop) SendCode(_ context.Context, to, purpose, _ string) error {
	slog.Warn("dropping one-time code, no mail dispatcher configured", "to", to, "purpose", purpose)
	return nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON HTTP surface.
package handlers

import (
	"net/http"

	"github.com/gatekit/gatekit/internal/repository"
	"github.com/labstack/echo/v4"
)

// Handlers contains the plain page/API handlers.
type Handlers struct {
	repo *repository.Repository
}

// New creates a Handlers instance.
func New(repo *repository.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// Health is the liveness endpoint.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

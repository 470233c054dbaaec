package handlers

import (
	"errors"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/http/dto"
	"github.com/adpilot/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps the error taxonomy onto HTTP statuses. Internal details
// are logged, not returned.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, msg := fiber.StatusInternalServerError, "internal error"

	var (
		ve  *apperr.ValidationError
		qe  *apperr.QueueConnectivityError
		pme *apperr.PlatformMirrorError
	)
	switch {
	case errors.As(err, &ve):
		status, msg = fiber.StatusBadRequest, ve.Error()
	case errors.Is(err, apperr.ErrNotFound):
		status, msg = fiber.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrTurnInProgress):
		status, msg = fiber.StatusConflict, err.Error()
	case errors.As(err, &qe):
		status, msg = fiber.StatusServiceUnavailable, "generation queue unavailable, try again later"
	case errors.As(err, &pme):
		status, msg = fiber.StatusBadGateway, "ad platform request failed: "+pme.Error()
	}

	reqID := middleware.GetRequestID(c)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", reqID), zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: reqID})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

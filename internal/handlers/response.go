package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
)

// Pagination is the page envelope attached to list responses.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(total int64, page, limit int) Pagination {
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// OK writes the uniform success envelope.
func OK(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// Created writes the success envelope with a 201 status.
func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

// Page writes the success envelope with pagination.
func Page(c *fiber.Ctx, data any, p Pagination) error {
	return c.JSON(fiber.Map{"success": true, "data": data, "pagination": p})
}

// Fail maps a business error onto its status code. Anything outside the
// taxonomy is a store/internal failure and surfaces as a generic 500.
func Fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, apperrors.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, apperrors.ErrConflict):
		status = fiber.StatusConflict
	default:
		message = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

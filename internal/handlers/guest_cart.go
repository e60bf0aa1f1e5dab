package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/middleware"
)

// GuestCartHandler manages the pre-login cart.
type GuestCartHandler struct {
	svc *checkout.Service
}

// NewGuestCartHandler constructs GuestCartHandler.
func NewGuestCartHandler(svc *checkout.Service) *GuestCartHandler {
	return &GuestCartHandler{svc: svc}
}

// List returns the session's guest lines.
func (h *GuestCartHandler) List(c *fiber.Ctx) error {
	lines, err := h.svc.GuestCart(c.UserContext(), middleware.GetSessionID(c))
	if err != nil {
		return err
	}
	return respondOK(c, fiber.Map{"items": lines})
}

// AddItem adds a line or raises the quantity of an existing one.
func (h *GuestCartHandler) AddItem(c *fiber.Ctx) error {
	var req checkout.GuestCartLine
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.ID = ""

	lines, err := h.svc.AddGuestItem(c.UserContext(), middleware.GetSessionID(c), req)
	if err != nil {
		return err
	}
	return respondCreated(c, fiber.Map{"items": lines})
}

// RemoveItem drops one line.
func (h *GuestCartHandler) RemoveItem(c *fiber.Ctx) error {
	lines, err := h.svc.RemoveGuestItem(c.UserContext(), middleware.GetSessionID(c), c.Params("itemId"))
	if err != nil {
		return err
	}
	return respondOK(c, fiber.Map{"items": lines})
}

// Clear empties the guest cart.
func (h *GuestCartHandler) Clear(c *fiber.Ctx) error {
	if err := h.svc.ClearGuestCart(c.UserContext(), middleware.GetSessionID(c)); err != nil {
		return err
	}
	return respondOK(c, fiber.Map{"items": []checkout.GuestCartLine{}})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/middleware"
	"github.com/example/pharmacy-checkout/internal/utils"
)

// CheckoutHandler serves the checkout page state.
type CheckoutHandler struct {
	svc *checkout.Service
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// View merges any guest cart, fetches the cart and prices the selection.
// ?selected=a,b narrows the selection for this and later requests.
func (h *CheckoutHandler) View(c *fiber.Ctx) error {
	view, err := h.svc.Checkout(
		c.UserContext(),
		middleware.GetAuth(c),
		middleware.GetSessionID(c),
		utils.ParseIDList(c, "selected"),
	)
	if err != nil {
		return err
	}
	return respondOK(c, view)
}

type selectionRequest struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,dive,required,max=64"`
}

// SetSelection replaces the selection.
func (h *CheckoutHandler) SetSelection(c *fiber.Ctx) error {
	var req selectionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid("invalid request body")
	}
	if len(req.ProductIDs) == 0 {
		return checkout.ErrEmptySelection
	}
	if err := validateStruct(&req); err != nil {
		return err
	}

	view, err := h.svc.SetSelection(c.UserContext(), middleware.GetAuth(c), middleware.GetSessionID(c), req.ProductIDs)
	if err != nil {
		return err
	}
	return respondOK(c, view)
}

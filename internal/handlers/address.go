package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/middleware"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

// AddressHandler manages delivery addresses.
type AddressHandler struct {
	svc *checkout.Service
}

// NewAddressHandler constructs AddressHandler.
func NewAddressHandler(svc *checkout.Service) *AddressHandler {
	return &AddressHandler{svc: svc}
}

// List returns saved addresses and the selected one.
func (h *AddressHandler) List(c *fiber.Ctx) error {
	book, err := h.svc.ListAddresses(c.UserContext(), middleware.GetAuth(c), middleware.GetSessionID(c))
	if err != nil {
		return err
	}
	return respondOK(c, book)
}

// Create saves a new address.
func (h *AddressHandler) Create(c *fiber.Ctx) error {
	payload, err := parseAddress(c)
	if err != nil {
		return err
	}

	addr, err := h.svc.SaveAddress(c.UserContext(), middleware.GetAuth(c), middleware.GetSessionID(c), "", payload)
	if err != nil {
		return err
	}
	return respondCreated(c, addr)
}

// Update replaces an existing address.
func (h *AddressHandler) Update(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return invalid("address id is required")
	}

	payload, err := parseAddress(c)
	if err != nil {
		return err
	}

	addr, err := h.svc.SaveAddress(c.UserContext(), middleware.GetAuth(c), middleware.GetSessionID(c), id, payload)
	if err != nil {
		return err
	}
	return respondOK(c, addr)
}

// Delete removes an address.
func (h *AddressHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.DeleteAddress(c.UserContext(), middleware.GetAuth(c), middleware.GetSessionID(c), c.Params("id")); err != nil {
		return err
	}
	return respondOK(c, fiber.Map{"deleted": c.Params("id")})
}

// Select makes an address the delivery address.
func (h *AddressHandler) Select(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svc.SelectAddress(c.UserContext(), middleware.GetAuth(c), middleware.GetSessionID(c), id); err != nil {
		return err
	}
	return respondOK(c, fiber.Map{"selectedId": id})
}

func parseAddress(c *fiber.Ctx) (storefront.AddressPayload, error) {
	var payload storefront.AddressPayload
	if err := c.BodyParser(&payload); err != nil {
		return payload, invalid("invalid request body")
	}

	payload.Name = strings.TrimSpace(payload.Name)
	payload.PhoneNumber = strings.TrimSpace(payload.PhoneNumber)
	payload.Address = strings.TrimSpace(payload.Address)
	payload.City = strings.TrimSpace(payload.City)
	payload.State = strings.TrimSpace(payload.State)
	payload.Pincode = strings.TrimSpace(payload.Pincode)
	payload.Label = strings.TrimSpace(payload.Label)

	return payload, validateStruct(&payload)
}

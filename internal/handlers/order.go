package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/middleware"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

// MaxPrescriptionSize bounds an uploaded prescription file.
const MaxPrescriptionSize = 10 << 20

var prescriptionTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
}

// OrderHandler places orders.
type OrderHandler struct {
	svc *checkout.Service
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(svc *checkout.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type submitOrderRequest struct {
	PaymentMethod      string   `json:"paymentMethod" form:"paymentMethod" validate:"omitempty,oneof=cod online COD ONLINE"`
	AddressID          string   `json:"addressId" form:"addressId" validate:"max=64"`
	SelectedProductIDs []string `json:"selectedProductIds" form:"selectedProductIds" validate:"dive,max=64"`
}

// Submit places the order. Multipart bodies may carry a `prescription` file.
func (h *OrderHandler) Submit(c *fiber.Ctx) error {
	var req submitOrderRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	prescription, cleanup, err := prescriptionFromForm(c)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := h.svc.SubmitOrder(c.UserContext(), middleware.GetAuth(c), middleware.GetSessionID(c), checkout.SubmitRequest{
		PaymentMethod: checkout.PaymentMethod(req.PaymentMethod),
		AddressID:     req.AddressID,
		Selection:     splitSelection(req.SelectedProductIDs),
		Prescription:  prescription,
	})
	if err != nil {
		return err
	}
	return respondCreated(c, result)
}

// Last returns the most recent order placed in this session.
func (h *OrderHandler) Last(c *fiber.Ctx) error {
	order, found, err := h.svc.LastOrder(c.UserContext(), middleware.GetSessionID(c))
	if err != nil {
		return err
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "no order has been placed in this session")
	}
	return respondOK(c, order)
}

func prescriptionFromForm(c *fiber.Ctx) (*storefront.PrescriptionUpload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, noop, nil
	}

	fh, err := c.FormFile("prescription")
	if err != nil {
		return nil, noop, nil
	}
	if fh.Size > MaxPrescriptionSize {
		return nil, noop, invalid(fmt.Sprintf("prescription must be at most %d MB", MaxPrescriptionSize>>20))
	}

	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType != "" && !prescriptionTypes[strings.ToLower(contentType)] {
		return nil, noop, invalid("prescription must be a PDF or an image")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open prescription: %w", err)
	}

	return &storefront.PrescriptionUpload{
		FileName:    fh.Filename,
		ContentType: contentType,
		Reader:      f,
	}, func() { _ = f.Close() }, nil
}

// splitSelection accepts ids as separate values or comma-joined.
func splitSelection(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/sessionstore"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

const notifyTimeout = 10 * time.Second

// SubmitRequest is what the customer confirms on the checkout page.
type SubmitRequest struct {
	PaymentMethod PaymentMethod
	// AddressID overrides the session's selected address when set.
	AddressID string
	// Selection overrides the session's selection. Ids no longer in the cart are
	// dropped, and if none remain nothing is ordered.
	Selection    []string
	Prescription *storefront.PrescriptionUpload
}

// ParsePaymentMethod accepts cod and online; empty means cod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", PaymentCOD:
		return PaymentCOD, nil
	case PaymentOnline:
		return PaymentOnline, nil
	}
	return "", newError(KindValidationFailed, fmt.Sprintf("unsupported payment method %q", s), nil)
}

// SubmitOrder places the order for the session's selected lines.
//
// Steps run in order: local preconditions, cart fetch, optional prescription upload,
// order POST, normalization. A failed prescription upload only adds a warning.
// One submission per session may be in flight at a time.
func (s *Service) SubmitOrder(ctx context.Context, auth AuthContext, sessionID string, req SubmitRequest) (SubmitResult, error) {
	if !auth.Authenticated() {
		return SubmitResult{}, newError(KindAuthRequired, msgAuthRequired, nil)
	}

	addressID := strings.TrimSpace(req.AddressID)
	if addressID == "" {
		id, err := s.SelectedAddressID(ctx, sessionID)
		if err != nil {
			return SubmitResult{}, err
		}
		addressID = id
	}
	if addressID == "" {
		return SubmitResult{}, newError(KindNoAddress, msgNoAddress, nil)
	}

	method, err := ParsePaymentMethod(string(req.PaymentMethod))
	if err != nil {
		return SubmitResult{}, err
	}

	if !s.beginSubmit(sessionID) {
		return SubmitResult{}, newError(KindSubmissionInProgress, msgInProgress, nil)
	}
	defer s.endSubmit(sessionID)

	rawCart, err := s.api.GetCart(ctx, auth.Token)
	if err != nil {
		return SubmitResult{}, classify(err)
	}
	cart := NormalizeCart(s.shapes, rawCart)
	if len(cart.Items) == 0 {
		return SubmitResult{}, newError(KindEmptySelection, msgEmptySelection, nil)
	}

	sel := ConfirmedSelection(cart, req.Selection, s.previousSelection(ctx, sessionID), s.persistedSelection(ctx, sessionID))
	lines := matchingLines(cart, sel)
	if len(lines) == 0 {
		return SubmitResult{}, newError(KindEmptySelection, msgEmptySelection, nil)
	}

	var warnings []Warning
	prescriptionID := ""
	if req.Prescription != nil {
		prescriptionID, err = s.uploadPrescription(ctx, auth, *req.Prescription)
		if err != nil {
			s.log.Warn("prescription upload failed, placing order without it",
				zap.String("session", sessionID),
				zap.Error(err),
			)
			warnings = append(warnings, Warning{
				Kind:    KindNonFatalAdvisory,
				Message: "prescription could not be uploaded; the order was placed without it",
			})
		}
	}

	fallback := s.cachedAddress(ctx, sessionID, addressID)
	draft := buildDraft(method, addressID, lines, fallback, prescriptionID)

	idempotencyKey := uuid.NewString()
	raw, err := s.api.Checkout(ctx, auth.Token, draft, idempotencyKey)
	if err != nil {
		s.log.Warn("order submission failed",
			zap.String("session", sessionID),
			zap.String("idempotency_key", idempotencyKey),
			zap.Error(err),
		)
		return SubmitResult{}, classify(err)
	}

	order := Normalize(s.shapes, raw, fallback)
	if order.PrescriptionID == "" {
		order.PrescriptionID = prescriptionID
	}

	s.afterOrder(ctx, sessionID, order)

	s.log.Info("order placed",
		zap.String("session", sessionID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(lines)),
		zap.Int("warnings", len(warnings)),
	)

	return SubmitResult{Order: order, Warnings: warnings}, nil
}

// LastOrder returns the most recently placed order for the session.
func (s *Service) LastOrder(ctx context.Context, sessionID string) (CanonicalOrder, bool, error) {
	var order CanonicalOrder
	found, err := s.load(ctx, sessionID, sessionstore.KeyLastOrder, &order)
	if err != nil {
		return CanonicalOrder{}, false, fmt.Errorf("load last order: %w", err)
	}
	return order, found, nil
}

func (s *Service) uploadPrescription(ctx context.Context, auth AuthContext, file storefront.PrescriptionUpload) (string, error) {
	raw, err := s.api.UploadPrescription(ctx, auth.Token, file)
	if err != nil {
		return "", err
	}

	obj, _ := raw.(map[string]any)
	id := s.shapes.Prescription.String(obj, "id")
	if id == "" {
		return "", errors.New("prescription response carried no id")
	}
	return id, nil
}

func buildDraft(method PaymentMethod, addressID string, lines []CartLine, shipping *Address, prescriptionID string) storefront.OrderDraft {
	items := make([]storefront.SelectedItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, storefront.SelectedItem{
			CartItemID: line.ID,
			ProductID:  line.Product.ID,
			Quantity:   line.Quantity,
		})
	}

	draft := storefront.OrderDraft{
		PaymentMethod:  string(method),
		SelectedItems:  items,
		AddressID:      addressID,
		PrescriptionID: prescriptionID,
	}
	if shipping != nil {
		payload := payloadFromAddress(*shipping)
		draft.ShippingAddress = &payload
	}
	return draft
}

// afterOrder records the receipt, drops the consumed selection and tells observers.
func (s *Service) afterOrder(ctx context.Context, sessionID string, order CanonicalOrder) {
	if err := s.store.Put(ctx, sessionID, sessionstore.KeyLastOrder, order); err != nil {
		s.log.Error("failed to persist last order", zap.String("session", sessionID), zap.Error(err))
	}
	if err := s.store.Delete(ctx, sessionID, sessionstore.KeySelection); err != nil {
		s.log.Warn("failed to clear selection", zap.String("session", sessionID), zap.Error(err))
	}
	s.rememberSelection(ctx, sessionID, nil)
	s.publish(sessionID, EventCartChanged)

	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyOrderPlaced(ctx, order); err != nil {
			s.log.Warn("order notification failed", zap.String("order_number", order.OrderNumber), zap.Error(err))
		}
	}()
}

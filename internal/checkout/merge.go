package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/sessionstore"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

// MergeAndFetchCart folds the guest cart into the storefront cart and returns the
// authoritative cart.
//
// Guest lines are upserted one at a time; a refused line is logged and reported in
// Failures without stopping the merge. The guest cart is cleared afterwards even
// when some lines failed, so a retry cannot add them twice.
func (s *Service) MergeAndFetchCart(ctx context.Context, auth AuthContext, sessionID string) (MergeOutcome, error) {
	unlock := s.lockGuest(sessionID)
	guest, err := s.loadGuestCart(ctx, sessionID)
	if err != nil {
		unlock()
		return MergeOutcome{}, err
	}

	if !auth.Authenticated() {
		unlock()
		if len(guest) > 0 {
			return MergeOutcome{}, newError(KindAuthRequired, msgAuthRequired, nil)
		}
		return MergeOutcome{}, newError(KindEmptyCart, msgEmptyCart, nil)
	}

	var failures []MergeFailure
	if len(guest) > 0 {
		failures = s.mergeGuestLines(ctx, auth, sessionID, guest)
		if err := s.store.Delete(ctx, sessionID, sessionstore.KeyGuestCart); err != nil {
			s.log.Error("failed to clear guest cart", zap.String("session", sessionID), zap.Error(err))
		}
	}
	unlock()

	raw, err := s.api.GetCart(ctx, auth.Token)
	if err != nil {
		return MergeOutcome{Failures: failures}, classify(err)
	}

	cart := NormalizeCart(s.shapes, raw)
	s.publish(sessionID, EventCartChanged)

	return MergeOutcome{Cart: cart, Failures: failures}, nil
}

func (s *Service) mergeGuestLines(ctx context.Context, auth AuthContext, sessionID string, guest []GuestCartLine) []MergeFailure {
	var failures []MergeFailure
	for _, line := range guest {
		req := storefront.CartItemRequest{Quantity: line.Quantity}
		if line.ItemType == ItemMedicine {
			req.MedicineID = line.MedicineID
		} else {
			req.ProductID = line.ProductID
		}

		if err := s.api.UpsertCartItem(ctx, auth.Token, req); err != nil {
			s.log.Warn("guest cart line not merged",
				zap.String("session", sessionID),
				zap.String("item_type", string(line.ItemType)),
				zap.String("ref", line.RefID()),
				zap.Error(err),
			)
			failures = append(failures, MergeFailure{Line: line, Message: failureMessage(err)})
		}
	}

	if len(failures) > 0 {
		s.log.Info("guest cart merged with failures",
			zap.String("session", sessionID),
			zap.Int("lines", len(guest)),
			zap.Int("failed", len(failures)),
		)
	}
	return failures
}

// Checkout merges, resolves the selection and prices it. incoming, when non-empty,
// is an explicit selection that replaces the persisted one.
func (s *Service) Checkout(ctx context.Context, auth AuthContext, sessionID string, incoming []string) (View, error) {
	outcome, err := s.MergeAndFetchCart(ctx, auth, sessionID)
	if err != nil {
		return View{}, err
	}

	sel, err := s.resolve(ctx, sessionID, outcome.Cart, incoming)
	if err != nil {
		return View{}, err
	}

	var selectedAddress string
	if _, err := s.load(ctx, sessionID, sessionstore.KeySelectedAddress, &selectedAddress); err != nil {
		s.log.Warn("failed to load selected address", zap.String("session", sessionID), zap.Error(err))
	}

	return View{
		Cart:                  outcome.Cart,
		Selection:             sel,
		Lines:                 SelectedLines(outcome.Cart, sel),
		Totals:                ComputeTotals(outcome.Cart, sel, s.pricing),
		FreeDeliveryThreshold: s.pricing.FreeDeliveryThreshold,
		SelectedAddressID:     selectedAddress,
		MergeFailures:         outcome.Failures,
	}, nil
}

// SetSelection records an explicit selection and returns the repriced view.
func (s *Service) SetSelection(ctx context.Context, auth AuthContext, sessionID string, productIDs []string) (View, error) {
	if len(productIDs) == 0 {
		return View{}, newError(KindEmptySelection, msgEmptySelection, nil)
	}
	return s.Checkout(ctx, auth, sessionID, productIDs)
}

// resolve applies ResolveSelection with the session's persisted and previously
// rendered selections. An explicit selection that matches the cart is persisted;
// a persisted one with nothing left in the cart is dropped.
func (s *Service) resolve(ctx context.Context, sessionID string, cart Cart, incoming []string) (SelectionSet, error) {
	persisted := s.persistedSelection(ctx, sessionID)
	sel := ResolveSelection(cart, incoming, s.previousSelection(ctx, sessionID), persisted)

	ids := cart.ProductIDs()
	switch {
	case len(incoming) > 0 && len(intersect(ids, incoming)) > 0:
		if err := s.store.Put(ctx, sessionID, sessionstore.KeySelection, sel); err != nil {
			return nil, fmt.Errorf("persist selection: %w", err)
		}
	case len(persisted) > 0 && len(intersect(ids, persisted)) == 0:
		if err := s.store.Delete(ctx, sessionID, sessionstore.KeySelection); err != nil {
			s.log.Warn("failed to drop stale selection", zap.String("session", sessionID), zap.Error(err))
		}
	}

	s.rememberSelection(ctx, sessionID, sel)
	return sel, nil
}

func (s *Service) persistedSelection(ctx context.Context, sessionID string) []string {
	var persisted []string
	if _, err := s.load(ctx, sessionID, sessionstore.KeySelection, &persisted); err != nil {
		s.log.Warn("failed to load persisted selection", zap.String("session", sessionID), zap.Error(err))
	}
	return persisted
}

func failureMessage(err error) string {
	if apiErr, ok := storefront.AsAPIError(err); ok {
		return apiErr.Message
	}
	return msgUpstreamUnavailable
}

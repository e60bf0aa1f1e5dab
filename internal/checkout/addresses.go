package checkout

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/sessionstore"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

// ListAddresses returns the customer's saved addresses.
//
// The primary endpoint is tried first; only when it fails is the legacy endpoint
// called. A failure of the legacy endpoint is returned to the caller.
func (s *Service) ListAddresses(ctx context.Context, auth AuthContext, sessionID string) (AddressBook, error) {
	if !auth.Authenticated() {
		return AddressBook{}, newError(KindAuthRequired, msgAuthRequired, nil)
	}

	raw, err := s.api.ListAddresses(ctx, auth.Token)
	if err != nil {
		s.log.Warn("primary address list failed, trying saved addresses",
			zap.String("session", sessionID),
			zap.Error(err),
		)

		raw, err = s.api.ListSavedAddresses(ctx, auth.Token)
		if err != nil {
			return AddressBook{}, classify(err)
		}
	}

	addresses := NormalizeAddresses(s.shapes, raw)
	if err := s.store.Put(ctx, sessionID, sessionstore.KeyAddresses, addresses); err != nil {
		s.log.Warn("failed to cache addresses", zap.String("session", sessionID), zap.Error(err))
	}

	book := AddressBook{Addresses: addresses}
	if _, err := s.load(ctx, sessionID, sessionstore.KeySelectedAddress, &book.SelectedID); err != nil {
		s.log.Warn("failed to load selected address", zap.String("session", sessionID), zap.Error(err))
	}
	return book, nil
}

// SelectAddress makes addressID the delivery target for this session. The
// storefront is told first; last write wins.
func (s *Service) SelectAddress(ctx context.Context, auth AuthContext, sessionID, addressID string) error {
	if !auth.Authenticated() {
		return newError(KindAuthRequired, msgAuthRequired, nil)
	}
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return newError(KindNoAddress, msgNoAddress, nil)
	}

	if err := s.api.SelectAddress(ctx, auth.Token, addressID); err != nil {
		return classify(err)
	}

	if err := s.store.Put(ctx, sessionID, sessionstore.KeySelectedAddress, addressID); err != nil {
		return fmt.Errorf("save selected address: %w", err)
	}
	return nil
}

// SaveAddress creates the address when id is empty and updates it otherwise.
func (s *Service) SaveAddress(ctx context.Context, auth AuthContext, sessionID, id string, payload storefront.AddressPayload) (Address, error) {
	if !auth.Authenticated() {
		return Address{}, newError(KindAuthRequired, msgAuthRequired, nil)
	}

	isUpdate := strings.TrimSpace(id) != ""

	var (
		raw any
		err error
	)
	if isUpdate {
		raw, err = s.api.UpdateAddress(ctx, auth.Token, id, payload)
	} else {
		raw, err = s.api.CreateAddress(ctx, auth.Token, payload)
	}
	if err != nil {
		return Address{}, classify(err)
	}

	saved := NormalizeAddress(s.shapes, raw)
	if saved.ID == "" {
		saved = addressFromPayload(id, payload)
	}

	if saved.ID != "" {
		s.updateCachedAddresses(ctx, sessionID, func(list []Address) []Address {
			for i := range list {
				if list[i].ID == saved.ID {
					list[i] = saved
					return list
				}
			}
			return append(list, saved)
		})
	}

	return saved, nil
}

// DeleteAddress removes an address. If it was the selected one, the local
// selection is cleared so no order can be placed against it.
func (s *Service) DeleteAddress(ctx context.Context, auth AuthContext, sessionID, id string) error {
	if !auth.Authenticated() {
		return newError(KindAuthRequired, msgAuthRequired, nil)
	}
	if strings.TrimSpace(id) == "" {
		return newError(KindValidationFailed, "address id is required", nil)
	}

	if err := s.api.DeleteAddress(ctx, auth.Token, id); err != nil {
		return classify(err)
	}

	var selected string
	if _, err := s.load(ctx, sessionID, sessionstore.KeySelectedAddress, &selected); err != nil {
		return fmt.Errorf("load selected address: %w", err)
	}
	if selected == id {
		if err := s.store.Delete(ctx, sessionID, sessionstore.KeySelectedAddress); err != nil {
			return fmt.Errorf("clear selected address: %w", err)
		}
	}

	s.updateCachedAddresses(ctx, sessionID, func(list []Address) []Address {
		kept := list[:0]
		for _, a := range list {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		return kept
	})
	return nil
}

// SelectedAddressID returns the session's delivery address id, or "".
func (s *Service) SelectedAddressID(ctx context.Context, sessionID string) (string, error) {
	var id string
	if _, err := s.load(ctx, sessionID, sessionstore.KeySelectedAddress, &id); err != nil {
		return "", fmt.Errorf("load selected address: %w", err)
	}
	return id, nil
}

func (s *Service) cachedAddress(ctx context.Context, sessionID, id string) *Address {
	var list []Address
	if _, err := s.load(ctx, sessionID, sessionstore.KeyAddresses, &list); err != nil {
		s.log.Warn("failed to load cached addresses", zap.String("session", sessionID), zap.Error(err))
		return nil
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

func (s *Service) updateCachedAddresses(ctx context.Context, sessionID string, update func([]Address) []Address) {
	var list []Address
	found, err := s.load(ctx, sessionID, sessionstore.KeyAddresses, &list)
	if err != nil || !found {
		return
	}
	if err := s.store.Put(ctx, sessionID, sessionstore.KeyAddresses, update(list)); err != nil {
		s.log.Warn("failed to update cached addresses", zap.String("session", sessionID), zap.Error(err))
	}
}

func addressFromPayload(id string, p storefront.AddressPayload) Address {
	return Address{
		ID:          id,
		Name:        p.Name,
		PhoneNumber: p.PhoneNumber,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		Pincode:     p.Pincode,
		Label:       p.Label,
	}
}

func payloadFromAddress(a Address) storefront.AddressPayload {
	return storefront.AddressPayload{
		Name:        a.Name,
		PhoneNumber: a.PhoneNumber,
		Address:     a.Address,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
		Label:       a.Label,
	}
}

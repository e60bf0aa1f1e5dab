package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/pharmacy-checkout/internal/sessionstore"
)

// GuestCart lists the session's guest lines.
func (s *Service) GuestCart(ctx context.Context, sessionID string) ([]GuestCartLine, error) {
	return s.loadGuestCart(ctx, sessionID)
}

// AddGuestItem adds a line, or raises the quantity of the line with the same item.
func (s *Service) AddGuestItem(ctx context.Context, sessionID string, line GuestCartLine) ([]GuestCartLine, error) {
	if line.ItemType != ItemProduct && line.ItemType != ItemMedicine {
		return nil, newError(KindValidationFailed, "itemType must be product or medicine", nil)
	}
	if line.RefID() == "" {
		return nil, newError(KindValidationFailed, fmt.Sprintf("%sId is required", line.ItemType), nil)
	}
	if line.Quantity < 1 {
		return nil, newError(KindValidationFailed, "quantity must be at least 1", nil)
	}

	defer s.lockGuest(sessionID)()

	lines, err := s.loadGuestCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range lines {
		if lines[i].ItemType == line.ItemType && lines[i].RefID() == line.RefID() {
			lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		line.ID = uuid.NewString()
		if line.ItemType == ItemMedicine {
			line.ProductID = ""
		} else {
			line.MedicineID = ""
		}
		lines = append(lines, line)
	}

	if err := s.store.Put(ctx, sessionID, sessionstore.KeyGuestCart, lines); err != nil {
		return nil, fmt.Errorf("save guest cart: %w", err)
	}

	s.publish(sessionID, EventCartChanged)
	return lines, nil
}

// RemoveGuestItem drops one guest line by id. Unknown ids are ignored.
func (s *Service) RemoveGuestItem(ctx context.Context, sessionID, lineID string) ([]GuestCartLine, error) {
	defer s.lockGuest(sessionID)()

	lines, err := s.loadGuestCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kept := lines[:0]
	for _, l := range lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}

	if len(kept) == 0 {
		err = s.store.Delete(ctx, sessionID, sessionstore.KeyGuestCart)
	} else {
		err = s.store.Put(ctx, sessionID, sessionstore.KeyGuestCart, kept)
	}
	if err != nil {
		return nil, fmt.Errorf("save guest cart: %w", err)
	}

	s.publish(sessionID, EventCartChanged)
	return kept, nil
}

// ClearGuestCart removes every guest line.
func (s *Service) ClearGuestCart(ctx context.Context, sessionID string) error {
	defer s.lockGuest(sessionID)()

	if err := s.store.Delete(ctx, sessionID, sessionstore.KeyGuestCart); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	s.publish(sessionID, EventCartChanged)
	return nil
}

func (s *Service) loadGuestCart(ctx context.Context, sessionID string) ([]GuestCartLine, error) {
	lines := []GuestCartLine{}
	if _, err := s.load(ctx, sessionID, sessionstore.KeyGuestCart, &lines); err != nil {
		return nil, fmt.Errorf("load guest cart: %w", err)
	}
	return lines, nil
}

// Package checkout reconciles a guest cart with the storefront cart, tracks what the
// customer selected, prices the selection, and places the order.
package checkout

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/sessionstore"
	"github.com/example/pharmacy-checkout/internal/shape"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

// EventCartChanged is published whenever a session's cart may have changed.
const EventCartChanged = "cart.changed"

// Storefront is the subset of the storefront API the pipeline calls.
type Storefront interface {
	GetCart(ctx context.Context, token string) (any, error)
	UpsertCartItem(ctx context.Context, token string, item storefront.CartItemRequest) error
	ListAddresses(ctx context.Context, token string) (any, error)
	ListSavedAddresses(ctx context.Context, token string) (any, error)
	CreateAddress(ctx context.Context, token string, addr storefront.AddressPayload) (any, error)
	UpdateAddress(ctx context.Context, token, id string, addr storefront.AddressPayload) (any, error)
	DeleteAddress(ctx context.Context, token, id string) error
	SelectAddress(ctx context.Context, token, id string) error
	UploadPrescription(ctx context.Context, token string, file storefront.PrescriptionUpload) (any, error)
	Checkout(ctx context.Context, token string, draft storefront.OrderDraft, idempotencyKey string) (any, error)
}

// Publisher fans session events out to observers.
type Publisher interface {
	Publish(sessionID, eventType string)
}

// OrderNotifier is told about every placed order.
type OrderNotifier interface {
	NotifyOrderPlaced(ctx context.Context, order CanonicalOrder) error
}

// Options configures a Service.
type Options struct {
	Storefront Storefront
	Store      sessionstore.Store
	Shapes     *shape.Schema
	Pricing    Pricing
	Publisher  Publisher
	Notifier   OrderNotifier
	Logger     *zap.Logger
}

// Service runs the checkout pipeline for many sessions.
type Service struct {
	api      Storefront
	store    sessionstore.Store
	shapes   *shape.Schema
	pricing  Pricing
	events   Publisher
	notifier OrderNotifier
	log      *zap.Logger

	mu         sync.Mutex
	guestLocks map[string]*sessionLock
	submitting map[string]struct{}
}

type sessionLock struct {
	mu      sync.Mutex
	holders int
}

// NewService builds a Service. Store and Storefront are required.
func NewService(opts Options) *Service {
	if opts.Shapes == nil {
		opts.Shapes = shape.Default()
	}
	if opts.Pricing.FreeDeliveryThreshold.IsZero() {
		opts.Pricing = DefaultPricing()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		api:        opts.Storefront,
		store:      opts.Store,
		shapes:     opts.Shapes,
		pricing:    opts.Pricing,
		events:     opts.Publisher,
		notifier:   opts.Notifier,
		log:        opts.Logger.Named("checkout"),
		guestLocks: make(map[string]*sessionLock),
		submitting: make(map[string]struct{}),
	}
}

// Pricing returns the delivery rules in effect.
func (s *Service) Pricing() Pricing {
	return s.pricing
}

func (s *Service) publish(sessionID, eventType string) {
	if s.events != nil {
		s.events.Publish(sessionID, eventType)
	}
}

// load reads key into dst. A missing value reports false without error.
func (s *Service) load(ctx context.Context, sessionID, key string, dst any) (bool, error) {
	err := s.store.Get(ctx, sessionID, key, dst)
	if errors.Is(err, sessionstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// previousSelection is the selection the checkout page last rendered for the session.
func (s *Service) previousSelection(ctx context.Context, sessionID string) SelectionSet {
	var sel SelectionSet
	if _, err := s.load(ctx, sessionID, sessionstore.KeyPreviousSelection, &sel); err != nil {
		s.log.Warn("failed to load previous selection", zap.String("session", sessionID), zap.Error(err))
	}
	return sel
}

func (s *Service) rememberSelection(ctx context.Context, sessionID string, sel SelectionSet) {
	var err error
	if len(sel) == 0 {
		err = s.store.Delete(ctx, sessionID, sessionstore.KeyPreviousSelection)
	} else {
		err = s.store.Put(ctx, sessionID, sessionstore.KeyPreviousSelection, sel)
	}
	if err != nil {
		s.log.Warn("failed to record previous selection", zap.String("session", sessionID), zap.Error(err))
	}
}

func (s *Service) beginSubmit(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.submitting[sessionID]; busy {
		return false
	}
	s.submitting[sessionID] = struct{}{}
	return true
}

func (s *Service) endSubmit(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submitting, sessionID)
}

// lockGuest serializes guest cart changes for one session and returns the unlock.
// The lock is forgotten once nobody holds or waits on it.
func (s *Service) lockGuest(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.guestLocks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.guestLocks[sessionID] = l
	}
	l.holders++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.holders--
		if l.holders == 0 {
			delete(s.guestLocks, sessionID)
		}
		s.mu.Unlock()
	}
}

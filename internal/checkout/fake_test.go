package checkout

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/pharmacy-checkout/internal/sessionstore"
	"github.com/example/pharmacy-checkout/internal/shape"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

// fakeStorefront records calls and replays canned payloads.
type fakeStorefront struct {
	mu    sync.Mutex
	calls []string

	cart    any
	cartErr error

	upsertErrs map[string]error
	upserts    []storefront.CartItemRequest

	addresses    any
	addressesErr error
	saved        any
	savedErr     error
	saveResp     any
	saveErr      error
	saves        []storefront.AddressPayload
	deleteErr    error
	selectErr    error
	selected     []string

	prescription    any
	prescriptionErr error
	uploads         []string

	order     any
	orderErr  error
	drafts    []storefront.OrderDraft
	keys      []string
	onCheckout func()
}

func (f *fakeStorefront) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStorefront) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStorefront) GetCart(context.Context, string) (any, error) {
	f.record("GET /cart")
	return f.cart, f.cartErr
}

func (f *fakeStorefront) UpsertCartItem(_ context.Context, _ string, item storefront.CartItemRequest) error {
	f.record("POST /cart/items")
	f.mu.Lock()
	f.upserts = append(f.upserts, item)
	f.mu.Unlock()

	ref := item.ProductID
	if ref == "" {
		ref = item.MedicineID
	}
	return f.upsertErrs[ref]
}

func (f *fakeStorefront) ListAddresses(context.Context, string) (any, error) {
	f.record("GET /addresses")
	return f.addresses, f.addressesErr
}

func (f *fakeStorefront) ListSavedAddresses(context.Context, string) (any, error) {
	f.record("GET /orders/saved-addresses")
	return f.saved, f.savedErr
}

func (f *fakeStorefront) CreateAddress(_ context.Context, _ string, addr storefront.AddressPayload) (any, error) {
	f.record("POST /addresses")
	f.saves = append(f.saves, addr)
	return f.saveResp, f.saveErr
}

func (f *fakeStorefront) UpdateAddress(_ context.Context, _, id string, addr storefront.AddressPayload) (any, error) {
	f.record("PUT /addresses/" + id)
	f.saves = append(f.saves, addr)
	return f.saveResp, f.saveErr
}

func (f *fakeStorefront) DeleteAddress(_ context.Context, _, id string) error {
	f.record("DELETE /addresses/" + id)
	return f.deleteErr
}

func (f *fakeStorefront) SelectAddress(_ context.Context, _, id string) error {
	f.record("POST /orders/select-address")
	f.selected = append(f.selected, id)
	return f.selectErr
}

func (f *fakeStorefront) UploadPrescription(_ context.Context, _ string, file storefront.PrescriptionUpload) (any, error) {
	f.record("POST /prescriptions")
	body, _ := io.ReadAll(file.Reader)
	f.uploads = append(f.uploads, string(body))
	return f.prescription, f.prescriptionErr
}

func (f *fakeStorefront) Checkout(_ context.Context, _ string, draft storefront.OrderDraft, key string) (any, error) {
	f.record("POST /orders/checkout")
	if f.onCheckout != nil {
		f.onCheckout()
	}
	f.mu.Lock()
	f.drafts = append(f.drafts, draft)
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return f.order, f.orderErr
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(sessionID, eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sessionID+":"+eventType)
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type harness struct {
	svc    *Service
	api    *fakeStorefront
	store  *sessionstore.Memory
	events *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:    &fakeStorefront{},
		store:  sessionstore.NewMemory(),
		events: &recordingPublisher{},
	}
	h.svc = NewService(Options{
		Storefront: h.api,
		Store:      h.store,
		Publisher:  h.events,
		Logger:     zaptest.NewLogger(t),
	})
	return h
}

func decodeJSON(t *testing.T, body string) any {
	t.Helper()
	v, err := shape.Decode([]byte(body))
	require.NoError(t, err)
	return v
}

const twoLineCart = `{
  "success": true,
  "data": {
    "items": [
      {"_id": "line-a", "product": {"_id": "productA", "name": "Vitamin C"}, "price": 200, "quantity": 2},
      {"_id": "line-b", "product": {"_id": "productB", "name": "Bandage"}, "price": 100, "quantity": 1}
    ],
    "subtotal": 500,
    "taxes": 90,
    "deliveryFee": 40
  }
}`

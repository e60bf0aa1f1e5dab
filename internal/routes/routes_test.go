package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/config"
	"github.com/example/pharmacy-checkout/internal/handlers"
	"github.com/example/pharmacy-checkout/internal/notify"
	"github.com/example/pharmacy-checkout/internal/sessionstore"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

const cartBody = `{
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

// fakeStorefront is a scripted storefront API.
type fakeStorefront struct {
	mu            sync.Mutex
	cartStatus    int
	prescriptions []string
	orders        []storefront.OrderDraft
}

func (f *fakeStorefront) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/cart", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.cartStatus
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"message":"down"}`)
			return
		}
		_, _ = io.WriteString(w, cartBody)
	})
	mux.HandleFunc("POST /api/cart/items", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("GET /api/addresses", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[{"_id":"addr-1","name":"Asha","phoneNumber":"9876543210","address":"12 MG Road","city":"Pune","state":"MH","pincode":"411001"}]}`)
	})
	mux.HandleFunc("POST /api/addresses", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["_id"] = "addr-2"
		w.WriteHeader(http.StatusCreated)
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"success": true, "address": body}))
	})
	mux.HandleFunc("POST /api/orders/select-address", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("POST /api/prescriptions", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("prescription")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		f.mu.Lock()
		f.prescriptions = append(f.prescriptions, header.Filename)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true,"data":{"prescriptionId":"rx-42"}}`)
	})
	mux.HandleFunc("POST /api/orders/checkout", func(w http.ResponseWriter, r *http.Request) {
		var draft storefront.OrderDraft
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		f.mu.Lock()
		f.orders = append(f.orders, draft)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true,"order":{"_id":"6650f1c2a9b3d4e5f6a7b8c9","orderNumber":"ORD-7","status":"pending","totalAmount":590}}`)
	})

	return mux
}

type testServer struct {
	app      *fiber.App
	upstream *fakeStorefront
	hub      *notify.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	upstream := &fakeStorefront{}
	srv := httptest.NewServer(upstream.handler(t))
	t.Cleanup(srv.Close)

	log := zaptest.NewLogger(t)
	hub := notify.NewHub(log)
	t.Cleanup(hub.Close)

	svc := checkout.NewService(checkout.Options{
		Storefront: storefront.New(srv.URL+"/api", 5*time.Second, log),
		Store:      sessionstore.NewMemory(),
		Publisher:  hub,
		Logger:     log,
	})

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	Register(app, svc, hub, &config.Config{AppEnv: "test"}, log)

	return &testServer{app: app, upstream: upstream, hub: hub}
}

type apiResponse struct {
	Status   int
	Session  string
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Redirect string          `json:"redirect"`
	Error    struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, req *http.Request) apiResponse {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	out.Status = resp.StatusCode
	out.Session = resp.Header.Get("X-Session-ID")
	return out
}

func jsonRequest(method, path, session, token string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuestCartFlow(t *testing.T) {
	s := newTestServer(t)

	added := s.do(t, jsonRequest("POST", "/api/guest-cart/items", "", "", map[string]any{
		"itemType": "product", "productId": "productC", "quantity": 2,
	}))
	require.Equal(t, http.StatusCreated, added.Status)
	require.NotEmpty(t, added.Session)

	listed := s.do(t, jsonRequest("GET", "/api/guest-cart", added.Session, "", nil))
	require.Equal(t, http.StatusOK, listed.Status)

	var data struct {
		Items []checkout.GuestCartLine `json:"items"`
	}
	require.NoError(t, json.Unmarshal(listed.Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, "productC", data.Items[0].ProductID)
	assert.Equal(t, 2, data.Items[0].Quantity)

	removed := s.do(t, jsonRequest("DELETE", "/api/guest-cart/items/"+data.Items[0].ID, added.Session, "", nil))
	require.Equal(t, http.StatusOK, removed.Status)
	require.NoError(t, json.Unmarshal(removed.Data, &data))
	assert.Empty(t, data.Items)
}

func TestGuestCartValidation(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, jsonRequest("POST", "/api/guest-cart/items", "sess-v", "", map[string]any{
		"itemType": "medicine", "quantity": 0,
	}))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Kind)
	assert.Contains(t, resp.Error.Message, "medicineId is required")
	assert.Contains(t, resp.Error.Message, "quantity is required")
}

func TestCheckoutWithGuestCartNeedsLogin(t *testing.T) {
	s := newTestServer(t)

	s.do(t, jsonRequest("POST", "/api/guest-cart/items", "sess-g", "", map[string]any{
		"itemType": "product", "productId": "productC", "quantity": 1,
	}))

	resp := s.do(t, jsonRequest("GET", "/api/checkout", "sess-g", "", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "AUTH_REQUIRED", resp.Error.Kind)
	assert.Equal(t, "/login", resp.Redirect)
}

func TestCheckoutViewAndSelection(t *testing.T) {
	s := newTestServer(t)

	full := s.do(t, jsonRequest("GET", "/api/checkout", "sess-c", "tok", nil))
	require.Equal(t, http.StatusOK, full.Status)

	var view struct {
		Selection []string       `json:"selection"`
		Totals    map[string]any `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(full.Data, &view))
	assert.Equal(t, []string{"productA", "productB"}, view.Selection)
	assert.Equal(t, "590", fmt.Sprint(view.Totals["total"]))
	assert.Equal(t, "0", fmt.Sprint(view.Totals["deliveryFee"]))

	narrowed := s.do(t, jsonRequest("GET", "/api/checkout?selected=productB", "sess-c", "tok", nil))
	require.Equal(t, http.StatusOK, narrowed.Status)
	require.NoError(t, json.Unmarshal(narrowed.Data, &view))
	assert.Equal(t, []string{"productB"}, view.Selection)
	assert.Equal(t, "158", fmt.Sprint(view.Totals["total"]))

	put := s.do(t, jsonRequest("PUT", "/api/checkout/selection", "sess-c", "tok", map[string]any{"productIds": []string{"productA"}}))
	require.Equal(t, http.StatusOK, put.Status)
	require.NoError(t, json.Unmarshal(put.Data, &view))
	assert.Equal(t, []string{"productA"}, view.Selection)

	empty := s.do(t, jsonRequest("PUT", "/api/checkout/selection", "sess-c", "tok", map[string]any{"productIds": []string{}}))
	assert.Equal(t, http.StatusUnprocessableEntity, empty.Status)
	assert.Equal(t, "EMPTY_SELECTION", empty.Error.Kind)
}

func TestCheckoutUpstreamFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t)
	s.upstream.cartStatus = http.StatusServiceUnavailable

	resp := s.do(t, jsonRequest("GET", "/api/checkout", "sess-u", "tok", nil))
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", resp.Error.Kind)
}

func TestAddresses(t *testing.T) {
	s := newTestServer(t)

	list := s.do(t, jsonRequest("GET", "/api/addresses", "sess-a", "tok", nil))
	require.Equal(t, http.StatusOK, list.Status)
	var book checkout.AddressBook
	require.NoError(t, json.Unmarshal(list.Data, &book))
	require.Len(t, book.Addresses, 1)
	assert.Equal(t, "addr-1", book.Addresses[0].ID)

	bad := s.do(t, jsonRequest("POST", "/api/addresses", "sess-a", "tok", map[string]any{
		"name": "Ravi", "phoneNumber": "98765432", "address": "5 Park St", "city": "Delhi", "state": "DL", "pincode": "11",
	}))
	assert.Equal(t, http.StatusBadRequest, bad.Status)
	assert.Contains(t, bad.Error.Message, "pincode must be 6 characters")

	created := s.do(t, jsonRequest("POST", "/api/addresses", "sess-a", "tok", map[string]any{
		"name": "Ravi", "phoneNumber": "98765432", "address": "5 Park St", "city": "Delhi", "state": "DL", "pincode": "110001",
	}))
	require.Equal(t, http.StatusCreated, created.Status)
	var addr checkout.Address
	require.NoError(t, json.Unmarshal(created.Data, &addr))
	assert.Equal(t, "addr-2", addr.ID)
	assert.Equal(t, "Delhi", addr.City)

	selected := s.do(t, jsonRequest("POST", "/api/addresses/addr-2/select", "sess-a", "tok", nil))
	require.Equal(t, http.StatusOK, selected.Status)

	list = s.do(t, jsonRequest("GET", "/api/addresses", "sess-a", "tok", nil))
	require.NoError(t, json.Unmarshal(list.Data, &book))
	assert.Equal(t, "addr-2", book.SelectedID)
}

func TestSubmitOrderWithoutAddress(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, jsonRequest("POST", "/api/checkout/orders", "sess-n", "tok", map[string]any{"paymentMethod": "cod"}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, "NO_ADDRESS", resp.Error.Kind)
	assert.Empty(t, s.upstream.orders)
}

func multipartOrder(t *testing.T, session, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("paymentMethod", "online"))
	require.NoError(t, w.WriteField("selectedProductIds", "productB"))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="prescription"; filename="rx.pdf"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/checkout/orders", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Session-ID", session)
	req.Header.Set("Authorization", "Bearer tok")
	return req
}

func TestSubmitOrderWithPrescription(t *testing.T) {
	s := newTestServer(t)

	missing := s.do(t, jsonRequest("GET", "/api/checkout/orders/last", "sess-o", "tok", nil))
	assert.Equal(t, http.StatusNotFound, missing.Status)

	require.Equal(t, http.StatusOK, s.do(t, jsonRequest("POST", "/api/addresses/addr-1/select", "sess-o", "tok", nil)).Status)

	resp := s.do(t, multipartOrder(t, "sess-o", "application/pdf"))
	require.Equal(t, http.StatusCreated, resp.Status, resp.Error.Message)

	var result checkout.SubmitResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "ORD-7", result.Order.OrderNumber)
	assert.Equal(t, "rx-42", result.Order.PrescriptionID)
	assert.Empty(t, result.Warnings)

	s.upstream.mu.Lock()
	require.Len(t, s.upstream.orders, 1)
	draft := s.upstream.orders[0]
	assert.Equal(t, []string{"rx.pdf"}, s.upstream.prescriptions)
	s.upstream.mu.Unlock()

	assert.Equal(t, "online", draft.PaymentMethod)
	assert.Equal(t, "addr-1", draft.AddressID)
	assert.Equal(t, "rx-42", draft.PrescriptionID)
	require.Len(t, draft.SelectedItems, 1)
	assert.Equal(t, "line-b", draft.SelectedItems[0].CartItemID)

	last := s.do(t, jsonRequest("GET", "/api/checkout/orders/last", "sess-o", "tok", nil))
	require.Equal(t, http.StatusOK, last.Status)
	var order checkout.CanonicalOrder
	require.NoError(t, json.Unmarshal(last.Data, &order))
	assert.Equal(t, "ORD-7", order.OrderNumber)
}

func TestSubmitOrderRejectsUnsupportedPrescriptionType(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, jsonRequest("POST", "/api/addresses/addr-1/select", "sess-x", "tok", nil)).Status)

	resp := s.do(t, multipartOrder(t, "sess-x", "application/x-msdownload"))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.True(t, strings.Contains(resp.Error.Message, "PDF or an image"))
	assert.Empty(t, s.upstream.orders)
}

func TestSubmitOrderRejectsUnknownPaymentMethod(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, jsonRequest("POST", "/api/addresses/addr-1/select", "sess-p", "tok", nil)).Status)

	resp := s.do(t, jsonRequest("POST", "/api/checkout/orders", "sess-p", "tok", map[string]any{"paymentMethod": "bitcoin"}))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Kind)
}

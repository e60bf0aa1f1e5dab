package storefront

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// CartItemRequest upserts one line into the authenticated cart.
type CartItemRequest struct {
	ProductID  string `json:"productId,omitempty"`
	MedicineID string `json:"medicineId,omitempty"`
	Quantity   int    `json:"quantity"`
}

// AddressPayload is the body for creating or updating an address.
type AddressPayload struct {
	Name        string `json:"name" validate:"required,max=120"`
	PhoneNumber string `json:"phoneNumber" validate:"required,min=7,max=20"`
	Address     string `json:"address" validate:"required,max=500"`
	City        string `json:"city" validate:"required,max=120"`
	State       string `json:"state" validate:"required,max=120"`
	Pincode     string `json:"pincode" validate:"required,numeric,len=6"`
	Label       string `json:"label,omitempty" validate:"omitempty,max=40"`
}

// SelectedItem is one purchased line in an order draft.
type SelectedItem struct {
	CartItemID string `json:"cartItemId"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
}

// OrderDraft is the order submission payload.
type OrderDraft struct {
	PaymentMethod   string          `json:"paymentMethod"`
	SelectedItems   []SelectedItem  `json:"selectedItems"`
	AddressID       string          `json:"addressId"`
	ShippingAddress *AddressPayload `json:"shippingAddress,omitempty"`
	PrescriptionID  string          `json:"prescriptionId,omitempty"`
}

// PrescriptionUpload is a prescription file to attach to an order.
type PrescriptionUpload struct {
	FileName    string
	ContentType string
	Reader      io.Reader
}

// GetCart fetches the authenticated cart.
func (c *Client) GetCart(ctx context.Context, token string) (any, error) {
	return c.doJSON(ctx, RequestOpts{Method: http.MethodGet, Path: "/cart", Token: token})
}

// UpsertCartItem adds a line or raises its quantity.
func (c *Client) UpsertCartItem(ctx context.Context, token string, item CartItemRequest) error {
	_, err := c.Do(ctx, RequestOpts{Method: http.MethodPost, Path: "/cart/items", Token: token, Body: item})
	return err
}

// ListAddresses calls the primary address endpoint.
func (c *Client) ListAddresses(ctx context.Context, token string) (any, error) {
	return c.doJSON(ctx, RequestOpts{Method: http.MethodGet, Path: "/addresses", Token: token})
}

// ListSavedAddresses calls the legacy address endpoint.
func (c *Client) ListSavedAddresses(ctx context.Context, token string) (any, error) {
	return c.doJSON(ctx, RequestOpts{Method: http.MethodGet, Path: "/orders/saved-addresses", Token: token})
}

func (c *Client) CreateAddress(ctx context.Context, token string, addr AddressPayload) (any, error) {
	return c.doJSON(ctx, RequestOpts{Method: http.MethodPost, Path: "/addresses", Token: token, Body: addr})
}

func (c *Client) UpdateAddress(ctx context.Context, token, id string, addr AddressPayload) (any, error) {
	return c.doJSON(ctx, RequestOpts{Method: http.MethodPut, Path: "/addresses/" + url.PathEscape(id), Token: token, Body: addr})
}

func (c *Client) DeleteAddress(ctx context.Context, token, id string) error {
	_, err := c.Do(ctx, RequestOpts{Method: http.MethodDelete, Path: "/addresses/" + url.PathEscape(id), Token: token})
	return err
}

// SelectAddress tells the storefront which address is current for checkout.
func (c *Client) SelectAddress(ctx context.Context, token, id string) error {
	_, err := c.Do(ctx, RequestOpts{
		Method: http.MethodPost,
		Path:   "/orders/select-address",
		Token:  token,
		Body:   map[string]string{"addressId": id},
	})
	return err
}

// UploadPrescription sends the file as multipart field "prescription".
func (c *Client) UploadPrescription(ctx context.Context, token string, file PrescriptionUpload) (any, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return c.doJSON(ctx, RequestOpts{
		Method: http.MethodPost,
		Path:   "/prescriptions",
		Token:  token,
		File: &FileUpload{
			Field:       "prescription",
			FileName:    file.FileName,
			ContentType: contentType,
			Reader:      file.Reader,
		},
	})
}

// Checkout submits an order draft. idempotencyKey is forwarded when set.
func (c *Client) Checkout(ctx context.Context, token string, draft OrderDraft, idempotencyKey string) (any, error) {
	opts := RequestOpts{Method: http.MethodPost, Path: "/orders/checkout", Token: token, Body: draft}
	if idempotencyKey != "" {
		opts.Headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	return c.doJSON(ctx, opts)
}

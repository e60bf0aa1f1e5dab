package checkout

import (
	"github.com/shopspring/decimal"
)

// Placeholder is rendered for any order text field the storefront left out.
const Placeholder = "—"

// ItemType distinguishes catalog products from medicines.
type ItemType string

const (
	ItemProduct  ItemType = "product"
	ItemMedicine ItemType = "medicine"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// AuthContext carries the caller's credentials into every pipeline call.
type AuthContext struct {
	Token  string
	UserID string
}

// Authenticated reports whether a bearer token is present.
func (a AuthContext) Authenticated() bool {
	return a.Token != ""
}

// GuestCartLine is a cart entry held for a session before login.
type GuestCartLine struct {
	ID         string   `json:"id"`
	ItemType   ItemType `json:"itemType" validate:"required,oneof=product medicine"`
	ProductID  string   `json:"productId,omitempty" validate:"required_if=ItemType product,max=64"`
	MedicineID string   `json:"medicineId,omitempty" validate:"required_if=ItemType medicine,max=64"`
	Quantity   int      `json:"quantity" validate:"required,min=1,max=99"`
}

// RefID is the catalog id the line points at.
func (l GuestCartLine) RefID() string {
	if l.ItemType == ItemMedicine {
		return l.MedicineID
	}
	return l.ProductID
}

// ProductRef identifies what a cart line sells.
type ProductRef struct {
	ID   string   `json:"id"`
	Kind ItemType `json:"kind"`
	Name string   `json:"name"`
}

// CartLine is one line of the authenticated cart. Price is the add-time snapshot.
type CartLine struct {
	ID       string          `json:"id"`
	Product  ProductRef      `json:"product"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// LineTotal is price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the authenticated cart. Taxes and DeliveryFee are the storefront's
// figures for the whole cart.
type Cart struct {
	Items       []CartLine      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Taxes       decimal.Decimal `json:"taxes"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
}

// ProductIDs lists distinct product ids in cart order.
func (c Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, line := range c.Items {
		if _, ok := seen[line.Product.ID]; ok {
			continue
		}
		seen[line.Product.ID] = struct{}{}
		ids = append(ids, line.Product.ID)
	}
	return ids
}

// SelectionSet is the product ids chosen for this checkout, in cart order.
type SelectionSet []string

// Contains reports whether id is selected.
func (s SelectionSet) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Totals are the amounts for the selected lines.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Taxes       decimal.Decimal `json:"taxes"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
}

// Address is a saved delivery address.
type Address struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Label       string `json:"label,omitempty"`
}

// AddressBook is the address list plus the one chosen for delivery.
type AddressBook struct {
	Addresses  []Address `json:"addresses"`
	SelectedID string    `json:"selectedId,omitempty"`
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	Name  string          `json:"name"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

// OrderAddress is where a placed order ships.
type OrderAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

// CanonicalOrder is the receipt shown after checkout. Every field is populated.
type CanonicalOrder struct {
	OrderNumber    string          `json:"orderNumber"`
	OrderID        string          `json:"orderId"`
	Status         string          `json:"status"`
	Total          decimal.Decimal `json:"total"`
	Items          []OrderItem     `json:"items"`
	Address        OrderAddress    `json:"address"`
	PrescriptionID string          `json:"prescriptionId,omitempty"`
}

// MergeFailure records a guest line the storefront refused.
type MergeFailure struct {
	Line    GuestCartLine `json:"line"`
	Message string        `json:"message"`
}

// MergeOutcome is the authoritative cart after a guest merge.
type MergeOutcome struct {
	Cart     Cart           `json:"cart"`
	Failures []MergeFailure `json:"failures,omitempty"`
}

// View is everything the checkout page renders.
type View struct {
	Cart                  Cart            `json:"cart"`
	Selection             SelectionSet    `json:"selection"`
	Lines                 []CartLine      `json:"lines"`
	Totals                Totals          `json:"totals"`
	FreeDeliveryThreshold decimal.Decimal `json:"freeDeliveryThreshold"`
	SelectedAddressID     string          `json:"selectedAddressId,omitempty"`
	MergeFailures         []MergeFailure  `json:"mergeFailures,omitempty"`
}

// Warning is a non-fatal advisory attached to a successful result.
type Warning struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// SubmitResult is a placed order and any advisories raised on the way.
type SubmitResult struct {
	Order    CanonicalOrder `json:"order"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/example/pharmacy-checkout/internal/shape"
)

// NormalizeCart maps a raw cart payload onto Cart. Lines without any identifier are
// dropped; a missing subtotal is computed from the lines.
func NormalizeCart(schema *shape.Schema, raw any) Cart {
	if schema == nil {
		schema = shape.Default()
	}

	obj := schema.Cart.Unwrap(raw)
	rawLines := schema.Cart.List(obj, "lines")
	if obj == nil {
		rawLines, _ = raw.([]any)
	}

	cart := Cart{Items: make([]CartLine, 0, len(rawLines))}
	computed := decimal.Zero
	for _, item := range rawLines {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		line, ok := normalizeLine(schema.CartLine, m)
		if !ok {
			continue
		}
		cart.Items = append(cart.Items, line)
		computed = computed.Add(line.LineTotal())
	}

	if subtotal, ok := schema.Cart.Decimal(obj, "subtotal"); ok {
		cart.Subtotal = subtotal
	} else {
		cart.Subtotal = computed
	}
	cart.Taxes, _ = schema.Cart.Decimal(obj, "taxes")
	cart.DeliveryFee, _ = schema.Cart.Decimal(obj, "delivery_fee")

	return cart
}

func normalizeLine(o shape.Object, m map[string]any) (CartLine, bool) {
	productID := o.String(m, "product_id")
	lineID := o.String(m, "id")
	if lineID == "" && productID == "" {
		return CartLine{}, false
	}
	if lineID == "" {
		lineID = productID
	}
	if productID == "" {
		productID = lineID
	}

	kind := ItemProduct
	switch ItemType(o.String(m, "kind")) {
	case ItemMedicine:
		kind = ItemMedicine
	case ItemProduct:
	default:
		if _, ok := o.Lookup(m, "medicine_ref"); ok {
			kind = ItemMedicine
		}
	}

	qty, ok := o.Int(m, "quantity")
	if !ok || qty < 1 {
		qty = 1
	}
	price, _ := o.Decimal(m, "price")

	return CartLine{
		ID: lineID,
		Product: ProductRef{
			ID:   productID,
			Kind: kind,
			Name: o.String(m, "product_name"),
		},
		Price:    price,
		Quantity: qty,
	}, true
}

// NormalizeAddresses maps a raw address list payload. Entries without an id are dropped.
func NormalizeAddresses(schema *shape.Schema, raw any) []Address {
	if schema == nil {
		schema = shape.Default()
	}

	list := schema.AddressList.UnwrapList(raw)
	out := make([]Address, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		addr := addressFrom(schema.Address, m)
		if addr.ID == "" {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// NormalizeAddress maps a single raw address payload.
func NormalizeAddress(schema *shape.Schema, raw any) Address {
	if schema == nil {
		schema = shape.Default()
	}
	return addressFrom(schema.Address, schema.Address.Unwrap(raw))
}

func addressFrom(o shape.Object, m map[string]any) Address {
	return Address{
		ID:          o.String(m, "id"),
		Name:        o.String(m, "name"),
		PhoneNumber: o.String(m, "phone_number"),
		Address:     o.String(m, "address"),
		City:        o.String(m, "city"),
		State:       o.String(m, "state"),
		Pincode:     o.String(m, "pincode"),
		Label:       o.String(m, "label"),
	}
}

// Normalize turns a raw order response into a CanonicalOrder. It never fails:
// fields missing from raw come from fallback where it applies, then placeholders.
func Normalize(schema *shape.Schema, raw any, fallback *Address) CanonicalOrder {
	if schema == nil {
		schema = shape.Default()
	}

	o := schema.Order
	obj := o.Unwrap(raw)

	order := CanonicalOrder{
		OrderNumber:    orPlaceholder(o.String(obj, "order_number")),
		OrderID:        orPlaceholder(o.String(obj, "order_id")),
		Status:         orPlaceholder(o.String(obj, "status")),
		Items:          []OrderItem{},
		PrescriptionID: o.String(obj, "prescription_id"),
	}

	if total, ok := o.Decimal(obj, "total"); ok {
		order.Total = total
	}

	for _, item := range o.List(obj, "items") {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		qty, _ := schema.OrderItem.Int(m, "qty")
		price, _ := schema.OrderItem.Decimal(m, "price")
		order.Items = append(order.Items, OrderItem{
			Name:  orPlaceholder(schema.OrderItem.String(m, "name")),
			Qty:   qty,
			Price: price,
		})
	}

	order.Address = orderAddress(schema.OrderAddress, o.Map(obj, "address"), fallback)
	return order
}

func orderAddress(o shape.Object, m map[string]any, fallback *Address) OrderAddress {
	var fb Address
	if fallback != nil {
		fb = *fallback
	}

	pick := func(field, alt string) string {
		if v := o.String(m, field); v != "" {
			return v
		}
		return orPlaceholder(alt)
	}

	return OrderAddress{
		Name:    pick("name", fb.Name),
		Street:  pick("street", fb.Address),
		City:    pick("city", fb.City),
		State:   pick("state", fb.State),
		Pincode: pick("pincode", fb.Pincode),
		Phone:   pick("phone", fb.PhoneNumber),
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

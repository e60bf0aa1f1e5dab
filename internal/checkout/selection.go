package checkout

// ResolveSelection picks the product ids to purchase from cart.
//
// Precedence: incoming, then persisted, then previous, each intersected with the
// cart; the first non-empty intersection wins. When none survives, every product
// in the cart is selected. The result follows cart order and never aliases inputs.
func ResolveSelection(cart Cart, incoming, previous, persisted []string) SelectionSet {
	ids := cart.ProductIDs()

	for _, candidate := range [][]string{incoming, persisted, previous} {
		if len(candidate) == 0 {
			continue
		}
		if sel := intersect(ids, candidate); len(sel) > 0 {
			return sel
		}
	}

	return SelectionSet(ids)
}

// ConfirmedSelection picks the product ids an order is placed for. It never widens:
// the first non-empty candidate of incoming, persisted and previous decides, and
// when none of its ids are still in the cart the result is empty. Only a session
// with no recorded selection at all confirms the whole cart.
func ConfirmedSelection(cart Cart, incoming, previous, persisted []string) SelectionSet {
	ids := cart.ProductIDs()
	for _, candidate := range [][]string{incoming, persisted, previous} {
		if len(candidate) > 0 {
			return intersect(ids, candidate)
		}
	}
	return SelectionSet(ids)
}

// SelectedLines returns the lines whose product is selected. When nothing matches,
// the whole cart is returned so checkout never renders empty against a non-empty cart.
func SelectedLines(cart Cart, sel SelectionSet) []CartLine {
	lines := matchingLines(cart, sel)
	if len(lines) == 0 {
		return append([]CartLine(nil), cart.Items...)
	}
	return lines
}

func matchingLines(cart Cart, sel SelectionSet) []CartLine {
	if len(sel) == 0 {
		return nil
	}

	wanted := make(map[string]struct{}, len(sel))
	for _, id := range sel {
		wanted[id] = struct{}{}
	}

	var lines []CartLine
	for _, line := range cart.Items {
		if _, ok := wanted[line.Product.ID]; ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func intersect(ordered, wanted []string) SelectionSet {
	set := make(map[string]struct{}, len(wanted))
	for _, id := range wanted {
		set[id] = struct{}{}
	}

	out := SelectionSet{}
	for _, id := range ordered {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

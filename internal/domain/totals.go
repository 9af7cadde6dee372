package domain

// Legacy size labels still sent by older storefront builds. They map onto
// the category enum one to one.
const (
	SizeStandard = "80×25"
	SizePair     = "50×40"
	SizeTriple   = "80×60"
)

const (
	pairUnitPrice   = 390
	tripleUnitPrice = 550
)

// ComputeTotals prices a cart. Pure function, no I/O.
//
// Standard canvases are priced by a step table (1=220, 2=400, 3=550, every
// unit past 3 adds 180). Pair and triple sets have fixed unit prices. Any
// other item contributes price*quantity.
func ComputeTotals(cart []CartItem) Totals {
	var t Totals

	for _, item := range cart {
		qty := item.Qty()
		switch {
		case item.Category == CategoryStandard || item.Size == SizeStandard:
			t.StandardQty += qty
		case item.Category == CategoryPair || item.Size == SizePair:
			t.PairQty += qty
		case item.Category == CategoryTriple || item.Size == SizeTriple:
			t.TripleQty += qty
		default:
			t.OtherSubtotal += item.Price * float64(qty)
		}
	}

	t.StandardSubtotal = standardTier(t.StandardQty)
	t.PairSubtotal = float64(t.PairQty * pairUnitPrice)
	t.TripleSubtotal = float64(t.TripleQty * tripleUnitPrice)

	t.Subtotal = t.StandardSubtotal + t.PairSubtotal + t.TripleSubtotal + t.OtherSubtotal
	t.Shipping = 0
	t.Total = t.Subtotal + t.Shipping
	return t
}

func standardTier(qty int) float64 {
	switch {
	case qty <= 0:
		return 0
	case qty == 1:
		return 220
	case qty == 2:
		return 400
	case qty == 3:
		return 550
	default:
		return float64(550 + (qty-3)*180)
	}
}

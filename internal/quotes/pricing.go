package quotes

import "math"

// DocumentTotals is the result of folding item totals, named charges and
// tax into the final payable amount.
type DocumentTotals struct {
	Subtotal      float64
	TaxableAmount float64
	GSTAmount     float64
	RoundOff      float64
	Total         float64
}

// ResolveDimensions computes the chargeable dimensions and billable area
// for a single item. Chargeable sides default to actual + chargeable_extra
// but a client-supplied chargeable value wins (operator override). When
// the unit is millimetres the area is converted to square metres. Group
// nodes and items missing a side keep a nil unit_square.
func ResolveDimensions(item *QuoteItem) {
	if item.IsGroup {
		item.UnitSquare = nil
		return
	}

	if item.ChargeableWidth == nil && item.ActualWidth != nil {
		w := *item.ActualWidth + item.ChargeableExtra
		item.ChargeableWidth = &w
	}
	if item.ChargeableHeight == nil && item.ActualHeight != nil {
		h := *item.ActualHeight + item.ChargeableExtra
		item.ChargeableHeight = &h
	}

	if item.ChargeableWidth == nil || item.ChargeableHeight == nil {
		item.UnitSquare = nil
		return
	}

	area := *item.ChargeableWidth * *item.ChargeableHeight
	if item.Unit == UnitMM {
		area /= squareMMPerSquareMetre
	}
	item.UnitSquare = &area
}

// PriceForest resolves dimensions and computes every item total bottom-up,
// returning the document subtotal (the sum of top-level totals; group
// totals already equal the sum of their children, so top-level totals
// cover the whole forest).
func PriceForest(forest []*TreeNode) float64 {
	subtotal := 0.0
	for _, root := range forest {
		subtotal += priceNode(root, nil)
	}
	return subtotal
}

func priceNode(node *TreeNode, parent *QuoteItem) float64 {
	ResolveDimensions(&node.Item)

	if node.Item.IsGroup {
		total := 0.0
		for _, child := range node.Children {
			total += priceNode(child, &node.Item)
		}
		node.Item.Total = total
		return total
	}

	total := leafTotal(&node.Item, parent)
	node.Item.Total = total

	// A leaf that somehow carries children still only contributes its own
	// price; children keep pricing against it for surcharges.
	for _, child := range node.Children {
		total += priceNode(child, &node.Item)
	}
	return total
}

// leafTotal prices one non-group item. Items without a billable area fall
// back to plain per-unit pricing. Hole and cutout surcharges use the
// immediate parent group's prices; a top-level leaf has none.
func leafTotal(item *QuoteItem, parent *QuoteItem) float64 {
	var base float64
	if item.UnitSquare != nil {
		base = *item.UnitSquare * item.RateSqPer * item.Quantity
	} else {
		base = item.Quantity * item.RateSqPer
	}

	if parent != nil {
		base += float64(item.Hole) * parent.HolePrice
		base += float64(item.Cutout) * parent.CutoutPrice
	}
	return base
}

// ComputeDocumentTotals folds the subtotal, the named charges and the tax
// percentage into the rounded payable total. round_off is signed and can
// be negative.
func ComputeDocumentTotals(subtotal float64, charges Charges, gstPercentage float64) DocumentTotals {
	taxable := subtotal + charges.Sum()
	gst := taxable * gstPercentage / 100
	beforeRound := taxable + gst
	total := math.Round(beforeRound)
	return DocumentTotals{
		Subtotal:      subtotal,
		TaxableAmount: taxable,
		GSTAmount:     gst,
		RoundOff:      total - beforeRound,
		Total:         total,
	}
}

package quotes

import "strconv"

// TreeNode is one node of the in-memory item forest built from a flat
// submission, before persistence assigns database ids.
type TreeNode struct {
	Item     QuoteItem
	Children []*TreeNode
}

// BuildTree turns index-ordered item records into an ordered forest.
//
// Symbolic parent tokens ("group-<item_number>") are resolved through a
// token map populated strictly in submission order, so a child can only
// attach to a group that appeared at an earlier index. The second return
// value lists tokens that did not resolve; those items are demoted to
// top-level rather than rejected.
func BuildTree(records []ItemRecord) ([]*TreeNode, []string) {
	var (
		forest     []*TreeNode
		unresolved []string
	)
	tokens := make(map[string]*TreeNode)
	sortOrder := 0

	for _, rec := range records {
		// A group must be named to exist. Skipped groups are also never
		// eligible as parent targets for later children.
		if rec.IsGroup && rec.Particular == "" {
			continue
		}

		node := &TreeNode{Item: itemFromRecord(rec, sortOrder)}
		sortOrder++

		attached := false
		if rec.ParentToken != "" {
			if parent, ok := tokens[rec.ParentToken]; ok {
				parent.Children = append(parent.Children, node)
				node.Item.ItemNumber = len(parent.Children)
				attached = true
			} else {
				unresolved = append(unresolved, rec.ParentToken)
			}
		}
		if !attached {
			forest = append(forest, node)
			node.Item.ItemNumber = len(forest)
		}

		// Registered only after the node's own parent reference has been
		// resolved, so a group naming its own token is demoted instead of
		// becoming its own (unreachable) child.
		if rec.IsGroup {
			tokens[groupToken(rec.ItemNumber)] = node
		}
	}

	return forest, unresolved
}

// ForestFromItems reassembles persisted items (sorted by sort_order) into
// a forest. Items referencing a parent id that is not part of the set are
// treated as top-level.
func ForestFromItems(items []QuoteItem) []*TreeNode {
	nodes := make(map[int64]*TreeNode, len(items))
	var forest []*TreeNode
	for _, item := range items {
		nodes[item.ID] = &TreeNode{Item: item}
	}
	for _, item := range items {
		node := nodes[item.ID]
		if item.ParentID != nil {
			if parent, ok := nodes[*item.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		forest = append(forest, node)
	}
	return forest
}

// Flatten walks the forest depth-first, parents before children, and
// renumbers sort_order by visit position.
func Flatten(forest []*TreeNode) []*TreeNode {
	var out []*TreeNode
	var walk func(*TreeNode)
	walk = func(n *TreeNode) {
		n.Item.SortOrder = len(out)
		out = append(out, n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range forest {
		walk(root)
	}
	return out
}

func itemFromRecord(rec ItemRecord, sortOrder int) QuoteItem {
	item := QuoteItem{
		SortOrder:        sortOrder,
		IsGroup:          rec.IsGroup,
		Particular:       rec.Particular,
		ActualWidth:      rec.ActualWidth,
		ActualHeight:     rec.ActualHeight,
		ChargeableWidth:  rec.ChargeableWidth,
		ChargeableHeight: rec.ChargeableHeight,
		Unit:             rec.Unit,
		ChargeableExtra:  DefaultChargeableExtra,
	}
	if rec.ChargeableExtra != nil {
		item.ChargeableExtra = *rec.ChargeableExtra
	}

	if rec.IsGroup {
		// Quantities, rates and surcharge counts are meaningless on an
		// aggregate node and must not be trusted from client input.
		item.Quantity = 1
		item.RateSqPer = 0
		item.Hole = 0
		item.Cutout = 0
		item.Total = 0
		if rec.HolePrice != nil {
			item.HolePrice = *rec.HolePrice
		}
		if rec.CutoutPrice != nil {
			item.CutoutPrice = *rec.CutoutPrice
		}
		return item
	}

	item.Quantity = 1
	if rec.Quantity != nil {
		item.Quantity = *rec.Quantity
	}
	if rec.RateSqPer != nil {
		item.RateSqPer = *rec.RateSqPer
	}
	item.Hole = rec.Hole
	item.Cutout = rec.Cutout
	return item
}

func groupToken(itemNumber int) string {
	return "group-" + strconv.Itoa(itemNumber)
}

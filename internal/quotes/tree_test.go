package quotes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int64) *int64 { return &i }

func TestBuildTreeAttachesChildrenToGroup(t *testing.T) {
	records := []ItemRecord{
		{Index: 0, IsGroup: true, Particular: "Toughened 12mm", ItemNumber: 1, HolePrice: floatPtr(50)},
		{Index: 1, Particular: "Panel A", ParentToken: "group-1", Quantity: floatPtr(2)},
		{Index: 2, Particular: "Panel B", ParentToken: "group-1"},
	}

	forest, unresolved := BuildTree(records)

	require.Empty(t, unresolved)
	require.Len(t, forest, 1)
	group := forest[0]
	assert.True(t, group.Item.IsGroup)
	assert.Equal(t, 50.0, group.Item.HolePrice)
	require.Len(t, group.Children, 2)
	assert.Equal(t, "Panel A", group.Children[0].Item.Particular)
	assert.Equal(t, "Panel B", group.Children[1].Item.Particular)
	// Children are numbered by position within their group.
	assert.Equal(t, 1, group.Children[0].Item.ItemNumber)
	assert.Equal(t, 2, group.Children[1].Item.ItemNumber)
}

func TestBuildTreeSkipsUnnamedGroup(t *testing.T) {
	records := []ItemRecord{
		{Index: 0, IsGroup: true, Particular: "", ItemNumber: 1},
		{Index: 1, Particular: "Orphan", ParentToken: "group-1"},
	}

	forest, unresolved := BuildTree(records)

	// The empty group vanishes entirely and is not a valid parent target,
	// so its would-be child surfaces at top level.
	require.Len(t, forest, 1)
	assert.Equal(t, "Orphan", forest[0].Item.Particular)
	assert.False(t, forest[0].Item.IsGroup)
	assert.Equal(t, []string{"group-1"}, unresolved)
}

func TestBuildTreeDemotesForwardReference(t *testing.T) {
	// The token map is populated in submission order; a child cannot
	// reference a group that appears later.
	records := []ItemRecord{
		{Index: 0, Particular: "Early child", ParentToken: "group-7"},
		{Index: 1, IsGroup: true, Particular: "Late group", ItemNumber: 7},
	}

	forest, unresolved := BuildTree(records)

	require.Len(t, forest, 2)
	assert.Equal(t, "Early child", forest[0].Item.Particular)
	assert.Equal(t, "Late group", forest[1].Item.Particular)
	assert.Empty(t, forest[1].Children)
	assert.Equal(t, []string{"group-7"}, unresolved)
}

func TestBuildTreeSelfReferencingGroupSurfacesTopLevel(t *testing.T) {
	// A group naming its own token as parent must not become its own
	// child; it is demoted to top level and stays reachable for later
	// children.
	records := []ItemRecord{
		{Index: 0, IsGroup: true, Particular: "Facade", ItemNumber: 1, ParentToken: "group-1"},
		{Index: 1, Particular: "Pane", ParentToken: "group-1"},
	}

	forest, unresolved := BuildTree(records)

	require.Len(t, forest, 1)
	group := forest[0]
	assert.True(t, group.Item.IsGroup)
	assert.Equal(t, "Facade", group.Item.Particular)
	require.Len(t, group.Children, 1)
	assert.Equal(t, "Pane", group.Children[0].Item.Particular)
	assert.Equal(t, []string{"group-1"}, unresolved)
}

func TestBuildTreeNestedGroups(t *testing.T) {
	records := []ItemRecord{
		{Index: 0, IsGroup: true, Particular: "Outer", ItemNumber: 1},
		{Index: 1, IsGroup: true, Particular: "Inner", ItemNumber: 2, ParentToken: "group-1"},
		{Index: 2, Particular: "Leaf", ParentToken: "group-2"},
	}

	forest, unresolved := BuildTree(records)

	require.Empty(t, unresolved)
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 1)
	inner := forest[0].Children[0]
	assert.True(t, inner.Item.IsGroup)
	require.Len(t, inner.Children, 1)
	assert.Equal(t, "Leaf", inner.Children[0].Item.Particular)
}

func TestBuildTreeGroupNormalizesClientFields(t *testing.T) {
	records := []ItemRecord{
		{
			Index: 0, IsGroup: true, Particular: "Group", ItemNumber: 1,
			Quantity: floatPtr(9), RateSqPer: floatPtr(500),
			Hole: 3, Cutout: 4,
			HolePrice: floatPtr(50), CutoutPrice: floatPtr(300),
		},
	}

	forest, _ := BuildTree(records)

	require.Len(t, forest, 1)
	item := forest[0].Item
	assert.Equal(t, 1.0, item.Quantity)
	assert.Equal(t, 0.0, item.RateSqPer)
	assert.Equal(t, 0, item.Hole)
	assert.Equal(t, 0, item.Cutout)
	assert.Equal(t, 0.0, item.Total)
	assert.Equal(t, 50.0, item.HolePrice)
	assert.Equal(t, 300.0, item.CutoutPrice)
}

func TestBuildTreeLeafDefaults(t *testing.T) {
	forest, _ := BuildTree([]ItemRecord{{Index: 0, Particular: "Bare"}})

	require.Len(t, forest, 1)
	item := forest[0].Item
	assert.Equal(t, 1.0, item.Quantity)
	assert.Equal(t, DefaultChargeableExtra, item.ChargeableExtra)
}

func TestBuildTreeTopLevelNumbering(t *testing.T) {
	records := []ItemRecord{
		{Index: 0, Particular: "First"},
		{Index: 1, IsGroup: true, Particular: "Second", ItemNumber: 5},
		{Index: 2, Particular: "Third"},
	}

	forest, _ := BuildTree(records)

	require.Len(t, forest, 3)
	assert.Equal(t, 1, forest[0].Item.ItemNumber)
	assert.Equal(t, 2, forest[1].Item.ItemNumber)
	assert.Equal(t, 3, forest[2].Item.ItemNumber)
}

func TestForestFromItemsRebuildsHierarchy(t *testing.T) {
	items := []QuoteItem{
		{ID: 10, IsGroup: true, Particular: "Group", SortOrder: 0},
		{ID: 11, ParentID: intPtr(10), Particular: "Child", SortOrder: 1},
		{ID: 12, Particular: "Loose", SortOrder: 2},
	}

	forest := ForestFromItems(items)

	require.Len(t, forest, 2)
	assert.Equal(t, "Group", forest[0].Item.Particular)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "Child", forest[0].Children[0].Item.Particular)
	assert.Equal(t, "Loose", forest[1].Item.Particular)
}

func TestForestFromItemsOrphanBecomesTopLevel(t *testing.T) {
	items := []QuoteItem{
		{ID: 11, ParentID: intPtr(999), Particular: "Orphan", SortOrder: 0},
	}

	forest := ForestFromItems(items)

	require.Len(t, forest, 1)
	assert.Equal(t, "Orphan", forest[0].Item.Particular)
}

func TestFlattenVisitsParentsBeforeChildren(t *testing.T) {
	forest := []*TreeNode{
		{
			Item: QuoteItem{Particular: "G1", IsGroup: true},
			Children: []*TreeNode{
				{Item: QuoteItem{Particular: "C1"}},
				{Item: QuoteItem{Particular: "C2"}},
			},
		},
		{Item: QuoteItem{Particular: "Top"}},
	}

	flat := Flatten(forest)

	require.Len(t, flat, 4)
	order := []string{}
	for i, node := range flat {
		order = append(order, node.Item.Particular)
		assert.Equal(t, i, node.Item.SortOrder)
	}
	assert.Equal(t, []string{"G1", "C1", "C2", "Top"}, order)
}

package quotes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemFormDecodesIndexedFields(t *testing.T) {
	values := url.Values{
		"items[0][particular]":      {"Toughened 12mm"},
		"items[0][is_group]":        {"true"},
		"items[0][item_number]":     {"1"},
		"items[0][hole_price]":      {"50"},
		"items[0][cutout_price]":    {"300"},
		"items[1][particular]":      {"Shopfront panel"},
		"items[1][parent_id]":       {"group-1"},
		"items[1][actual_width]":    {"1000"},
		"items[1][actual_height]":   {"1000"},
		"items[1][unit]":            {"mm"},
		"items[1][chargeable_extra]": {"30"},
		"items[1][quantity]":        {"2"},
		"items[1][rate_sqper]":      {"800"},
		"items[1][cutout]":          {"1"},
	}

	records, err := ParseItemForm(values)

	require.NoError(t, err)
	require.Len(t, records, 2)

	group := records[0]
	assert.True(t, group.IsGroup)
	assert.Equal(t, "Toughened 12mm", group.Particular)
	assert.Equal(t, 1, group.ItemNumber)
	require.NotNil(t, group.HolePrice)
	assert.Equal(t, 50.0, *group.HolePrice)

	leaf := records[1]
	assert.Equal(t, "group-1", leaf.ParentToken)
	assert.Equal(t, "MM", leaf.Unit)
	require.NotNil(t, leaf.ActualWidth)
	assert.Equal(t, 1000.0, *leaf.ActualWidth)
	require.NotNil(t, leaf.Quantity)
	assert.Equal(t, 2.0, *leaf.Quantity)
	assert.Equal(t, 1, leaf.Cutout)
}

func TestParseItemFormOrdersByIndex(t *testing.T) {
	values := url.Values{
		"items[7][particular]": {"Late"},
		"items[2][particular]": {"Middle"},
		"items[0][particular]": {"Early"},
	}

	records, err := ParseItemForm(values)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Early", records[0].Particular)
	assert.Equal(t, "Middle", records[1].Particular)
	assert.Equal(t, "Late", records[2].Particular)
}

func TestParseItemFormMalformedNumberFailsWholeDecode(t *testing.T) {
	values := url.Values{
		"items[0][particular]": {"Good"},
		"items[1][rate_sqper]": {"eight hundred"},
	}

	records, err := ParseItemForm(values)

	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "rate_sqper")
}

func TestParseItemFormIgnoresDerivedAndUnknownFields(t *testing.T) {
	values := url.Values{
		"items[0][particular]":  {"Panel"},
		"items[0][total]":       {"not-a-number"},
		"items[0][unit_square]": {"also-bad"},
		"unrelated":             {"x"},
	}

	records, err := ParseItemForm(values)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Panel", records[0].Particular)
}

func TestParseItemFormEmptyValuesStayAbsent(t *testing.T) {
	values := url.Values{
		"items[0][particular]":   {"Panel"},
		"items[0][actual_width]": {""},
		"items[0][quantity]":     {""},
	}

	records, err := ParseItemForm(values)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].ActualWidth)
	assert.Nil(t, records[0].Quantity)
}

func TestParseItemFormBoolVariants(t *testing.T) {
	for _, v := range []string{"true", "1", "on", "yes"} {
		values := url.Values{"items[0][is_group]": {v}}
		records, err := ParseItemForm(values)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, records[0].IsGroup, "value %q", v)
	}

	values := url.Values{"items[0][is_group]": {"false"}}
	records, err := ParseItemForm(values)
	require.NoError(t, err)
	assert.False(t, records[0].IsGroup)
}

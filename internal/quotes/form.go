package quotes

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ItemRecord is one raw row of the flat, index-keyed item submission.
// The field set mirrors the items[<index>][<field>] wire contract with
// the form layer; pointer fields distinguish "absent" from zero.
type ItemRecord struct {
	Index            int
	Particular       string
	IsGroup          bool
	ParentToken      string
	ItemNumber       int
	ActualWidth      *float64
	ActualHeight     *float64
	ChargeableWidth  *float64
	ChargeableHeight *float64
	Unit             string
	ChargeableExtra  *float64
	Quantity         *float64
	RateSqPer        *float64
	Hole             int
	Cutout           int
	HolePrice        *float64
	CutoutPrice      *float64
}

var itemFieldPattern = regexp.MustCompile(`^items\[(\d+)\]\[([a-z_]+)\]$`)

// ParseItemForm decodes items[<index>][<field>] form fields into records
// ordered by ascending submission index. A single malformed numeric value
// fails the whole decode; the caller must treat that as a failure of the
// entire submission.
func ParseItemForm(values url.Values) ([]ItemRecord, error) {
	byIndex := make(map[int]*ItemRecord)

	for key, vals := range values {
		match := itemFieldPattern.FindStringSubmatch(key)
		if match == nil || len(vals) == 0 {
			continue
		}
		idx, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		rec, ok := byIndex[idx]
		if !ok {
			rec = &ItemRecord{Index: idx}
			byIndex[idx] = rec
		}
		if err := setItemField(rec, match[2], strings.TrimSpace(vals[0])); err != nil {
			return nil, fmt.Errorf("item %d: %w", idx, err)
		}
	}

	records := make([]ItemRecord, 0, len(byIndex))
	for _, rec := range byIndex {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })
	return records, nil
}

func setItemField(rec *ItemRecord, field, value string) error {
	switch field {
	case "particular":
		rec.Particular = value
	case "is_group":
		rec.IsGroup = parseFormBool(value)
	case "parent_id":
		rec.ParentToken = value
	case "item_number":
		n, err := parseFormInt(field, value)
		if err != nil {
			return err
		}
		rec.ItemNumber = n
	case "actual_width":
		return assignFloat(&rec.ActualWidth, field, value)
	case "actual_height":
		return assignFloat(&rec.ActualHeight, field, value)
	case "chargeable_width":
		return assignFloat(&rec.ChargeableWidth, field, value)
	case "chargeable_height":
		return assignFloat(&rec.ChargeableHeight, field, value)
	case "unit":
		rec.Unit = strings.ToUpper(value)
	case "chargeable_extra":
		return assignFloat(&rec.ChargeableExtra, field, value)
	case "quantity":
		return assignFloat(&rec.Quantity, field, value)
	case "rate_sqper":
		return assignFloat(&rec.RateSqPer, field, value)
	case "hole":
		n, err := parseFormInt(field, value)
		if err != nil {
			return err
		}
		rec.Hole = n
	case "cutout":
		n, err := parseFormInt(field, value)
		if err != nil {
			return err
		}
		rec.Cutout = n
	case "hole_price":
		return assignFloat(&rec.HolePrice, field, value)
	case "cutout_price":
		return assignFloat(&rec.CutoutPrice, field, value)
	default:
		// Unknown fields (client-side display values such as total or
		// unit_square) are ignored; the server recomputes them.
	}
	return nil
}

func assignFloat(dst **float64, field, value string) error {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("field %s: invalid number %q", field, value)
	}
	*dst = &f
	return nil
}

func parseFormInt(field, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("field %s: invalid integer %q", field, value)
	}
	return n, nil
}

func parseFormBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

// Package history reconstructs human-readable change lists from stored bill
// snapshots. The differ is pure and display-only: it never mutates state and
// tolerates missing or malformed fields by defaulting to zero.
package history

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Comparison tolerances. Deltas at or below these are treated as noise.
const (
	weightTolerance = 0.001
	moneyTolerance  = 0.01
)

// snapshotItem is the normalized per-line view the differ compares. Fields
// are coerced from loosely typed JSON, so legacy snapshots (no ids, numbers
// stored as strings) still diff.
type snapshotItem struct {
	id       int64
	name     string
	weight   float64
	quantity int
	price    float64
	amount   float64
}

// key resolves an item's identity: by id when present, by name for legacy
// snapshots lacking ids.
func (it *snapshotItem) key() string {
	if it.id != 0 {
		return "id:" + strconv.FormatInt(it.id, 10)
	}
	return "name:" + it.name
}

type snapshot struct {
	totalAmount float64
	items       []snapshotItem
}

// Diff compares two JSON snapshots of a bill (previous, new) and returns a
// change line per field whose delta exceeds its tolerance, plus added and
// removed lines. Order: total-amount change first, then per-item changes in
// new-snapshot order, then removals.
func Diff(previous, next []byte) ([]string, error) {
	prev, err := parseSnapshot(previous)
	if err != nil {
		return nil, fmt.Errorf("parse previous snapshot: %w", err)
	}
	curr, err := parseSnapshot(next)
	if err != nil {
		return nil, fmt.Errorf("parse new snapshot: %w", err)
	}

	var changes []string

	if math.Abs(curr.totalAmount-prev.totalAmount) > moneyTolerance {
		changes = append(changes, fmt.Sprintf("Total: %.2f -> %.2f", prev.totalAmount, curr.totalAmount))
	}

	prevByKey := make(map[string]*snapshotItem, len(prev.items))
	for i := range prev.items {
		prevByKey[prev.items[i].key()] = &prev.items[i]
	}
	currKeys := make(map[string]bool, len(curr.items))

	for i := range curr.items {
		item := &curr.items[i]
		currKeys[item.key()] = true

		old, ok := prevByKey[item.key()]
		if !ok {
			changes = append(changes, "Added: "+item.name)
			continue
		}
		changes = append(changes, itemChanges(old, item)...)
	}

	for i := range prev.items {
		if !currKeys[prev.items[i].key()] {
			changes = append(changes, "Removed: "+prev.items[i].name)
		}
	}

	return changes, nil
}

// itemChanges emits one line per changed field of an item present in both
// snapshots.
func itemChanges(old, curr *snapshotItem) []string {
	var changes []string
	if math.Abs(curr.weight-old.weight) > weightTolerance {
		changes = append(changes, fmt.Sprintf("%s weight: %.3f -> %.3f", curr.name, old.weight, curr.weight))
	}
	if curr.quantity != old.quantity {
		changes = append(changes, fmt.Sprintf("%s quantity: %d -> %d", curr.name, old.quantity, curr.quantity))
	}
	if math.Abs(curr.price-old.price) > moneyTolerance {
		changes = append(changes, fmt.Sprintf("%s price: %.2f -> %.2f", curr.name, old.price, curr.price))
	}
	if math.Abs(curr.amount-old.amount) > moneyTolerance {
		changes = append(changes, fmt.Sprintf("%s amount: %.2f -> %.2f", curr.name, old.amount, curr.amount))
	}
	return changes
}

// parseSnapshot decodes a snapshot defensively. Unknown fields are ignored,
// missing fields default to zero, and numbers that arrive as strings are
// coerced.
func parseSnapshot(raw []byte) (snapshot, error) {
	var snap snapshot
	if len(raw) == 0 {
		return snap, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return snap, err
	}

	snap.totalAmount = asFloat(doc["totalAmount"])

	items, _ := doc["items"].([]any)
	for _, entry := range items {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		snap.items = append(snap.items, snapshotItem{
			id:       int64(asFloat(fields["id"])),
			name:     asString(fields["name"]),
			weight:   asFloat(fields["weight"]),
			quantity: int(asFloat(fields["quantity"])),
			price:    asFloat(fields["price"]),
			amount:   asFloat(fields["amount"]),
		})
	}
	return snap, nil
}

func asFloat(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case json.Number:
		f, _ := value.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(value, 64)
		return f
	case bool:
		if value {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

package models

// UnitType discriminates how an item is measured and priced.
type UnitType string

const (
	// UnitWeight items are weighed and priced per kilogram.
	UnitWeight UnitType = "weight"
	// UnitCount items are counted and priced per piece.
	UnitCount UnitType = "count"
)

// Valid reports whether the unit type is one of the known values.
func (u UnitType) Valid() bool {
	return u == UnitWeight || u == UnitCount
}

// Item represents a sellable unit.
//
// The two price fields are caches: they hold the price used on the most
// recent bill that referenced the item and are overwritten on every bill
// save. Exactly one of them is meaningful depending on UnitType.
type Item struct {
	// ID is the store-assigned identifier.
	ID int64

	// Name uniquely identifies the item (case-sensitive).
	Name string

	// UnitType is weight or count.
	UnitType UnitType

	// LastPricePerKg is the cached per-kilogram price (weight items).
	LastPricePerKg float64

	// LastPricePerUnit is the cached per-piece price (count items).
	LastPricePerUnit float64
}

package models

import "time"

// DefaultCustomerName is used when a bill is saved without a customer name.
const DefaultCustomerName = "Walk-in Customer"

// WeightMode discriminates how an entered weight is interpreted.
type WeightMode string

const (
	// ModeNormal trusts the entered weight as-is.
	ModeNormal WeightMode = "normal"
	// ModeL treats the entered weight as already reduced by the configured
	// reduction factor; the true weight is reconstructed for the records.
	ModeL WeightMode = "L"
)

// Valid reports whether the mode is one of the known values.
func (m WeightMode) Valid() bool {
	return m == ModeNormal || m == ModeL
}

// Bill represents one purchase transaction.
type Bill struct {
	// ID is the store-assigned identifier.
	ID int64

	// BillNumber is the unique, date-scoped number, e.g. "FAM02030001".
	// Assigned by the store at save time.
	BillNumber string

	// CustomerName defaults to DefaultCustomerName when empty.
	CustomerName string

	// CustomerPhone is optional.
	CustomerPhone string

	// TotalAmount is derived: the 2-decimal-rounded sum of line amounts,
	// recomputed by the store at write time. Caller-provided values are
	// ignored.
	TotalAmount float64

	// Date is the creation timestamp.
	Date time.Time

	// IsSynced reports whether the remote backend has acknowledged this
	// bill. Any edit resets it to false.
	IsSynced bool

	// SyncAttempts counts failed sync attempts since the last success.
	SyncAttempts int

	// LastSyncAttempt is the time of the most recent attempt, nil if never
	// attempted.
	LastSyncAttempt *time.Time

	// Lines are the bill's line items.
	Lines []BillLine
}

// BillLine is one item's contribution to a bill. It is a tagged variant:
// weight lines populate the weight fields and PricePerKg, count lines
// populate Quantity and PricePerUnit. The discriminant is UnitType.
type BillLine struct {
	ID     int64
	BillID int64
	ItemID int64

	// ItemName and UnitType are joined from the referenced item on reads.
	ItemName string
	UnitType UnitType

	// Weight fields, zero for count lines. FinalWeight always equals
	// OriginalWeight; in L mode LWeight holds the displayed (reduced)
	// weight and ReducedWeight the difference.
	OriginalWeight float64
	LWeight        float64
	ReducedWeight  float64
	FinalWeight    float64
	WeightMode     WeightMode

	// Quantity for count lines, zero for weight lines.
	Quantity int

	// Exactly one price is populated, per UnitType.
	PricePerKg   float64
	PricePerUnit float64

	// Amount is derived, 2-decimal rounded.
	Amount float64
}

// BilledWeight returns the weight the customer is billed on: the displayed
// weight in L mode, the full weight otherwise.
func (l *BillLine) BilledWeight() float64 {
	if l.WeightMode == ModeL {
		return l.LWeight
	}
	return l.FinalWeight
}

// WeightSetting is a single named configuration value.
type WeightSetting struct {
	Key       string
	Value     float64
	UpdatedAt time.Time
}

// ReductionFactorKey names the L-mode reduction factor setting.
const ReductionFactorKey = "l_reduction_factor"

// DefaultReductionFactor applies when no setting has been stored.
const DefaultReductionFactor = 0.1

// SyncQueueEntry is a durable marker of a pending remote operation for a
// bill. Sync status lives on the bill itself; the queue is an audit trail.
type SyncQueueEntry struct {
	ID        string // UUID
	BillID    int64
	Operation string // "create" or "update"
	CreatedAt time.Time
}

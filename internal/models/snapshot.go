package models

import "time"

// SnapshotSchemaVersion is stamped on every snapshot written going forward so
// future format changes do not silently break diffing.
const SnapshotSchemaVersion = 1

// Snapshot is a stored JSON record of a bill's state at one point in time,
// written on every save and update. The edit-history differ compares
// consecutive snapshots of the same bill.
type Snapshot struct {
	ID        int64
	BillID    int64
	Data      []byte // JSON, see SnapshotData
	CreatedAt time.Time
}

// SnapshotData is the normalized shape of a snapshot payload. Legacy
// snapshots may lack SchemaVersion and item IDs; the differ tolerates both.
type SnapshotData struct {
	SchemaVersion int            `json:"schemaVersion,omitempty"`
	TotalAmount   float64        `json:"totalAmount"`
	Items         []SnapshotItem `json:"items"`
}

// SnapshotItem carries the per-line fields the differ compares. Weight is
// the billed weight for weight lines; Quantity is set for count lines.
type SnapshotItem struct {
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
}

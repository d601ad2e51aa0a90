// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/famscrap/scrapbill/internal/models"
)

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service or sync layers.
//
// Implementations must serialize mutating operations relative to each other:
// a save combines a numbering read, a header insert and N line inserts that
// must appear atomic to concurrent readers. Readers never observe a
// partially written bill.
type Store interface {
	// SaveBill persists a new bill and its lines atomically. It assigns the
	// bill number and ID, derives the total from the line amounts, updates
	// each referenced item's cached price, and records a snapshot and a
	// sync-queue entry. The bill is created unsynced.
	SaveBill(ctx context.Context, bill *models.Bill) (int64, error)

	// UpdateBill replaces the bill's lines wholesale, overwrites header
	// fields, recomputes the total and resets the bill to unsynced. The
	// bill number and creation date are preserved.
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// GetBillDetails returns a bill with its lines joined to items. For
	// L-mode lines the displayed amount is recomputed from the billed
	// weight so it always matches what the customer paid.
	GetBillDetails(ctx context.Context, id int64) (*models.Bill, error)

	// ListBills returns all bill headers, newest first. Read-only.
	ListBills(ctx context.Context) ([]models.Bill, error)

	// DeleteBill removes a bill and cascades to its lines.
	DeleteBill(ctx context.Context, id int64) error

	// UnsyncedBills returns all bills with is_synced false, oldest first,
	// each with fully materialized lines.
	UnsyncedBills(ctx context.Context) ([]models.Bill, error)

	// MarkSynced records a successful sync: sets the synced flag, resets
	// the attempt counter, stamps the attempt time and clears the bill's
	// sync-queue entries.
	MarkSynced(ctx context.Context, billID int64, at time.Time) error

	// RecordSyncFailure increments the attempt counter and stamps the
	// attempt time. The bill stays unsynced.
	RecordSyncFailure(ctx context.Context, billID int64, at time.Time) error

	// PendingQueue returns the outstanding sync-queue entries, oldest first.
	PendingQueue(ctx context.Context) ([]models.SyncQueueEntry, error)

	// CreateItem inserts a new item. Names are unique.
	CreateItem(ctx context.Context, item *models.Item) (int64, error)

	// GetItem returns an item by ID.
	GetItem(ctx context.Context, id int64) (*models.Item, error)

	// GetItemByName returns an item by its unique name.
	GetItemByName(ctx context.Context, name string) (*models.Item, error)

	// ListItems returns all items ordered by name. Read-only.
	ListItems(ctx context.Context) ([]models.Item, error)

	// UpdateItemPrices overwrites an item's cached prices.
	UpdateItemPrices(ctx context.Context, id int64, perKg, perUnit float64) error

	// DeleteItem removes an item. Fails with models.ErrItemInUse while any
	// bill line references it.
	DeleteItem(ctx context.Context, id int64) error

	// EnsureBottleType returns the count-type "<name> Bottle" item,
	// creating it if absent.
	EnsureBottleType(ctx context.Context, name string) (*models.Item, error)

	// ReductionFactor returns the configured L-mode reduction factor, or
	// the default when none has been stored.
	ReductionFactor(ctx context.Context) (float64, error)

	// SetReductionFactor upserts the L-mode reduction factor. The value
	// must lie in [0, 1).
	SetReductionFactor(ctx context.Context, r float64) error

	// Snapshots returns a bill's stored snapshots, oldest first.
	Snapshots(ctx context.Context, billID int64) ([]models.Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}

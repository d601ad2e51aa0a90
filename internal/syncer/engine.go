// Package syncer reconciles the local ledger with the remote backend. It
// detects unsynced bills, rebuilds canonical payloads, transmits them with
// bounded timeouts and records per-bill sync state. Bills are processed
// sequentially, oldest first; one bill's failure never blocks the rest of
// the batch.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/famscrap/scrapbill/internal/metrics"
	"github.com/famscrap/scrapbill/internal/models"
	"github.com/famscrap/scrapbill/internal/storage"
)

// DefaultMaxRetries caps automatic resubmission. Bills past the cap stay
// unsynced until cleared manually: terminal but recoverable.
const DefaultMaxRetries = 3

// Engine is the sync state machine driver. Per bill:
// Unsynced -> (Syncing) -> Synced, or back to Unsynced with attempts+1.
// No bill ever leaves Synced automatically.
type Engine struct {
	store      storage.Store
	client     *Client
	metrics    *metrics.Metrics
	maxRetries int
	deviceID   string

	online atomic.Bool
	mu     sync.Mutex // one sync pass at a time
}

// Result summarizes one sync pass.
type Result struct {
	SyncedBills int    `json:"syncedBills"`
	FailedBills int    `json:"failedBills"`
	SyncedItems int    `json:"syncedItems"`
	Message     string `json:"message"`
}

// NewEngine creates a sync engine. maxRetries <= 0 selects the default.
func NewEngine(store storage.Store, client *Client, m *metrics.Metrics, maxRetries int) *Engine {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	e := &Engine{
		store:      store,
		client:     client,
		metrics:    m,
		maxRetries: maxRetries,
		deviceID:   uuid.New().String(),
	}
	e.online.Store(true)
	return e
}

// SetOnline records the collaborator's connectivity signal. The engine fails
// fast while offline instead of attempting HTTP calls.
func (e *Engine) SetOnline(online bool) {
	e.online.Store(online)
	slog.Info("Connectivity changed", "online", online)
}

// Online reports the last known connectivity state.
func (e *Engine) Online() bool {
	return e.online.Load()
}

// RetryEligible reports whether a bill may still be resubmitted
// automatically.
func (e *Engine) RetryEligible(bill *models.Bill) bool {
	return bill.SyncAttempts < e.maxRetries
}

// SyncOne builds, validates and transmits the payload for a single bill.
// It does not touch persisted sync state; callers record the outcome.
func (e *Engine) SyncOne(ctx context.Context, bill *models.Bill) error {
	if !e.online.Load() {
		return fmt.Errorf("%w: no internet connection", models.ErrOffline)
	}

	reduction, err := e.store.ReductionFactor(ctx)
	if err != nil {
		return err
	}

	payload, err := BuildPayload(bill, reduction, e.deviceID)
	if err != nil {
		return err
	}
	if problems := Validate(payload); len(problems) > 0 {
		return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(problems, "; "))
	}

	return e.client.SyncBill(ctx, payload)
}

// SyncAll probes the backend once, then pushes every unsynced bill, oldest
// first. Each success marks the bill synced; each failure increments its
// attempt counter; the batch always continues. SyncAll never returns an
// error: every outcome is reported through the Result.
func (e *Engine) SyncAll(ctx context.Context) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.online.Load() {
		slog.Info("Sync skipped: device offline")
		return Result{Message: "No internet connection, sync skipped"}
	}
	if err := e.client.Probe(ctx); err != nil {
		slog.Warn("Sync aborted: backend unreachable", "error", err)
		return Result{Message: fmt.Sprintf("Backend unreachable, sync aborted: %v", err)}
	}

	bills, err := e.store.UnsyncedBills(ctx)
	if err != nil {
		slog.Error("Failed to read unsynced bills", "error", err)
		return Result{Message: fmt.Sprintf("Could not read unsynced bills: %v", err)}
	}
	if len(bills) == 0 {
		return Result{Message: "Nothing to sync"}
	}

	return e.push(ctx, bills)
}

// RetryPending resubmits only retry-eligible unsynced bills. Bills past the
// retry cap are left alone.
func (e *Engine) RetryPending(ctx context.Context) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.online.Load() {
		return Result{Message: "No internet connection, retry skipped"}
	}
	if err := e.client.Probe(ctx); err != nil {
		return Result{Message: fmt.Sprintf("Backend unreachable, retry aborted: %v", err)}
	}

	bills, err := e.store.UnsyncedBills(ctx)
	if err != nil {
		slog.Error("Failed to read unsynced bills", "error", err)
		return Result{Message: fmt.Sprintf("Could not read unsynced bills: %v", err)}
	}

	eligible := bills[:0]
	for i := range bills {
		if e.RetryEligible(&bills[i]) {
			eligible = append(eligible, bills[i])
		}
	}
	if len(eligible) == 0 {
		return Result{Message: "No retry-eligible bills"}
	}

	return e.push(ctx, eligible)
}

// push transmits the given bills sequentially and records per-bill state.
func (e *Engine) push(ctx context.Context, bills []models.Bill) Result {
	var result Result
	for i := range bills {
		bill := &bills[i]

		e.metrics.SyncAttempts.Inc()
		start := time.Now()
		err := e.SyncOne(ctx, bill)
		e.metrics.SyncDuration.Observe(time.Since(start).Seconds())

		now := time.Now()
		if err != nil {
			e.metrics.SyncFailures.Inc()
			result.FailedBills++
			slog.Warn("Bill sync failed",
				"bill_number", bill.BillNumber,
				"attempts", bill.SyncAttempts+1,
				"error", err,
			)
			if recErr := e.store.RecordSyncFailure(ctx, bill.ID, now); recErr != nil {
				slog.Error("Failed to record sync failure", "bill_id", bill.ID, "error", recErr)
			}
			continue
		}

		e.metrics.SyncSuccesses.Inc()
		if markErr := e.store.MarkSynced(ctx, bill.ID, now); markErr != nil {
			slog.Error("Failed to mark bill synced", "bill_id", bill.ID, "error", markErr)
			result.FailedBills++
			continue
		}
		result.SyncedBills++
		result.SyncedItems += len(bill.Lines)
		slog.Info("Bill synced", "bill_number", bill.BillNumber, "lines", len(bill.Lines))
	}

	result.Message = fmt.Sprintf("Synced %d bill(s) (%d item(s)), %d failed",
		result.SyncedBills, result.SyncedItems, result.FailedBills)
	return result
}

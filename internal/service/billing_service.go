// Package service orchestrates the weight model, bill numbering and the
// ledger store behind the collaborator-facing commands and queries.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/famscrap/scrapbill/internal/history"
	"github.com/famscrap/scrapbill/internal/metrics"
	"github.com/famscrap/scrapbill/internal/models"
	"github.com/famscrap/scrapbill/internal/storage"
	"github.com/famscrap/scrapbill/internal/weight"
)

// BillingService implements the billing commands and queries over a store.
type BillingService struct {
	store   storage.Store
	metrics *metrics.Metrics
}

// NewBillingService creates a BillingService with the given storage backend.
func NewBillingService(store storage.Store, m *metrics.Metrics) *BillingService {
	return &BillingService{store: store, metrics: m}
}

// LineInput is one raw user-entered line item. Weight items carry one or
// more scale readings and a single mode for the whole line; count items
// carry a quantity (default 1).
type LineInput struct {
	ItemID        int64              `json:"itemId"`
	WeightEntries []float64          `json:"weightEntries,omitempty"`
	WeightMode    models.WeightMode  `json:"weightMode,omitempty"`
	Quantity      int                `json:"quantity,omitempty"`
	PricePerKg    float64            `json:"pricePerKg,omitempty"`
	PricePerUnit  float64            `json:"pricePerUnit,omitempty"`
}

// BillInput is the raw user-entered bill.
type BillInput struct {
	CustomerName  string      `json:"customerName"`
	CustomerPhone string      `json:"customerPhone"`
	Lines         []LineInput `json:"lines"`
}

// CreateBill derives the line amounts, persists the bill atomically and
// returns it with its assigned number, ID and total.
func (s *BillingService) CreateBill(ctx context.Context, input BillInput) (*models.Bill, error) {
	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Lines:         lines,
	}
	if _, err := s.store.SaveBill(ctx, bill); err != nil {
		return nil, err
	}
	s.metrics.BillsCreated.Inc()
	slog.Info("Bill created",
		"bill_number", bill.BillNumber,
		"lines", len(bill.Lines),
		"total", bill.TotalAmount,
	)
	return bill, nil
}

// UpdateBill replaces the bill's lines wholesale and recomputes the total.
// The edit resets the bill to unsynced.
func (s *BillingService) UpdateBill(ctx context.Context, billID int64, input BillInput) (*models.Bill, error) {
	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		ID:            billID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Lines:         lines,
	}
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return nil, err
	}
	s.metrics.BillsUpdated.Inc()
	slog.Info("Bill updated", "bill_number", bill.BillNumber, "total", bill.TotalAmount)
	return bill, nil
}

// buildLines derives the stored representation of each raw line via the
// weight model. Each line carries a single mode; the entry form enforces
// that before the ledger ever sees the line.
func (s *BillingService) buildLines(ctx context.Context, inputs []LineInput) ([]models.BillLine, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: bill has no line items", models.ErrValidation)
	}

	reduction, err := s.store.ReductionFactor(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]models.BillLine, 0, len(inputs))
	for i, input := range inputs {
		item, err := s.store.GetItem(ctx, input.ItemID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		line := models.BillLine{
			ItemID:   item.ID,
			ItemName: item.Name,
			UnitType: item.UnitType,
		}

		switch item.UnitType {
		case models.UnitCount:
			quantity := input.Quantity
			if quantity == 0 {
				quantity = 1
			}
			amount, err := weight.ComputeCountLine(quantity, input.PricePerUnit)
			if err != nil {
				return nil, fmt.Errorf("line %d (%s): %w", i, item.Name, err)
			}
			line.WeightMode = models.ModeNormal
			line.Quantity = quantity
			line.PricePerUnit = input.PricePerUnit
			line.Amount = amount

		default:
			mode := input.WeightMode
			if mode == "" {
				mode = models.ModeNormal
			}
			entered := weight.SumEntries(input.WeightEntries)
			derived, err := weight.ComputeWeightLine(entered, mode, reduction, input.PricePerKg)
			if err != nil {
				return nil, fmt.Errorf("line %d (%s): %w", i, item.Name, err)
			}
			line.WeightMode = mode
			line.OriginalWeight = derived.OriginalWeight
			line.LWeight = derived.LWeight
			line.ReducedWeight = derived.ReducedWeight
			line.FinalWeight = derived.FinalWeight
			line.PricePerKg = input.PricePerKg
			line.Amount = derived.Amount
		}

		lines = append(lines, line)
	}
	return lines, nil
}

// GetBill returns the bill with its lines.
func (s *BillingService) GetBill(ctx context.Context, billID int64) (*models.Bill, error) {
	return s.store.GetBillDetails(ctx, billID)
}

// ListBills returns all bill headers, newest first.
func (s *BillingService) ListBills(ctx context.Context) ([]models.Bill, error) {
	return s.store.ListBills(ctx)
}

// DeleteBill removes a bill and its lines.
func (s *BillingService) DeleteBill(ctx context.Context, billID int64) error {
	if err := s.store.DeleteBill(ctx, billID); err != nil {
		return err
	}
	slog.Info("Bill deleted", "bill_id", billID)
	return nil
}

// HistoryEntry is one edit's worth of human-readable changes.
type HistoryEntry struct {
	At      string   `json:"at"`
	Changes []string `json:"changes"`
}

// BillHistory diffs the bill's consecutive snapshots into a change list per
// edit. Display-only; a bill saved once and never edited has no entries.
func (s *BillingService) BillHistory(ctx context.Context, billID int64) ([]HistoryEntry, error) {
	if _, err := s.store.GetBillDetails(ctx, billID); err != nil {
		return nil, err
	}
	snaps, err := s.store.Snapshots(ctx, billID)
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	for i := 1; i < len(snaps); i++ {
		changes, err := history.Diff(snaps[i-1].Data, snaps[i].Data)
		if err != nil {
			slog.Warn("Skipping undiffable snapshot pair",
				"bill_id", billID, "snapshot_id", snaps[i].ID, "error", err)
			continue
		}
		if len(changes) == 0 {
			continue
		}
		entries = append(entries, HistoryEntry{
			At:      snaps[i].CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			Changes: changes,
		})
	}
	return entries, nil
}

// CreateItem adds a sellable item.
func (s *BillingService) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	if _, err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	slog.Info("Item created", "name", item.Name, "unit_type", item.UnitType)
	return item, nil
}

// CreateBottleType creates the implicit "<name> Bottle" count item.
func (s *BillingService) CreateBottleType(ctx context.Context, name string) (*models.Item, error) {
	return s.store.EnsureBottleType(ctx, name)
}

// ListItems returns all items.
func (s *BillingService) ListItems(ctx context.Context) ([]models.Item, error) {
	return s.store.ListItems(ctx)
}

// UpdateItemPrices applies an explicit price edit.
func (s *BillingService) UpdateItemPrices(ctx context.Context, itemID int64, perKg, perUnit float64) error {
	return s.store.UpdateItemPrices(ctx, itemID, perKg, perUnit)
}

// DeleteItem removes an item if no bill line references it.
func (s *BillingService) DeleteItem(ctx context.Context, itemID int64) error {
	return s.store.DeleteItem(ctx, itemID)
}

// ReductionFactor returns the configured L-mode reduction factor.
func (s *BillingService) ReductionFactor(ctx context.Context) (float64, error) {
	return s.store.ReductionFactor(ctx)
}

// SetReductionFactor upserts the L-mode reduction factor.
func (s *BillingService) SetReductionFactor(ctx context.Context, r float64) error {
	if err := s.store.SetReductionFactor(ctx, r); err != nil {
		return err
	}
	slog.Info("Reduction factor updated", "value", r)
	return nil
}

package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/famscrap/scrapbill/internal/metrics"
	"github.com/famscrap/scrapbill/internal/models"
	"github.com/famscrap/scrapbill/internal/storage/sqlite"
)

func newTestService(t *testing.T) *BillingService {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"), "FAM")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewBillingService(store, metrics.New(prometheus.NewRegistry()))
}

func mustItem(t *testing.T, s *BillingService, name string, unit models.UnitType) *models.Item {
	t.Helper()
	item, err := s.CreateItem(context.Background(), &models.Item{Name: name, UnitType: unit})
	if err != nil {
		t.Fatalf("CreateItem(%q) failed: %v", name, err)
	}
	return item
}

func TestCreateBill(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	iron := mustItem(t, s, "Iron", models.UnitWeight)
	bottle := mustItem(t, s, "Beer Bottle", models.UnitCount)

	bill, err := s.CreateBill(ctx, BillInput{
		CustomerName: "Ravi",
		Lines: []LineInput{
			{ItemID: iron.ID, WeightEntries: []float64{4.0, 6.0}, WeightMode: models.ModeNormal, PricePerKg: 50.0},
			{ItemID: bottle.ID, Quantity: 5, PricePerUnit: 20.0},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	if bill.BillNumber == "" {
		t.Error("Bill number not assigned")
	}
	// Entries are summed before the mode conversion: 4 + 6 = 10kg at 50/kg.
	if bill.Lines[0].Amount != 500.0 {
		t.Errorf("Weight line amount = %v, want 500.0", bill.Lines[0].Amount)
	}
	if bill.Lines[1].Amount != 100.0 {
		t.Errorf("Count line amount = %v, want 100.0", bill.Lines[1].Amount)
	}
	if bill.TotalAmount != 600.0 {
		t.Errorf("TotalAmount = %v, want 600.0", bill.TotalAmount)
	}

	t.Run("round trip", func(t *testing.T) {
		got, err := s.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if got.TotalAmount != bill.TotalAmount || len(got.Lines) != 2 {
			t.Errorf("Round trip mismatch: %+v", got)
		}
	})
}

func TestCreateBillLMode(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	iron := mustItem(t, s, "Iron", models.UnitWeight)

	// Default reduction factor is 0.1: 9kg displayed -> 10kg true.
	bill, err := s.CreateBill(ctx, BillInput{
		Lines: []LineInput{
			{ItemID: iron.ID, WeightEntries: []float64{9.0}, WeightMode: models.ModeL, PricePerKg: 50.0},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	line := bill.Lines[0]
	if line.OriginalWeight != 10.0 || line.ReducedWeight != 1.0 || line.LWeight != 9.0 {
		t.Errorf("L-mode line = %+v", line)
	}
	if line.Amount != 450.0 {
		t.Errorf("Amount = %v, want 450.0 (billed on displayed weight)", line.Amount)
	}
}

func TestCreateBillUsesConfiguredReduction(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	iron := mustItem(t, s, "Iron", models.UnitWeight)

	if err := s.SetReductionFactor(ctx, 0.25); err != nil {
		t.Fatalf("SetReductionFactor failed: %v", err)
	}

	bill, err := s.CreateBill(ctx, BillInput{
		Lines: []LineInput{
			{ItemID: iron.ID, WeightEntries: []float64{7.5}, WeightMode: models.ModeL, PricePerKg: 100.0},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if bill.Lines[0].OriginalWeight != 10.0 {
		t.Errorf("OriginalWeight = %v, want 10.0 (7.5 / 0.75)", bill.Lines[0].OriginalWeight)
	}
}

func TestCountLineDefaultsQuantity(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	bottle := mustItem(t, s, "Beer Bottle", models.UnitCount)

	bill, err := s.CreateBill(ctx, BillInput{
		Lines: []LineInput{{ItemID: bottle.ID, PricePerUnit: 15.0}},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if bill.Lines[0].Quantity != 1 || bill.Lines[0].Amount != 15.0 {
		t.Errorf("Defaulted count line = %+v", bill.Lines[0])
	}
}

func TestCreateBillValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	iron := mustItem(t, s, "Iron", models.UnitWeight)

	t.Run("no lines", func(t *testing.T) {
		_, err := s.CreateBill(ctx, BillInput{})
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := s.CreateBill(ctx, BillInput{Lines: []LineInput{{ItemID: 999, PricePerKg: 10}}})
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("negative weight", func(t *testing.T) {
		_, err := s.CreateBill(ctx, BillInput{
			Lines: []LineInput{{ItemID: iron.ID, WeightEntries: []float64{-1}, PricePerKg: 10}},
		})
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}

func TestUpdateBillAndHistory(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	iron := mustItem(t, s, "Iron", models.UnitWeight)
	copper := mustItem(t, s, "Copper", models.UnitWeight)

	bill, err := s.CreateBill(ctx, BillInput{
		Lines: []LineInput{
			{ItemID: iron.ID, WeightEntries: []float64{10.0}, PricePerKg: 50.0},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	updated, err := s.UpdateBill(ctx, bill.ID, BillInput{
		CustomerName: "Ravi",
		Lines: []LineInput{
			{ItemID: iron.ID, WeightEntries: []float64{8.0}, PricePerKg: 50.0},
			{ItemID: copper.ID, WeightEntries: []float64{1.0}, PricePerKg: 700.0},
		},
	})
	if err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}
	if updated.TotalAmount != 1100.0 {
		t.Errorf("TotalAmount = %v, want 1100.0", updated.TotalAmount)
	}
	if updated.IsSynced {
		t.Error("Edited bill must be unsynced")
	}

	entries, err := s.BillHistory(ctx, bill.ID)
	if err != nil {
		t.Fatalf("BillHistory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	joined := strings.Join(entries[0].Changes, "\n")
	if !strings.Contains(joined, "Total: 500.00 -> 1100.00") {
		t.Errorf("History missing total change: %q", joined)
	}
	if !strings.Contains(joined, "Iron weight: 10.000 -> 8.000") {
		t.Errorf("History missing weight change: %q", joined)
	}
	if !strings.Contains(joined, "Added: Copper") {
		t.Errorf("History missing added item: %q", joined)
	}
}

func TestBottleTypeHelper(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	item, err := s.CreateBottleType(ctx, "Kingfisher")
	if err != nil {
		t.Fatalf("CreateBottleType failed: %v", err)
	}
	if item.Name != "Kingfisher Bottle" || item.UnitType != models.UnitCount {
		t.Errorf("Unexpected bottle item: %+v", item)
	}
}

func TestPriceCacheVisibleInListItems(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	iron := mustItem(t, s, "Iron", models.UnitWeight)

	if _, err := s.CreateBill(ctx, BillInput{
		Lines: []LineInput{{ItemID: iron.ID, WeightEntries: []float64{2.0}, PricePerKg: 55.5}},
	}); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].LastPricePerKg != 55.5 {
		t.Errorf("Price cache not visible: %+v", items)
	}
}

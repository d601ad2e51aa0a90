package syncer

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/famscrap/scrapbill/internal/models"
)

func fixtureBill() *models.Bill {
	return &models.Bill{
		ID:           1,
		BillNumber:   "FAM02030001",
		CustomerName: "Walk-in Customer",
		Date:         time.Date(2025, time.March, 2, 11, 0, 0, 0, time.UTC),
		Lines: []models.BillLine{
			{
				ItemID:         1,
				ItemName:       "Iron",
				UnitType:       models.UnitWeight,
				OriginalWeight: 10.0,
				FinalWeight:    10.0,
				WeightMode:     models.ModeNormal,
				PricePerKg:     50.0,
				Amount:         500.0,
			},
			{
				ItemID:         2,
				ItemName:       "Copper",
				UnitType:       models.UnitWeight,
				OriginalWeight: 10.0,
				LWeight:        9.0,
				ReducedWeight:  1.0,
				FinalWeight:    10.0,
				WeightMode:     models.ModeL,
				PricePerKg:     700.0,
				Amount:         6300.0,
			},
			{
				ItemID:       3,
				ItemName:     "Beer Bottle",
				UnitType:     models.UnitCount,
				WeightMode:   models.ModeNormal,
				Quantity:     5,
				PricePerUnit: 20.0,
				Amount:       100.0,
			},
		},
	}
}

func TestBuildPayload(t *testing.T) {
	payload, err := BuildPayload(fixtureBill(), 0.1, "device-1")
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}

	if payload.BillNumber != "FAM02030001" {
		t.Errorf("BillNumber = %q", payload.BillNumber)
	}
	if payload.Date != "2025-03-02T11:00:00Z" {
		t.Errorf("Date = %q, want ISO-8601 UTC", payload.Date)
	}
	if len(payload.Items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(payload.Items))
	}

	normal := payload.Items[0]
	if normal.Amount != 500.0 || normal.FinalWeight != 10.0 || normal.LWeight != 0 {
		t.Errorf("Normal line = %+v", normal)
	}

	lmode := payload.Items[1]
	if lmode.OriginalWeight != 10.0 || lmode.ReducedWeight != 1.0 || lmode.Amount != 6300.0 {
		t.Errorf("L-mode line = %+v", lmode)
	}

	count := payload.Items[2]
	if count.Quantity != 5 || count.Amount != 100.0 {
		t.Errorf("Count line = %+v", count)
	}

	// Recomputed total equals the sum of recomputed line amounts.
	if payload.TotalAmount != 6900.0 {
		t.Errorf("TotalAmount = %v, want 6900.0", payload.TotalAmount)
	}
}

func TestBuildPayloadIgnoresStoredDerivedValues(t *testing.T) {
	bill := fixtureBill()
	// Simulate drift between the stored amount and the formula: the payload
	// must carry the recomputed value, not the cache.
	bill.Lines[0].Amount = 999999.0
	bill.TotalAmount = 123.0

	payload, err := BuildPayload(bill, 0.1, "device-1")
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}
	if payload.Items[0].Amount != 500.0 {
		t.Errorf("Amount = %v, want recomputed 500.0", payload.Items[0].Amount)
	}
	if payload.TotalAmount != 6900.0 {
		t.Errorf("TotalAmount = %v, want recomputed 6900.0", payload.TotalAmount)
	}
}

func TestBuildPayloadIdempotent(t *testing.T) {
	bill := fixtureBill()

	first, err := BuildPayload(bill, 0.1, "device-1")
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}
	second, err := BuildPayload(bill, 0.1, "device-1")
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Payloads differ across builds of an unchanged bill")
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Error("Encoded payloads are not byte-identical")
	}
}

func TestBuildPayloadRejectsBadReduction(t *testing.T) {
	if _, err := BuildPayload(fixtureBill(), 1.0, "device-1"); err == nil {
		t.Error("Expected error for reduction factor 1.0")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Payload)
		problem string
	}{
		{
			name:   "valid payload",
			mutate: func(p *Payload) {},
		},
		{
			name:    "empty bill number",
			mutate:  func(p *Payload) { p.BillNumber = "" },
			problem: "bill number",
		},
		{
			name:    "no items",
			mutate:  func(p *Payload) { p.Items = nil },
			problem: "no line items",
		},
		{
			name:    "missing item name",
			mutate:  func(p *Payload) { p.Items[0].ItemName = "" },
			problem: "item name",
		},
		{
			name:    "negative amount",
			mutate:  func(p *Payload) { p.Items[2].Amount = -5 },
			problem: "invalid",
		},
		{
			name:    "zero amount on weight line",
			mutate:  func(p *Payload) { p.Items[0].Amount = 0 },
			problem: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := BuildPayload(fixtureBill(), 0.1, "device-1")
			if err != nil {
				t.Fatalf("BuildPayload failed: %v", err)
			}
			tt.mutate(payload)

			problems := Validate(payload)
			if tt.problem == "" {
				if len(problems) != 0 {
					t.Errorf("Expected no problems, got %v", problems)
				}
				return
			}
			if len(problems) == 0 {
				t.Fatal("Expected validation problems, got none")
			}
			joined := strings.Join(problems, "; ")
			if !strings.Contains(joined, tt.problem) {
				t.Errorf("Problems %q do not mention %q", joined, tt.problem)
			}
		})
	}
}

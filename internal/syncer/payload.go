package syncer

import (
	"fmt"
	"math"
	"time"

	"github.com/famscrap/scrapbill/internal/models"
	"github.com/famscrap/scrapbill/internal/weight"
)

// Payload is the canonical outbound representation of a bill, recomputed at
// sync time from the stored raw weight and quantity fields. Stored derived
// values (amounts, total) are never trusted; re-running the formulas guards
// against drift between cache and truth.
type Payload struct {
	BillNumber    string        `json:"billNumber"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	TotalAmount   float64       `json:"totalAmount"`
	Date          string        `json:"date"` // ISO-8601
	DeviceID      string        `json:"deviceId,omitempty"`
	Items         []PayloadItem `json:"items"`
}

// PayloadItem is one line of the canonical payload.
type PayloadItem struct {
	ItemName       string  `json:"itemName"`
	UnitType       string  `json:"unitType"`
	Quantity       int     `json:"quantity"`
	WeightMode     string  `json:"weightMode"`
	OriginalWeight float64 `json:"originalWeight"`
	LWeight        float64 `json:"lWeight"`
	ReducedWeight  float64 `json:"reducedWeight"`
	FinalWeight    float64 `json:"finalWeight"`
	PricePerKg     float64 `json:"pricePerKg"`
	PricePerUnit   float64 `json:"pricePerUnit"`
	Amount         float64 `json:"amount"`
}

// BuildPayload reconstructs the canonical payload for a bill by re-running
// the weight model over the stored raw fields. The reduction factor is the
// one configured at build time. Deterministic: building twice from an
// unchanged bill yields identical payloads.
func BuildPayload(bill *models.Bill, reduction float64, deviceID string) (*Payload, error) {
	payload := &Payload{
		BillNumber:    bill.BillNumber,
		CustomerName:  bill.CustomerName,
		CustomerPhone: bill.CustomerPhone,
		Date:          bill.Date.UTC().Format(time.RFC3339),
		DeviceID:      deviceID,
		Items:         make([]PayloadItem, 0, len(bill.Lines)),
	}

	var total float64
	for i := range bill.Lines {
		line := &bill.Lines[i]
		item := PayloadItem{
			ItemName:     line.ItemName,
			UnitType:     string(line.UnitType),
			WeightMode:   string(line.WeightMode),
			PricePerKg:   line.PricePerKg,
			PricePerUnit: line.PricePerUnit,
		}

		if line.UnitType == models.UnitCount {
			amount, err := weight.ComputeCountLine(line.Quantity, line.PricePerUnit)
			if err != nil {
				return nil, fmt.Errorf("bill %s line %d: %w", bill.BillNumber, i, err)
			}
			item.Quantity = line.Quantity
			item.Amount = amount
		} else {
			// The raw entered weight is the displayed weight in L mode and
			// the full weight otherwise.
			entered := line.FinalWeight
			if line.WeightMode == models.ModeL {
				entered = line.LWeight
			}
			derived, err := weight.ComputeWeightLine(entered, line.WeightMode, reduction, line.PricePerKg)
			if err != nil {
				return nil, fmt.Errorf("bill %s line %d: %w", bill.BillNumber, i, err)
			}
			item.OriginalWeight = derived.OriginalWeight
			item.LWeight = derived.LWeight
			item.ReducedWeight = derived.ReducedWeight
			item.FinalWeight = derived.FinalWeight
			item.Amount = derived.Amount
		}

		total += item.Amount
		payload.Items = append(payload.Items, item)
	}
	payload.TotalAmount = weight.Round2(total)

	return payload, nil
}

// Validate checks a payload before transmission. It returns the full list of
// problems, not just the first.
func Validate(payload *Payload) []string {
	var problems []string
	if payload.BillNumber == "" {
		problems = append(problems, "bill number is empty")
	}
	if math.IsNaN(payload.TotalAmount) {
		problems = append(problems, "total amount is not a number")
	}
	if len(payload.Items) == 0 {
		problems = append(problems, "bill has no line items")
	}
	for i := range payload.Items {
		item := &payload.Items[i]
		if item.ItemName == "" {
			problems = append(problems, fmt.Sprintf("line %d: item name is empty", i))
		}
		if math.IsNaN(item.Amount) || item.Amount < 0 {
			problems = append(problems, fmt.Sprintf("line %d: amount %v is invalid", i, item.Amount))
		}
		if item.UnitType == string(models.UnitWeight) && item.Amount <= 0 {
			problems = append(problems, fmt.Sprintf("line %d: weight line amount must be positive", i))
		}
	}
	return problems
}

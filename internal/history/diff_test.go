package history

import (
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		next     string
		want     []string
	}{
		{
			name:     "no changes",
			previous: `{"totalAmount":500,"items":[{"id":1,"name":"Iron","weight":10,"price":50,"amount":500}]}`,
			next:     `{"totalAmount":500,"items":[{"id":1,"name":"Iron","weight":10,"price":50,"amount":500}]}`,
			want:     nil,
		},
		{
			name:     "weight and amount changed",
			previous: `{"totalAmount":500,"items":[{"id":1,"name":"Iron","weight":10,"price":50,"amount":500}]}`,
			next:     `{"totalAmount":450,"items":[{"id":1,"name":"Iron","weight":9,"price":50,"amount":450}]}`,
			want: []string{
				"Total: 500.00 -> 450.00",
				"Iron weight: 10.000 -> 9.000",
				"Iron amount: 500.00 -> 450.00",
			},
		},
		{
			name:     "item added",
			previous: `{"totalAmount":100,"items":[{"id":1,"name":"Iron","weight":2,"price":50,"amount":100}]}`,
			next:     `{"totalAmount":140,"items":[{"id":1,"name":"Iron","weight":2,"price":50,"amount":100},{"id":2,"name":"Copper","weight":0.5,"price":80,"amount":40}]}`,
			want: []string{
				"Total: 100.00 -> 140.00",
				"Added: Copper",
			},
		},
		{
			name:     "item removed",
			previous: `{"totalAmount":140,"items":[{"id":1,"name":"Iron","weight":2,"price":50,"amount":100},{"id":2,"name":"Copper","weight":0.5,"price":80,"amount":40}]}`,
			next:     `{"totalAmount":100,"items":[{"id":1,"name":"Iron","weight":2,"price":50,"amount":100}]}`,
			want: []string{
				"Total: 140.00 -> 100.00",
				"Removed: Copper",
			},
		},
		{
			name:     "quantity change on count line",
			previous: `{"totalAmount":100,"items":[{"id":3,"name":"Beer Bottle","quantity":5,"price":20,"amount":100}]}`,
			next:     `{"totalAmount":120,"items":[{"id":3,"name":"Beer Bottle","quantity":6,"price":20,"amount":120}]}`,
			want: []string{
				"Total: 100.00 -> 120.00",
				"Beer Bottle quantity: 5 -> 6",
				"Beer Bottle amount: 100.00 -> 120.00",
			},
		},
		{
			name:     "legacy snapshots match by name",
			previous: `{"totalAmount":100,"items":[{"name":"Iron","weight":2,"price":50,"amount":100}]}`,
			next:     `{"totalAmount":150,"items":[{"name":"Iron","weight":3,"price":50,"amount":150}]}`,
			want: []string{
				"Total: 100.00 -> 150.00",
				"Iron weight: 2.000 -> 3.000",
				"Iron amount: 100.00 -> 150.00",
			},
		},
		{
			name:     "deltas within tolerance are noise",
			previous: `{"totalAmount":100.004,"items":[{"id":1,"name":"Iron","weight":2.0004,"price":50,"amount":100.004}]}`,
			next:     `{"totalAmount":100.0,"items":[{"id":1,"name":"Iron","weight":2.0,"price":50,"amount":100.0}]}`,
			want:     nil,
		},
		{
			name:     "rename under same id reports field changes not add/remove",
			previous: `{"totalAmount":100,"items":[{"id":1,"name":"Iron","weight":2,"price":50,"amount":100}]}`,
			next:     `{"totalAmount":100,"items":[{"id":1,"name":"Iron Scrap","weight":2,"price":50,"amount":100}]}`,
			want:     nil,
		},
		{
			name:     "missing fields default to zero",
			previous: `{"items":[{"name":"Iron"}]}`,
			next:     `{"totalAmount":50,"items":[{"name":"Iron","weight":1,"price":50,"amount":50}]}`,
			want: []string{
				"Total: 0.00 -> 50.00",
				"Iron weight: 0.000 -> 1.000",
				"Iron price: 0.00 -> 50.00",
				"Iron amount: 0.00 -> 50.00",
			},
		},
		{
			name:     "numbers stored as strings are coerced",
			previous: `{"totalAmount":"100","items":[{"name":"Iron","weight":"2","price":"50","amount":"100"}]}`,
			next:     `{"totalAmount":200,"items":[{"name":"Iron","weight":4,"price":50,"amount":200}]}`,
			want: []string{
				"Total: 100.00 -> 200.00",
				"Iron weight: 2.000 -> 4.000",
				"Iron amount: 100.00 -> 200.00",
			},
		},
		{
			name:     "empty snapshots",
			previous: ``,
			next:     ``,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Diff([]byte(tt.previous), []byte(tt.next))
			if err != nil {
				t.Fatalf("Diff failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Diff returned %d changes, want %d:\n got: %v\nwant: %v", len(got), len(tt.want), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("change[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDiffOrdering(t *testing.T) {
	previous := `{"totalAmount":100,"items":[
		{"id":1,"name":"Iron","weight":2,"price":50,"amount":100},
		{"id":2,"name":"Copper","weight":1,"price":80,"amount":80}]}`
	next := `{"totalAmount":260,"items":[
		{"id":1,"name":"Iron","weight":3,"price":50,"amount":150},
		{"id":3,"name":"Brass","weight":0.5,"price":220,"amount":110}]}`

	got, err := Diff([]byte(previous), []byte(next))
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(got) == 0 || !strings.HasPrefix(got[0], "Total:") {
		t.Fatalf("Total change must come first, got %v", got)
	}
	if got[len(got)-1] != "Removed: Copper" {
		t.Errorf("Removals must come last, got %v", got)
	}
}

func TestDiffMalformedJSON(t *testing.T) {
	if _, err := Diff([]byte(`{not json`), []byte(`{}`)); err == nil {
		t.Error("Expected error for malformed previous snapshot")
	}
	if _, err := Diff([]byte(`{}`), []byte(`{"items":"not-a-list"}`)); err != nil {
		t.Errorf("Wrong-typed items should degrade, not fail: %v", err)
	}
}

package numbering

import (
	"errors"
	"testing"
	"time"

	"github.com/famscrap/scrapbill/internal/models"
)

func TestPrefixFor(t *testing.T) {
	tests := []struct {
		tag  string
		date time.Time
		want string
	}{
		{"FAM", time.Date(2025, time.March, 2, 10, 0, 0, 0, time.UTC), "FAM0203"},
		{"FAM", time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), "FAM3112"},
		{"SCR", time.Date(2025, time.January, 1, 23, 59, 0, 0, time.UTC), "SCR0101"},
	}
	for _, tt := range tests {
		if got := PrefixFor(tt.tag, tt.date); got != tt.want {
			t.Errorf("PrefixFor(%q, %v) = %q, want %q", tt.tag, tt.date, got, tt.want)
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		lastNumber string
		want       string
		wantErr    error
	}{
		{name: "first bill of the day", prefix: "FAM0203", lastNumber: "", want: "FAM02030001"},
		{name: "second bill of the day", prefix: "FAM0203", lastNumber: "FAM02030001", want: "FAM02030002"},
		{name: "sequence carries width", prefix: "FAM0203", lastNumber: "FAM02030099", want: "FAM02030100"},
		{name: "four digit rollover", prefix: "FAM0203", lastNumber: "FAM02039999", want: "FAM020310000"},
		{name: "garbage sequence rejected", prefix: "FAM0203", lastNumber: "FAM0203abcd", wantErr: models.ErrValidation},
		{name: "too short rejected", prefix: "FAM0203", lastNumber: "X1", wantErr: models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.prefix, tt.lastNumber)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Next() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Next() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Next(%q, %q) = %q, want %q", tt.prefix, tt.lastNumber, got, tt.want)
			}
		})
	}
}

// Package numbering generates the date-scoped bill number sequence.
//
// Bill numbers have the shape <TAG><DD><MM><NNNN>: a fixed tag, zero-padded
// day and month, and a 4-digit sequence that resets daily. Numbers are unique
// per day-prefix only under single-writer conditions; the store serializes
// the read-max-then-insert sequence inside its save transaction.
package numbering

import (
	"fmt"
	"strconv"
	"time"

	"github.com/famscrap/scrapbill/internal/models"
)

// SequenceDigits is the width of the zero-padded daily sequence.
const SequenceDigits = 4

// PrefixFor returns the day-scoped prefix for the given tag and date,
// e.g. ("FAM", March 2nd) -> "FAM0203".
func PrefixFor(tag string, date time.Time) string {
	return fmt.Sprintf("%s%02d%02d", tag, date.Day(), int(date.Month()))
}

// Next returns the bill number following lastNumber within the given prefix.
// lastNumber is the highest existing number for the prefix, or empty if no
// bill exists for the day, in which case the sequence starts at 1.
func Next(prefix, lastNumber string) (string, error) {
	seq := 0
	if lastNumber != "" {
		if len(lastNumber) < SequenceDigits {
			return "", fmt.Errorf("%w: bill number %q too short", models.ErrValidation, lastNumber)
		}
		n, err := strconv.Atoi(lastNumber[len(lastNumber)-SequenceDigits:])
		if err != nil {
			return "", fmt.Errorf("%w: bill number %q has a non-numeric sequence", models.ErrValidation, lastNumber)
		}
		seq = n
	}
	return fmt.Sprintf("%s%0*d", prefix, SequenceDigits, seq+1), nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// InwardPrefix starts every inward number.
const InwardPrefix = "RDC"

// FormatInwardNumber renders n as RDC followed by a four-digit zero-padded integer.
func FormatInwardNumber(n int) string {
	return fmt.Sprintf("%s%04d", InwardPrefix, n)
}

// NextInwardNumberAfter returns the number following last. An empty or
// unparseable value restarts the sequence at RDC0001.
func NextInwardNumberAfter(last string) string {
	n, err := strconv.Atoi(strings.TrimPrefix(last, InwardPrefix))
	if err != nil || n < 0 {
		return FormatInwardNumber(1)
	}
	return FormatInwardNumber(n + 1)
}

// InwardLookup is the part of Reader numbering depends on.
type InwardLookup interface {
	LatestInward(ctx context.Context) (*ServiceInward, error)
}

// NextInwardNumber reads the most recently inserted inward (highest id, never
// by date) and returns the number after it. The result is not reserved:
// concurrent callers may compute the same value and the store's unique
// constraint decides the winner.
func NextInwardNumber(ctx context.Context, q InwardLookup) (string, error) {
	latest, err := q.LatestInward(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return FormatInwardNumber(1), nil
		}
		return "", fmt.Errorf("failed to read latest inward: %w", err)
	}
	return NextInwardNumberAfter(latest.InwardNumber), nil
}

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCreatedBy is stamped on ledger entries that name no author.
const DefaultCreatedBy = "System"

// LedgerWriter is the part of Tx the recorder appends through.
type LedgerWriter interface {
	InsertLedgerEntry(ctx context.Context, entry *LedgerEntry) error
}

// LedgerRecord is the input to LedgerRecorder.Record.
type LedgerRecord struct {
	ServiceItemID   int
	TransactionType TransactionType
	Description     string
	Amount          decimal.Decimal
	Notes           string
	CreatedBy       string
}

// LedgerRecorder appends entries to a service item's ledger. It never reads
// or rewrites earlier entries.
type LedgerRecorder struct {
	clock Clock
}

func NewLedgerRecorder(clock Clock) *LedgerRecorder {
	if clock == nil {
		clock = SystemClock
	}
	return &LedgerRecorder{clock: clock}
}

// Record validates rec against the ledger's field constraints and persists it
// through w. The entry date is the recorder's current time.
func (r *LedgerRecorder) Record(ctx context.Context, w LedgerWriter, rec LedgerRecord) (*LedgerEntry, error) {
	if !rec.TransactionType.Valid() {
		return nil, &InvalidStatusError{Field: "transaction_type", Value: string(rec.TransactionType)}
	}
	if err := CheckAmount("amount", rec.Amount); err != nil {
		return nil, err
	}
	createdBy := strings.TrimSpace(rec.CreatedBy)
	if createdBy == "" {
		createdBy = DefaultCreatedBy
	}

	entry := &LedgerEntry{
		ServiceItemID:   rec.ServiceItemID,
		TransactionType: rec.TransactionType,
		Description:     rec.Description,
		Amount:          rec.Amount,
		Date:            r.clock.Now(),
		Notes:           rec.Notes,
		CreatedBy:       createdBy,
	}
	if err := w.InsertLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return entry, nil
}

package core_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"repair-desk/internal/core"
	"repair-desk/internal/memstore"
)

// stepClock returns a strictly increasing time, one second per call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T) (core.WorkflowEngine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return core.NewWorkflowEngine(store, newStepClock(), quietLogger()), store
}

func sampleIntake(name, phone string) core.IntakeInput {
	return core.IntakeInput{
		Customer: core.CustomerInput{
			Name:    name,
			Phone:   phone,
			Email:   "",
			Address: "12 Market Road",
		},
		Device: core.DeviceInput{
			DeviceType:         "laptop",
			Brand:              "Dell",
			Model:              "Latitude 5520",
			SerialNumber:       "DL123456789",
			ProblemDescription: "Screen flickering",
			EstimatedCost:      "150.00",
		},
		Inward: core.InwardInput{
			ReceivedBy:            "Bob",
			ConditionOnReceipt:    "Minor scratches",
			EstimatedDeliveryDate: "2024-03-20",
		},
	}
}

func mustIntake(t *testing.T, engine core.WorkflowEngine, in core.IntakeInput) *core.Intake {
	t.Helper()
	intake, err := engine.CreateIntake(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateIntake: %v", err)
	}
	return intake
}

func ledgerOf(t *testing.T, r core.Reader, itemID int) []core.LedgerEntry {
	t.Helper()
	entries, err := r.ListLedgerEntries(context.Background(), itemID)
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	return entries
}

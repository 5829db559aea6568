package db_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"repair-desk/internal/core"
	"repair-desk/internal/db"
	"repair-desk/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database; every table is truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := migrations.Apply(ctx, pool, logger); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	_, err = pool.Exec(ctx, `TRUNCATE service_expenses, service_ledger, service_inwards,
		service_items, customers, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
	return pool
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newEngine(pool *pgxpool.Pool) (core.WorkflowEngine, core.ReportingService, *db.Store) {
	store := db.NewStore(pool)
	clock := &fixedClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return core.NewWorkflowEngine(store, clock, logger), core.NewReportingService(store, clock), store
}

func intakeFor(name, phone, brand string) core.IntakeInput {
	return core.IntakeInput{
		Customer: core.CustomerInput{Name: name, Phone: phone, Address: "12 Market Road"},
		Device: core.DeviceInput{
			DeviceType:         "laptop",
			Brand:              brand,
			Model:              "Latitude 5520",
			SerialNumber:       "DL123456789",
			ProblemDescription: "Screen flickering",
			EstimatedCost:      "150.00",
		},
		Inward: core.InwardInput{ReceivedBy: "Bob", EstimatedDeliveryDate: "2024-03-20"},
	}
}

func TestStore_IntakeWorkflow(t *testing.T) {
	pool := setupTestDB(t)
	engine, reporting, store := newEngine(pool)
	ctx := context.Background()

	first, err := engine.CreateIntake(ctx, intakeFor("John Doe", "555-0100", "Dell"))
	if err != nil {
		t.Fatalf("CreateIntake: %v", err)
	}
	if first.Inward.InwardNumber != "RDC0001" || !first.CustomerCreated {
		t.Fatalf("first intake = %s created=%v", first.Inward.InwardNumber, first.CustomerCreated)
	}

	again := intakeFor("John Doe", "555-0100", "HP")
	again.ReuseCustomerByPhone = true
	second, err := engine.CreateIntake(ctx, again)
	if err != nil {
		t.Fatalf("CreateIntake: %v", err)
	}
	if second.Inward.InwardNumber != "RDC0002" {
		t.Errorf("second inward = %s, want RDC0002", second.Inward.InwardNumber)
	}
	if second.CustomerCreated || second.Customer.ID != first.Customer.ID {
		t.Errorf("phone match did not reuse customer %d", first.Customer.ID)
	}

	id := first.Item.ID
	if _, err := engine.TransitionStatus(ctx, id, core.StatusCompleted); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if _, err := engine.UpdateActualCost(ctx, id, decimal.RequireFromString("120.50")); err != nil {
		t.Fatalf("UpdateActualCost: %v", err)
	}
	_, err = engine.AddExpense(ctx, id, core.ExpenseInput{
		ExpenseType: "parts", Description: "LCD cable", Amount: "35.00", Date: "2024-03-11",
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	item, err := store.GetServiceItem(ctx, id)
	if err != nil {
		t.Fatalf("GetServiceItem: %v", err)
	}
	if item.Status != core.StatusCompleted || item.CompletedDate == nil {
		t.Errorf("item status = %s completed=%v", item.Status, item.CompletedDate)
	}
	if !item.ActualCost.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("actual cost = %s", item.ActualCost)
	}
	if item.CustomerName != "John Doe" {
		t.Errorf("customer name not joined: %q", item.CustomerName)
	}

	entries, err := store.ListLedgerEntries(ctx, id)
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	want := []core.TransactionType{core.TxInward, core.TxProgress, core.TxCompletion}
	if len(entries) != len(want) {
		t.Fatalf("ledger has %d entries, want %d", len(entries), len(want))
	}
	for i, tt := range want {
		if entries[i].TransactionType != tt {
			t.Errorf("entry %d type = %s, want %s", i, entries[i].TransactionType, tt)
		}
	}
	if !entries[2].Amount.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("completion amount = %s", entries[2].Amount)
	}

	report, err := reporting.ServiceReport(ctx, id)
	if err != nil {
		t.Fatalf("ServiceReport: %v", err)
	}
	if !report.ExpenseTotal.Equal(decimal.RequireFromString("35.00")) {
		t.Errorf("expense total = %s", report.ExpenseTotal)
	}

	dash, err := reporting.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dash.TotalCustomers != 1 || dash.TotalServices != 2 {
		t.Errorf("dashboard totals = %d customers, %d services", dash.TotalCustomers, dash.TotalServices)
	}
	if !dash.TotalRevenue.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("revenue = %s", dash.TotalRevenue)
	}
}

func TestStore_ListServicesSearch(t *testing.T) {
	pool := setupTestDB(t)
	engine, reporting, _ := newEngine(pool)
	ctx := context.Background()

	for _, in := range []core.IntakeInput{
		intakeFor("Ann Lee", "555-0001", "Dell"),
		intakeFor("Raj Kumar", "555-0002", "Canon"),
		intakeFor("Sara_Ali", "555-0003", "HP"),
	} {
		if _, err := engine.CreateIntake(ctx, in); err != nil {
			t.Fatalf("CreateIntake: %v", err)
		}
	}

	page, err := reporting.ListServices(ctx, core.ServiceFilter{Search: "canon", Page: core.PageNumber(1, 20)})
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if page.Pagination.Total != 1 || page.Services[0].Brand != "Canon" {
		t.Errorf("search canon = %+v", page.Pagination)
	}

	// "_" must match literally, not as a LIKE wildcard.
	page, err = reporting.ListServices(ctx, core.ServiceFilter{Search: "a_a", Page: core.PageNumber(1, 20)})
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if page.Pagination.Total != 1 {
		t.Errorf("search a_a total = %d, want 1", page.Pagination.Total)
	}
}

func TestStore_Errors(t *testing.T) {
	pool := setupTestDB(t)
	_, _, store := newEngine(pool)
	ctx := context.Background()

	if _, err := store.GetServiceItem(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing item err = %v, want ErrNotFound", err)
	}

	create := func() error {
		return store.WithTx(ctx, func(tx core.Tx) error {
			return tx.CreateUser(ctx, &core.User{Username: "admin", PasswordHash: "x", CreatedAt: time.Now()})
		})
	}
	if err := create(); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	var conflict *core.UniquenessConflictError
	if err := create(); !errors.As(err, &conflict) {
		t.Fatalf("duplicate user err = %v, want UniquenessConflictError", err)
	}
	if conflict.Value != "admin" {
		t.Errorf("conflict value = %q", conflict.Value)
	}
}

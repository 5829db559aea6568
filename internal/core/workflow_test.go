package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"repair-desk/internal/core"
	"repair-desk/internal/memstore"

	"github.com/shopspring/decimal"
)

// ── Intake ───────────────────────────────────────────────────────────────────

func TestCreateIntake_FirstIntake(t *testing.T) {
	engine, store := newEngine(t)

	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	if intake.Item.Status != core.StatusPending {
		t.Errorf("status = %s, want pending", intake.Item.Status)
	}
	if !intake.Item.ActualCost.Equal(decimal.Zero) {
		t.Errorf("actual cost = %s, want 0", intake.Item.ActualCost)
	}
	if intake.Item.PaymentStatus != core.PaymentPending {
		t.Errorf("payment status = %s, want pending", intake.Item.PaymentStatus)
	}
	if intake.Inward.InwardNumber != "RDC0001" {
		t.Errorf("inward number = %s, want RDC0001", intake.Inward.InwardNumber)
	}
	if !intake.CustomerCreated {
		t.Error("expected a new customer")
	}

	entries := ledgerOf(t, store, intake.Item.ID)
	if len(entries) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.TransactionType != core.TxInward {
		t.Errorf("type = %s, want inward", e.TransactionType)
	}
	if !e.Amount.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("amount = %s, want 150.00", e.Amount)
	}
	if e.Notes != "Inward number: RDC0001" {
		t.Errorf("notes = %q", e.Notes)
	}
	if e.Description != "Service inward created - laptop" {
		t.Errorf("description = %q", e.Description)
	}
	if e.CreatedBy != "System" {
		t.Errorf("created_by = %q, want System", e.CreatedBy)
	}
}

func TestCreateIntake_ForcesActualCostToZero(t *testing.T) {
	engine, store := newEngine(t)

	in := sampleIntake("A", "555")
	in.Device.ActualCost = "999.99"
	intake := mustIntake(t, engine, in)

	stored, err := store.GetServiceItem(context.Background(), intake.Item.ID)
	if err != nil {
		t.Fatalf("GetServiceItem: %v", err)
	}
	if !stored.ActualCost.IsZero() {
		t.Errorf("stored actual cost = %s, want 0", stored.ActualCost)
	}
}

func TestCreateIntake_SequentialNumbers(t *testing.T) {
	engine, _ := newEngine(t)
	for i, want := range []string{"RDC0001", "RDC0002", "RDC0003"} {
		intake := mustIntake(t, engine, sampleIntake("A", "555"))
		if intake.Inward.InwardNumber != want {
			t.Errorf("intake %d: got %s, want %s", i, intake.Inward.InwardNumber, want)
		}
	}
}

func TestCreateIntake_ValidationErrors(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(in *core.IntakeInput)
		wantSections []string
		wantField    string
	}{
		{
			name:         "missing customer name",
			mutate:       func(in *core.IntakeInput) { in.Customer.Name = "  " },
			wantSections: []string{core.SectionCustomer},
			wantField:    "customer.name",
		},
		{
			name:         "phone too long",
			mutate:       func(in *core.IntakeInput) { in.Customer.Phone = "1234567890123456" },
			wantSections: []string{core.SectionCustomer},
			wantField:    "customer.phone",
		},
		{
			name:         "bad email",
			mutate:       func(in *core.IntakeInput) { in.Customer.Email = "not-an-email" },
			wantSections: []string{core.SectionCustomer},
			wantField:    "customer.email",
		},
		{
			name:         "non-numeric cost",
			mutate:       func(in *core.IntakeInput) { in.Device.EstimatedCost = "abc" },
			wantSections: []string{core.SectionService},
			wantField:    "service.estimated_cost",
		},
		{
			name:         "negative cost",
			mutate:       func(in *core.IntakeInput) { in.Device.EstimatedCost = "-5" },
			wantSections: []string{core.SectionService},
			wantField:    "service.estimated_cost",
		},
		{
			name:         "unknown device type",
			mutate:       func(in *core.IntakeInput) { in.Device.DeviceType = "phone" },
			wantSections: []string{core.SectionService},
			wantField:    "service.device_type",
		},
		{
			name:         "invalid delivery date",
			mutate:       func(in *core.IntakeInput) { in.Inward.EstimatedDeliveryDate = "20/03/2024" },
			wantSections: []string{core.SectionInward},
			wantField:    "inward.estimated_delivery_date",
		},
		{
			name: "several sections",
			mutate: func(in *core.IntakeInput) {
				in.Customer.Phone = ""
				in.Inward.ReceivedBy = ""
			},
			wantSections: []string{core.SectionCustomer, core.SectionInward},
			wantField:    "inward.received_by",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store := newEngine(t)
			in := sampleIntake("A", "555")
			tt.mutate(&in)

			_, err := engine.CreateIntake(context.Background(), in)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			sections := verr.Sections()
			if len(sections) != len(tt.wantSections) {
				t.Fatalf("sections = %v, want %v", sections, tt.wantSections)
			}
			for i := range sections {
				if sections[i] != tt.wantSections[i] {
					t.Errorf("sections = %v, want %v", sections, tt.wantSections)
				}
			}
			if _, ok := verr.ByField()[tt.wantField]; !ok {
				t.Errorf("no error for %s in %v", tt.wantField, verr.ByField())
			}

			_, total, _ := store.ListCustomers(context.Background(), core.CustomerFilter{})
			if total != 0 {
				t.Errorf("customers persisted after rejected intake: %d", total)
			}
		})
	}
}

func TestValidationError_Summary(t *testing.T) {
	verr := &core.ValidationError{}
	verr.Add(core.SectionCustomer, "name", "This field is required.")
	if got := verr.Summary(); got != "Please correct the customer information errors." {
		t.Errorf("Summary() = %q", got)
	}
}

func TestCreateIntake_ExistingCustomerSkipsCustomerValidation(t *testing.T) {
	engine, _ := newEngine(t)
	first := mustIntake(t, engine, sampleIntake("A", "555"))

	in := sampleIntake("", "")
	in.CustomerID = first.Customer.ID
	second := mustIntake(t, engine, in)

	if second.CustomerCreated {
		t.Error("expected existing customer to be reused")
	}
	if second.Item.CustomerID != first.Customer.ID {
		t.Errorf("customer id = %d, want %d", second.Item.CustomerID, first.Customer.ID)
	}
}

func TestCreateIntake_UnknownCustomerID(t *testing.T) {
	engine, _ := newEngine(t)
	in := sampleIntake("A", "555")
	in.CustomerID = 42

	_, err := engine.CreateIntake(context.Background(), in)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateIntake_FormModeAlwaysCreatesCustomer(t *testing.T) {
	engine, store := newEngine(t)
	mustIntake(t, engine, sampleIntake("A", "555"))
	mustIntake(t, engine, sampleIntake("A", "555"))

	_, total, err := store.ListCustomers(context.Background(), core.CustomerFilter{})
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if total != 2 {
		t.Errorf("customers = %d, want 2", total)
	}
}

func TestCreateIntake_ReuseCustomerByPhone(t *testing.T) {
	engine, store := newEngine(t)

	in := sampleIntake("A", "555")
	in.ReuseCustomerByPhone = true
	first := mustIntake(t, engine, in)

	in = sampleIntake("Someone Else", " 555 ")
	in.ReuseCustomerByPhone = true
	second := mustIntake(t, engine, in)

	if second.CustomerCreated {
		t.Error("expected phone match to reuse the customer")
	}
	if second.Customer.ID != first.Customer.ID || second.Customer.Name != "A" {
		t.Errorf("got customer %+v, want id %d named A", second.Customer, first.Customer.ID)
	}
	_, total, _ := store.ListCustomers(context.Background(), core.CustomerFilter{})
	if total != 1 {
		t.Errorf("customers = %d, want 1", total)
	}
}

// conflictStore makes the first n CreateInward calls fail with a uniqueness
// conflict, as a concurrent intake taking the same number would.
type conflictStore struct {
	core.Store
	n     int
	calls int
}

func (s *conflictStore) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx core.Tx) error {
		return fn(&conflictTx{Tx: tx, s: s})
	})
}

type conflictTx struct {
	core.Tx
	s *conflictStore
}

func (t *conflictTx) CreateInward(ctx context.Context, in *core.ServiceInward) error {
	t.s.calls++
	if t.s.calls <= t.s.n {
		return &core.UniquenessConflictError{Constraint: "service_inwards_inward_number_key", Value: in.InwardNumber}
	}
	return t.Tx.CreateInward(ctx, in)
}

func TestCreateIntake_RetriesAfterConflict(t *testing.T) {
	mem := memstore.New()
	store := &conflictStore{Store: mem, n: 1}
	engine := core.NewWorkflowEngine(store, newStepClock(), quietLogger())

	intake, err := engine.CreateIntake(context.Background(), sampleIntake("A", "555"))
	if err != nil {
		t.Fatalf("CreateIntake: %v", err)
	}
	if store.calls != 2 {
		t.Errorf("CreateInward calls = %d, want 2", store.calls)
	}
	if intake.Inward.InwardNumber != "RDC0001" {
		t.Errorf("inward number = %s", intake.Inward.InwardNumber)
	}
	_, total, _ := mem.ListCustomers(context.Background(), core.CustomerFilter{})
	if total != 1 {
		t.Errorf("customers = %d, want 1 (failed attempt must roll back)", total)
	}
}

func TestCreateIntake_PersistentConflictIsRetryable(t *testing.T) {
	mem := memstore.New()
	store := &conflictStore{Store: mem, n: 100}
	engine := core.NewWorkflowEngine(store, newStepClock(), quietLogger())

	_, err := engine.CreateIntake(context.Background(), sampleIntake("A", "555"))
	var conflict *core.UniquenessConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *UniquenessConflictError, got %v", err)
	}
	if !conflict.Retryable() {
		t.Error("conflict should be retryable")
	}
	if store.calls != 3 {
		t.Errorf("attempts = %d, want 3", store.calls)
	}
	items, _, _ := mem.ListServiceItems(context.Background(), core.ServiceFilter{})
	if len(items) != 0 {
		t.Errorf("service items persisted: %d", len(items))
	}
}

// ── Status ───────────────────────────────────────────────────────────────────

func TestTransitionStatus_CompletedTwiceKeepsStamp(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	first, err := engine.TransitionStatus(ctx, intake.Item.ID, core.StatusCompleted)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if first.CompletedDate == nil {
		t.Fatal("completed date not stamped")
	}
	stamp := *first.CompletedDate

	second, err := engine.TransitionStatus(ctx, intake.Item.ID, core.StatusCompleted)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if second.CompletedDate == nil || !second.CompletedDate.Equal(stamp) {
		t.Errorf("completed date changed: %v -> %v", stamp, second.CompletedDate)
	}

	progress := 0
	for _, e := range ledgerOf(t, store, intake.Item.ID) {
		if e.TransactionType == core.TxProgress {
			progress++
			if !e.Amount.IsZero() {
				t.Errorf("progress amount = %s, want 0", e.Amount)
			}
		}
	}
	if progress != 2 {
		t.Errorf("progress rows = %d, want 2", progress)
	}
}

func TestTransitionStatus_StampsSurviveBackwardMoves(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))
	id := intake.Item.ID

	delivered, err := engine.TransitionStatus(ctx, id, core.StatusDelivered)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if delivered.DeliveredDate == nil {
		t.Fatal("delivered date not stamped")
	}
	if delivered.CompletedDate != nil {
		t.Error("completed date stamped without entering completed")
	}
	stamp := *delivered.DeliveredDate

	for _, s := range []core.ServiceStatus{core.StatusPending, core.StatusCancelled, core.StatusDelivered} {
		if _, err := engine.TransitionStatus(ctx, id, s); err != nil {
			t.Fatalf("TransitionStatus(%s): %v", s, err)
		}
	}

	item, err := store.GetServiceItem(ctx, id)
	if err != nil {
		t.Fatalf("GetServiceItem: %v", err)
	}
	if item.DeliveredDate == nil || !item.DeliveredDate.Equal(stamp) {
		t.Errorf("delivered date changed: %v -> %v", stamp, item.DeliveredDate)
	}

	entries := ledgerOf(t, store, id)
	last := entries[len(entries)-1]
	if last.Description != "Status changed from cancelled to delivered" {
		t.Errorf("description = %q", last.Description)
	}
	if last.Notes != "Status update: cancelled → delivered" {
		t.Errorf("notes = %q", last.Notes)
	}
}

func TestTransitionStatus_RejectsUnknownStatus(t *testing.T) {
	engine, store := newEngine(t)
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	_, err := engine.TransitionStatus(context.Background(), intake.Item.ID, core.ServiceStatus("shipped"))
	var statusErr *core.InvalidStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *InvalidStatusError, got %v", err)
	}
	if n := len(ledgerOf(t, store, intake.Item.ID)); n != 1 {
		t.Errorf("ledger rows = %d, want 1", n)
	}
}

func TestTransitionStatus_MissingItem(t *testing.T) {
	engine, _ := newEngine(t)
	_, err := engine.TransitionStatus(context.Background(), 99, core.StatusCompleted)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ── Cost and payment ─────────────────────────────────────────────────────────

func TestUpdateActualCost_LogsEveryCall(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))
	cost := decimal.RequireFromString("120.00")

	for i := 0; i < 2; i++ {
		item, err := engine.UpdateActualCost(ctx, intake.Item.ID, cost)
		if err != nil {
			t.Fatalf("UpdateActualCost: %v", err)
		}
		if !item.ActualCost.Equal(cost) {
			t.Errorf("actual cost = %s", item.ActualCost)
		}
	}

	entries := ledgerOf(t, store, intake.Item.ID)
	if len(entries) != 3 {
		t.Fatalf("ledger rows = %d, want 3", len(entries))
	}
	last := entries[2]
	if last.TransactionType != core.TxCompletion || !last.Amount.Equal(cost) {
		t.Errorf("last entry = %+v", last)
	}
	if last.Description != "Actual cost updated to ₹120.00" {
		t.Errorf("description = %q", last.Description)
	}
	if last.Notes != "Cost update: Estimated ₹150.00 → Actual ₹120.00" {
		t.Errorf("notes = %q", last.Notes)
	}
}

func TestUpdateActualCost_RejectsBadAmounts(t *testing.T) {
	engine, store := newEngine(t)
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	for _, s := range []string{"-1", "0.001", "100000000"} {
		_, err := engine.UpdateActualCost(context.Background(), intake.Item.ID, decimal.RequireFromString(s))
		var amountErr *core.InvalidAmountError
		if !errors.As(err, &amountErr) {
			t.Errorf("%s: expected *InvalidAmountError, got %v", s, err)
		}
	}
	if n := len(ledgerOf(t, store, intake.Item.ID)); n != 1 {
		t.Errorf("ledger rows = %d, want 1", n)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"  ", "0", false},
		{"120", "120", false},
		{"120.50", "120.5", false},
		{"abc", "", true},
		{"-3", "", true},
		{"1.234", "", true},
	}
	for _, tt := range tests {
		got, err := core.ParseAmount("actual_cost", tt.in)
		if tt.wantErr {
			var amountErr *core.InvalidAmountError
			if !errors.As(err, &amountErr) {
				t.Errorf("ParseAmount(%q): expected *InvalidAmountError, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestUpdatePaymentStatus_AmountFollowsActualCost(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))
	id := intake.Item.ID

	if _, err := engine.UpdateActualCost(ctx, id, decimal.RequireFromString("120.00")); err != nil {
		t.Fatalf("UpdateActualCost: %v", err)
	}
	if _, err := engine.UpdatePaymentStatus(ctx, id, core.PaymentReceived); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	if _, err := engine.UpdatePaymentStatus(ctx, id, core.PaymentPending); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}

	entries := ledgerOf(t, store, id)
	received, pending := entries[len(entries)-2], entries[len(entries)-1]
	if received.TransactionType != core.TxPayment || !received.Amount.Equal(decimal.RequireFromString("120.00")) {
		t.Errorf("received entry = %+v", received)
	}
	if received.Notes != "Payment status: pending → received" {
		t.Errorf("notes = %q", received.Notes)
	}
	if pending.TransactionType != core.TxPayment || !pending.Amount.IsZero() {
		t.Errorf("pending entry = %+v", pending)
	}
}

func TestUpdatePaymentStatus_RejectsUnknown(t *testing.T) {
	engine, _ := newEngine(t)
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	_, err := engine.UpdatePaymentStatus(context.Background(), intake.Item.ID, core.PaymentStatus("refunded"))
	var statusErr *core.InvalidStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *InvalidStatusError, got %v", err)
	}
}

// ── Ledger invariants ────────────────────────────────────────────────────────

func TestLedgerGrowsByOneRowPerOperation(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))
	id := intake.Item.ID

	ops := []func() error{
		func() error { _, err := engine.TransitionStatus(ctx, id, core.StatusInProgress); return err },
		func() error {
			_, err := engine.UpdateActualCost(ctx, id, decimal.RequireFromString("80"))
			return err
		},
		func() error { _, err := engine.TransitionStatus(ctx, id, core.StatusCompleted); return err },
		func() error { _, err := engine.UpdatePaymentStatus(ctx, id, core.PaymentPartial); return err },
		func() error { _, err := engine.UpdatePaymentStatus(ctx, id, core.PaymentReceived); return err },
		func() error { _, err := engine.TransitionStatus(ctx, id, core.StatusDelivered); return err },
	}

	previous := ledgerOf(t, store, id)
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		current := ledgerOf(t, store, id)
		if len(current) != len(previous)+1 {
			t.Fatalf("op %d: ledger rows = %d, want %d", i, len(current), len(previous)+1)
		}
		for j := range previous {
			if current[j] != previous[j] {
				t.Fatalf("op %d: entry %d mutated", i, j)
			}
		}
		previous = current
	}
	if len(previous) != 1+len(ops) {
		t.Errorf("final ledger rows = %d, want %d", len(previous), 1+len(ops))
	}
}

// failingLedgerStore simulates the store dropping mid-transaction.
type failingLedgerStore struct {
	core.Store
}

func (s *failingLedgerStore) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx core.Tx) error {
		return fn(failingLedgerTx{Tx: tx})
	})
}

type failingLedgerTx struct {
	core.Tx
}

func (failingLedgerTx) InsertLedgerEntry(context.Context, *core.LedgerEntry) error {
	return &core.StoreUnavailableError{Err: errors.New("connection reset")}
}

func TestFailedLedgerAppendRollsBackMutation(t *testing.T) {
	mem := memstore.New()
	engine := core.NewWorkflowEngine(mem, newStepClock(), quietLogger())
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	broken := core.NewWorkflowEngine(&failingLedgerStore{Store: mem}, newStepClock(), quietLogger())
	_, err := broken.TransitionStatus(context.Background(), intake.Item.ID, core.StatusCompleted)
	var unavailable *core.StoreUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *StoreUnavailableError, got %v", err)
	}

	item, err := mem.GetServiceItem(context.Background(), intake.Item.ID)
	if err != nil {
		t.Fatalf("GetServiceItem: %v", err)
	}
	if item.Status != core.StatusPending || item.CompletedDate != nil {
		t.Errorf("item changed despite failed ledger append: %+v", item)
	}
}

// ── Expenses, manual entries, details ────────────────────────────────────────

func TestAddExpense_AmountBounds(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	for _, amount := range []core.AmountText{"0", "0.00", "-5", "abc"} {
		_, err := engine.AddExpense(ctx, intake.Item.ID, core.ExpenseInput{
			ExpenseType: "Parts", Description: "Screen", Amount: amount, Date: "2024-03-11",
		})
		var amountErr *core.InvalidAmountError
		if !errors.As(err, &amountErr) {
			t.Errorf("amount %s: expected *InvalidAmountError, got %v", amount, err)
		}
	}

	expense, err := engine.AddExpense(ctx, intake.Item.ID, core.ExpenseInput{
		ExpenseType: "Parts", Description: "Screw", Amount: "0.01", Date: "2024-03-11",
	})
	if err != nil {
		t.Fatalf("AddExpense(0.01): %v", err)
	}
	if !expense.Amount.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("amount = %s", expense.Amount)
	}
	if want := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC); !expense.Date.Equal(want) {
		t.Errorf("date = %v, want %v", expense.Date, want)
	}

	expenses, err := store.ListExpenses(ctx, intake.Item.ID)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Errorf("expenses = %d, want 1", len(expenses))
	}
	if n := len(ledgerOf(t, store, intake.Item.ID)); n != 1 {
		t.Errorf("expense touched the ledger: %d rows", n)
	}
}

func TestAddExpense_MissingFields(t *testing.T) {
	engine, _ := newEngine(t)
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	_, err := engine.AddExpense(context.Background(), intake.Item.ID, core.ExpenseInput{Amount: "10"})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	fields := verr.ByField()
	for _, f := range []string{"expense.expense_type", "expense.description", "expense.date"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing error for %s", f)
		}
	}
}

func TestAddManualLedgerEntry(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))

	entry, err := engine.AddManualLedgerEntry(ctx, intake.Item.ID, core.ManualEntryInput{
		TransactionType: "delivery",
		Description:     "Courier charge",
		Amount:          "25.00",
	})
	if err != nil {
		t.Fatalf("AddManualLedgerEntry: %v", err)
	}
	if entry.CreatedBy != "System" {
		t.Errorf("created_by = %q, want System", entry.CreatedBy)
	}
	if n := len(ledgerOf(t, store, intake.Item.ID)); n != 2 {
		t.Errorf("ledger rows = %d, want 2", n)
	}

	_, err = engine.AddManualLedgerEntry(ctx, intake.Item.ID, core.ManualEntryInput{
		TransactionType: "refund", Description: "x", Amount: "1",
	})
	var statusErr *core.InvalidStatusError
	if !errors.As(err, &statusErr) {
		t.Errorf("expected *InvalidStatusError, got %v", err)
	}

	_, err = engine.AddManualLedgerEntry(ctx, intake.Item.ID, core.ManualEntryInput{
		TransactionType: "progress", Description: "x", Amount: "-1",
	})
	var amountErr *core.InvalidAmountError
	if !errors.As(err, &amountErr) {
		t.Errorf("expected *InvalidAmountError, got %v", err)
	}
}

func TestUpdateServiceDetails_LeavesWorkflowStateAlone(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))
	id := intake.Item.ID
	if _, err := engine.TransitionStatus(ctx, id, core.StatusCompleted); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	details := sampleIntake("A", "555").Device
	details.Model = "Latitude 7420"
	details.EstimatedCost = "175.50"
	details.ActualCost = "999"
	details.TechnicianNotes = "Replaced LCD cable"

	item, err := engine.UpdateServiceDetails(ctx, id, details)
	if err != nil {
		t.Fatalf("UpdateServiceDetails: %v", err)
	}
	if item.Model != "Latitude 7420" || !item.EstimatedCost.Equal(decimal.RequireFromString("175.50")) {
		t.Errorf("details not applied: %+v", item)
	}
	if item.Status != core.StatusCompleted || !item.ActualCost.IsZero() || item.CompletedDate == nil {
		t.Errorf("workflow state changed: %+v", item)
	}
	if n := len(ledgerOf(t, store, id)); n != 2 {
		t.Errorf("ledger rows = %d, want 2", n)
	}
}

// ── Customers ────────────────────────────────────────────────────────────────

func TestUpsertCustomer(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	in := core.CustomerInput{Name: "John Smith", Phone: "+1-555-0101", Email: "john.smith@email.com", Address: "123 Main St"}

	first, created, err := engine.UpsertCustomer(ctx, in)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	in.Name = "J. Smith"
	second, created, err := engine.UpsertCustomer(ctx, in)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Name != "John Smith" {
		t.Errorf("got %+v, want unchanged customer %d", second, first.ID)
	}
}

func TestDeleteCustomerCascades(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	intake := mustIntake(t, engine, sampleIntake("A", "555"))
	if _, err := engine.AddExpense(ctx, intake.Item.ID, core.ExpenseInput{
		ExpenseType: "Parts", Description: "Fan", Amount: "10", Date: "2024-03-11",
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	if err := engine.DeleteCustomer(ctx, intake.Customer.ID); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}
	if _, err := store.GetServiceItem(ctx, intake.Item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("service item survived: %v", err)
	}
	if n := len(ledgerOf(t, store, intake.Item.ID)); n != 0 {
		t.Errorf("ledger rows survived: %d", n)
	}
	expenses, _ := store.ListExpenses(ctx, intake.Item.ID)
	if len(expenses) != 0 {
		t.Errorf("expenses survived: %d", len(expenses))
	}
	if _, err := store.GetInwardByServiceItem(ctx, intake.Item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("inward survived: %v", err)
	}
}

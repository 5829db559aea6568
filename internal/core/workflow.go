package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxIntakeAttempts bounds how often CreateIntake recomputes the inward number
// after losing a uniqueness race.
const maxIntakeAttempts = 3

// Intake is the result of receiving a device.
type Intake struct {
	Customer        *Customer      `json:"customer"`
	CustomerCreated bool           `json:"customer_created"`
	Item            *ServiceItem   `json:"service_item"`
	Inward          *ServiceInward `json:"inward"`
	Entry           *LedgerEntry   `json:"ledger_entry"`
}

// WorkflowEngine owns every mutation of a service item's workflow state
// (status, payment status, stamps, actual cost) and is the only writer of
// workflow ledger entries. Each operation is one store transaction: the
// entity change and its ledger entry commit together or not at all.
type WorkflowEngine interface {
	// CreateIntake resolves the customer, creates the service item with zero
	// actual cost, assigns the next inward number and records the inward entry.
	CreateIntake(ctx context.Context, in IntakeInput) (*Intake, error)

	// TransitionStatus moves an item to any status and records a progress entry.
	TransitionStatus(ctx context.Context, serviceItemID int, status ServiceStatus) (*ServiceItem, error)

	// UpdateActualCost sets the actual cost and records a completion entry,
	// even when the value is unchanged.
	UpdateActualCost(ctx context.Context, serviceItemID int, cost decimal.Decimal) (*ServiceItem, error)

	// UpdatePaymentStatus records a payment entry worth the actual cost when
	// the payment is received and zero otherwise.
	UpdatePaymentStatus(ctx context.Context, serviceItemID int, status PaymentStatus) (*ServiceItem, error)

	// AddExpense appends an expense line. The ledger is not touched.
	AddExpense(ctx context.Context, serviceItemID int, in ExpenseInput) (*ServiceExpense, error)

	// AddManualLedgerEntry appends an ad-hoc ledger entry.
	AddManualLedgerEntry(ctx context.Context, serviceItemID int, in ManualEntryInput) (*LedgerEntry, error)

	// UpdateServiceDetails edits the descriptive fields of an item. Workflow
	// state is left alone and no ledger entry is written.
	UpdateServiceDetails(ctx context.Context, serviceItemID int, in DeviceInput) (*ServiceItem, error)

	// UpsertCustomer returns the customer with the same phone number, or
	// creates one. created reports which happened.
	UpsertCustomer(ctx context.Context, in CustomerInput) (c *Customer, created bool, err error)

	DeleteServiceItem(ctx context.Context, serviceItemID int) error
	DeleteCustomer(ctx context.Context, customerID int) error
}

type workflowEngine struct {
	store    Store
	recorder *LedgerRecorder
	clock    Clock
	logger   *slog.Logger
}

// NewWorkflowEngine constructs a WorkflowEngine over store. A nil clock means
// SystemClock and a nil logger means slog.Default().
func NewWorkflowEngine(store Store, clock Clock, logger *slog.Logger) WorkflowEngine {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &workflowEngine{
		store:    store,
		recorder: NewLedgerRecorder(clock),
		clock:    clock,
		logger:   logger,
	}
}

// ── Intake ───────────────────────────────────────────────────────────────────

func (e *workflowEngine) CreateIntake(ctx context.Context, in IntakeInput) (*Intake, error) {
	in.Normalize()
	valid, err := in.validate()
	if err != nil {
		return nil, err
	}

	var result *Intake
	for attempt := 1; ; attempt++ {
		err = e.store.WithTx(ctx, func(tx Tx) error {
			r, err := e.createIntakeTx(ctx, tx, in, valid)
			if err != nil {
				return err
			}
			result = r
			return nil
		})

		var conflict *UniquenessConflictError
		if err == nil || !errors.As(err, &conflict) || attempt == maxIntakeAttempts {
			break
		}
		e.logger.Warn("inward number taken, retrying intake",
			"inward_number", conflict.Value, "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("service intake created",
		"service_item_id", result.Item.ID, "inward_number", result.Inward.InwardNumber)
	return result, nil
}

func (e *workflowEngine) createIntakeTx(ctx context.Context, tx Tx, in IntakeInput, valid *validIntake) (*Intake, error) {
	now := e.clock.Now()

	var (
		customer *Customer
		created  bool
		err      error
	)
	switch {
	case in.CustomerID != 0:
		customer, err = tx.GetCustomer(ctx, in.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load customer %d: %w", in.CustomerID, err)
		}
	case in.ReuseCustomerByPhone:
		customer, created, err = e.upsertCustomerTx(ctx, tx, in.Customer, now)
		if err != nil {
			return nil, err
		}
	default:
		customer = newCustomer(in.Customer, now)
		if err := tx.CreateCustomer(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		created = true
	}

	received := now
	if in.ReceivedAt != nil {
		received = in.ReceivedAt.UTC()
	}
	item := &ServiceItem{
		CustomerID:          customer.ID,
		CustomerName:        customer.Name,
		CustomerPhone:       customer.Phone,
		DeviceType:          valid.deviceType,
		Brand:               in.Device.Brand,
		Model:               in.Device.Model,
		SerialNumber:        in.Device.SerialNumber,
		ProblemDescription:  in.Device.ProblemDescription,
		AccessoriesReceived: in.Device.AccessoriesReceived,
		EstimatedCost:       valid.estimatedCost,
		ActualCost:          decimal.Zero,
		Status:              StatusPending,
		PaymentStatus:       valid.paymentStatus,
		ReceivedDate:        received,
		TechnicianNotes:     in.Device.TechnicianNotes,
		ProblemResolved:     in.Device.ProblemResolved,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.CreateServiceItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create service item: %w", err)
	}

	number, err := NextInwardNumber(ctx, tx)
	if err != nil {
		return nil, err
	}
	inward := &ServiceInward{
		ServiceItemID:         item.ID,
		InwardNumber:          number,
		ReceivedBy:            in.Inward.ReceivedBy,
		ConditionOnReceipt:    in.Inward.ConditionOnReceipt,
		EstimatedDeliveryDate: valid.deliveryDate,
		CreatedAt:             now,
	}
	if err := tx.CreateInward(ctx, inward); err != nil {
		return nil, fmt.Errorf("failed to create inward %s: %w", number, err)
	}

	entry, err := e.recorder.Record(ctx, tx, LedgerRecord{
		ServiceItemID:   item.ID,
		TransactionType: TxInward,
		Description:     fmt.Sprintf("Service inward created - %s", item.DeviceType),
		Amount:          item.EstimatedCost,
		Notes:           fmt.Sprintf("Inward number: %s", number),
	})
	if err != nil {
		return nil, err
	}

	return &Intake{Customer: customer, CustomerCreated: created, Item: item, Inward: inward, Entry: entry}, nil
}

// ── Status, cost and payment ─────────────────────────────────────────────────

func (e *workflowEngine) TransitionStatus(ctx context.Context, serviceItemID int, status ServiceStatus) (*ServiceItem, error) {
	if !status.Valid() {
		return nil, &InvalidStatusError{Field: "status", Value: string(status)}
	}
	return e.mutate(ctx, serviceItemID, func(item *ServiceItem, now time.Time) (LedgerRecord, error) {
		old := item.Status
		applyStatus(item, status, now)
		return LedgerRecord{
			TransactionType: TxProgress,
			Description:     fmt.Sprintf("Status changed from %s to %s", old, status),
			Amount:          decimal.Zero,
			Notes:           fmt.Sprintf("Status update: %s → %s", old, status),
		}, nil
	})
}

// applyStatus sets the status and stamps CompletedDate or DeliveredDate the
// first time the item enters that status.
func applyStatus(item *ServiceItem, status ServiceStatus, now time.Time) {
	switch status {
	case StatusCompleted:
		if item.CompletedDate == nil {
			t := now
			item.CompletedDate = &t
		}
	case StatusDelivered:
		if item.DeliveredDate == nil {
			t := now
			item.DeliveredDate = &t
		}
	case StatusPending, StatusInProgress, StatusCancelled:
	}
	item.Status = status
}

func (e *workflowEngine) UpdateActualCost(ctx context.Context, serviceItemID int, cost decimal.Decimal) (*ServiceItem, error) {
	if err := CheckAmount("actual_cost", cost); err != nil {
		return nil, err
	}
	return e.mutate(ctx, serviceItemID, func(item *ServiceItem, _ time.Time) (LedgerRecord, error) {
		item.ActualCost = cost
		return LedgerRecord{
			TransactionType: TxCompletion,
			Description:     fmt.Sprintf("Actual cost updated to %s", FormatRupees(cost)),
			Amount:          cost,
			Notes: fmt.Sprintf("Cost update: Estimated %s → Actual %s",
				FormatRupees(item.EstimatedCost), FormatRupees(cost)),
		}, nil
	})
}

func (e *workflowEngine) UpdatePaymentStatus(ctx context.Context, serviceItemID int, status PaymentStatus) (*ServiceItem, error) {
	if !status.Valid() {
		return nil, &InvalidStatusError{Field: "payment_status", Value: string(status)}
	}
	return e.mutate(ctx, serviceItemID, func(item *ServiceItem, _ time.Time) (LedgerRecord, error) {
		old := item.PaymentStatus
		item.PaymentStatus = status

		amount := decimal.Zero
		switch status {
		case PaymentReceived:
			amount = item.ActualCost
		case PaymentPending, PaymentPartial:
		}
		return LedgerRecord{
			TransactionType: TxPayment,
			Description:     fmt.Sprintf("Payment status updated to %s", status),
			Amount:          amount,
			Notes:           fmt.Sprintf("Payment status: %s → %s", old, status),
		}, nil
	})
}

// mutate loads the item for update, applies fn, saves the item and records
// the ledger entry fn describes, all in one transaction.
func (e *workflowEngine) mutate(ctx context.Context, serviceItemID int, fn func(item *ServiceItem, now time.Time) (LedgerRecord, error)) (*ServiceItem, error) {
	var updated *ServiceItem
	err := e.store.WithTx(ctx, func(tx Tx) error {
		item, err := tx.GetServiceItem(ctx, serviceItemID)
		if err != nil {
			return fmt.Errorf("failed to load service item %d: %w", serviceItemID, err)
		}

		now := e.clock.Now()
		rec, err := fn(item, now)
		if err != nil {
			return err
		}
		item.UpdatedAt = now
		if err := tx.UpdateServiceItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update service item %d: %w", serviceItemID, err)
		}

		rec.ServiceItemID = item.ID
		if _, err := e.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ── Expenses and manual entries ──────────────────────────────────────────────

func (e *workflowEngine) AddExpense(ctx context.Context, serviceItemID int, in ExpenseInput) (*ServiceExpense, error) {
	amount, date, err := in.validate()
	if err != nil {
		return nil, err
	}

	expense := &ServiceExpense{
		ServiceItemID: serviceItemID,
		ExpenseType:   in.ExpenseType,
		Description:   in.Description,
		Amount:        amount,
		Date:          date,
		CreatedAt:     e.clock.Now(),
	}
	err = e.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetServiceItem(ctx, serviceItemID); err != nil {
			return fmt.Errorf("failed to load service item %d: %w", serviceItemID, err)
		}
		if err := tx.InsertExpense(ctx, expense); err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (e *workflowEngine) AddManualLedgerEntry(ctx context.Context, serviceItemID int, in ManualEntryInput) (*LedgerEntry, error) {
	txType, err := ParseTransactionType(strings.TrimSpace(in.TransactionType))
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		verr := &ValidationError{}
		verr.Add(SectionLedger, "description", "This field is required.")
		return nil, verr
	}
	amount, err := ParseAmount("amount", string(in.Amount))
	if err != nil {
		return nil, err
	}

	var entry *LedgerEntry
	err = e.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetServiceItem(ctx, serviceItemID); err != nil {
			return fmt.Errorf("failed to load service item %d: %w", serviceItemID, err)
		}
		entry, err = e.recorder.Record(ctx, tx, LedgerRecord{
			ServiceItemID:   serviceItemID,
			TransactionType: txType,
			Description:     description,
			Amount:          amount,
			Notes:           strings.TrimSpace(in.Notes),
			CreatedBy:       in.CreatedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ── Descriptive edits ────────────────────────────────────────────────────────

func (e *workflowEngine) UpdateServiceDetails(ctx context.Context, serviceItemID int, in DeviceInput) (*ServiceItem, error) {
	in.normalize()
	verr := &ValidationError{}
	valid := validateDevice(verr, in)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	var updated *ServiceItem
	err := e.store.WithTx(ctx, func(tx Tx) error {
		item, err := tx.GetServiceItem(ctx, serviceItemID)
		if err != nil {
			return fmt.Errorf("failed to load service item %d: %w", serviceItemID, err)
		}
		item.DeviceType = valid.deviceType
		item.Brand = in.Brand
		item.Model = in.Model
		item.SerialNumber = in.SerialNumber
		item.ProblemDescription = in.ProblemDescription
		item.AccessoriesReceived = in.AccessoriesReceived
		item.EstimatedCost = valid.estimatedCost
		item.TechnicianNotes = in.TechnicianNotes
		item.ProblemResolved = in.ProblemResolved
		item.UpdatedAt = e.clock.Now()
		if err := tx.UpdateServiceItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update service item %d: %w", serviceItemID, err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ── Customers ────────────────────────────────────────────────────────────────

func (e *workflowEngine) UpsertCustomer(ctx context.Context, in CustomerInput) (*Customer, bool, error) {
	in.normalize()
	verr := &ValidationError{}
	collectFieldErrors(verr, SectionCustomer, in)
	if err := verr.orNil(); err != nil {
		return nil, false, err
	}

	var (
		customer *Customer
		created  bool
	)
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		customer, created, err = e.upsertCustomerTx(ctx, tx, in, e.clock.Now())
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return customer, created, nil
}

// upsertCustomerTx matches on the trimmed phone number. An existing customer
// is returned unchanged.
func (e *workflowEngine) upsertCustomerTx(ctx context.Context, tx Tx, in CustomerInput, now time.Time) (*Customer, bool, error) {
	existing, err := tx.FindCustomerByPhone(ctx, in.Phone)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up customer by phone: %w", err)
	}

	c := newCustomer(in, now)
	if err := tx.CreateCustomer(ctx, c); err != nil {
		return nil, false, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, true, nil
}

func newCustomer(in CustomerInput, now time.Time) *Customer {
	return &Customer{
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *workflowEngine) DeleteServiceItem(ctx context.Context, serviceItemID int) error {
	err := e.store.WithTx(ctx, func(tx Tx) error {
		return tx.DeleteServiceItem(ctx, serviceItemID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete service item %d: %w", serviceItemID, err)
	}
	return nil
}

func (e *workflowEngine) DeleteCustomer(ctx context.Context, customerID int) error {
	err := e.store.WithTx(ctx, func(tx Tx) error {
		return tx.DeleteCustomer(ctx, customerID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete customer %d: %w", customerID, err)
	}
	return nil
}

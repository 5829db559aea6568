package app

import (
	"context"

	"repair-desk/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// ── Intake ──────────────────────────────────────────────────────────────

	// CreateIntake receives a device: customer, service item, inward number
	// and the first ledger entry in one transaction.
	CreateIntake(ctx context.Context, in core.IntakeInput) (*core.Intake, error)

	// InterpretIntake sends a free-text drop-off note to the AI assistant and
	// returns a pre-filled intake form or a clarification question. Nothing is persisted.
	InterpretIntake(ctx context.Context, note string) (*AIResult, error)

	// NextInwardNumber previews the number the next intake would receive.
	NextInwardNumber(ctx context.Context) (string, error)

	// ── Workflow ────────────────────────────────────────────────────────────

	// UpdateStatus moves a service item to status and records a progress entry.
	UpdateStatus(ctx context.Context, serviceID int, status string) (*core.ServiceItem, error)

	// UpdateActualCost parses cost as a decimal and records a completion entry.
	UpdateActualCost(ctx context.Context, serviceID int, cost string) (*core.ServiceItem, error)

	// UpdatePaymentStatus records a payment entry.
	UpdatePaymentStatus(ctx context.Context, serviceID int, status string) (*core.ServiceItem, error)

	// UpdateServiceDetails edits descriptive fields without touching the ledger.
	UpdateServiceDetails(ctx context.Context, serviceID int, in core.DeviceInput) (*core.ServiceItem, error)

	AddExpense(ctx context.Context, serviceID int, in core.ExpenseInput) (*core.ServiceExpense, error)

	// AddLedgerEntry appends a manual ledger entry. An empty CreatedBy is recorded as "System".
	AddLedgerEntry(ctx context.Context, serviceID int, in core.ManualEntryInput) (*core.LedgerEntry, error)

	DeleteService(ctx context.Context, serviceID int) error

	// DeleteCustomer removes the customer with all their service items.
	DeleteCustomer(ctx context.Context, customerID int) error

	// ── Reporting ───────────────────────────────────────────────────────────

	// GetDashboard returns the shop overview, served from the cache when fresh.
	GetDashboard(ctx context.Context) (*core.Dashboard, error)

	ListServices(ctx context.Context, req ServiceListRequest) (*core.ServicePage, error)
	GetServiceReport(ctx context.Context, serviceID int) (*core.ServiceReport, error)

	// ExportServiceReport renders the service report as an .xlsx workbook.
	ExportServiceReport(ctx context.Context, serviceID int) (*ExportResult, error)

	// ListLedger returns one page of the shop-wide ledger, newest first.
	ListLedger(ctx context.Context, page int) (*core.LedgerPage, error)

	ListCustomers(ctx context.Context, search string, page int) (*core.CustomerPage, error)
	GetCustomer(ctx context.Context, customerID int) (*core.CustomerDetail, error)

	// ── Users ───────────────────────────────────────────────────────────────

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// CreateAdminUser creates a staff user. Existing usernames are left untouched
	// and reported with Created=false.
	CreateAdminUser(ctx context.Context, req CreateUserRequest) (*UserResult, error)

	// ResetPassword replaces the password of an existing user.
	ResetPassword(ctx context.Context, username, password string) error

	// SeedSampleData loads demonstration customers and services. Running it
	// twice creates nothing new.
	SeedSampleData(ctx context.Context) (*SeedResult, error)
}

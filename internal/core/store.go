package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence boundary of the service desk. Reads may run
// outside a transaction; every mutation runs inside WithTx, which commits
// when fn returns nil and rolls back otherwise.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader is the read-only query surface shared by Store and Tx.
// Missing rows are reported as errors wrapping ErrNotFound.
type Reader interface {
	GetCustomer(ctx context.Context, id int) (*Customer, error)
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, int, error)

	GetServiceItem(ctx context.Context, id int) (*ServiceItem, error)
	ListServiceItems(ctx context.Context, filter ServiceFilter) ([]ServiceItem, int, error)
	SummarizeServices(ctx context.Context, filter ServiceFilter) (*ServiceStats, error)

	GetInwardByServiceItem(ctx context.Context, serviceItemID int) (*ServiceInward, error)
	// LatestInward returns the inward with the highest id.
	LatestInward(ctx context.Context) (*ServiceInward, error)

	// ListLedgerEntries returns one item's entries oldest first.
	ListLedgerEntries(ctx context.Context, serviceItemID int) ([]LedgerEntry, error)
	// ListAllLedgerEntries returns entries across items newest first.
	ListAllLedgerEntries(ctx context.Context, page Page) ([]LedgerEntry, int, error)
	ListExpenses(ctx context.Context, serviceItemID int) ([]ServiceExpense, error)

	GetUser(ctx context.Context, id int) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// Tx is a unit of work. Create and Insert methods assign the store ID on the
// passed struct; timestamps are set by the caller. CreateInward returns
// *UniquenessConflictError when the inward number or item is already taken.
type Tx interface {
	Reader

	FindCustomerByPhone(ctx context.Context, phone string) (*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) error
	DeleteCustomer(ctx context.Context, id int) error

	CreateServiceItem(ctx context.Context, item *ServiceItem) error
	UpdateServiceItem(ctx context.Context, item *ServiceItem) error
	DeleteServiceItem(ctx context.Context, id int) error

	CreateInward(ctx context.Context, inward *ServiceInward) error
	InsertLedgerEntry(ctx context.Context, entry *LedgerEntry) error
	InsertExpense(ctx context.Context, expense *ServiceExpense) error

	CreateUser(ctx context.Context, u *User) error
	UpdateUserPassword(ctx context.Context, userID int, passwordHash string) error
}

// Page selects a window of a list. Zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// PageNumber converts a 1-based page number into a Page of the given size.
func PageNumber(n, size int) Page {
	if n < 1 {
		n = 1
	}
	return Page{Limit: size, Offset: (n - 1) * size}
}

// CustomerFilter narrows ListCustomers. Search matches name, phone or email
// case-insensitively.
type CustomerFilter struct {
	Search string
	Page
}

// ServiceFilter narrows service queries. Zero values mean "any". Time bounds
// are inclusive lower and exclusive upper bounds. Results are ordered newest
// received first.
type ServiceFilter struct {
	// Search matches customer name, brand, model or serial number, case-insensitively.
	Search         string
	CustomerID     int
	DeviceType     DeviceType
	Statuses       []ServiceStatus
	ReceivedFrom   time.Time
	ReceivedBefore time.Time
	CompletedFrom  time.Time
	CompletedUntil time.Time
	Page
}

// ServiceStats aggregates the service items matched by a ServiceFilter.
type ServiceStats struct {
	Total     int
	ByStatus  map[ServiceStatus]int
	ByPayment map[PaymentStatus]int
	ByDevice  map[DeviceType]int
	// ActualCost is the sum of actual cost over all matched items.
	ActualCost decimal.Decimal
	// Outstanding is the sum of actual cost of items whose payment is pending or partial.
	Outstanding decimal.Decimal
}

// NewServiceStats returns zeroed stats with every enum key present.
func NewServiceStats() *ServiceStats {
	st := &ServiceStats{
		ByStatus:    make(map[ServiceStatus]int),
		ByPayment:   make(map[PaymentStatus]int),
		ByDevice:    make(map[DeviceType]int),
		ActualCost:  decimal.Zero,
		Outstanding: decimal.Zero,
	}
	for _, s := range ServiceStatuses {
		st.ByStatus[s] = 0
	}
	for _, p := range PaymentStatuses {
		st.ByPayment[p] = 0
	}
	for _, d := range DeviceTypes {
		st.ByDevice[d] = 0
	}
	return st
}

// Add folds one item into the stats. Stores without aggregate queries use it.
func (st *ServiceStats) Add(item ServiceItem) {
	st.Total++
	st.ByStatus[item.Status]++
	st.ByPayment[item.PaymentStatus]++
	st.ByDevice[item.DeviceType]++
	st.ActualCost = st.ActualCost.Add(item.ActualCost)
	switch item.PaymentStatus {
	case PaymentPending, PaymentPartial:
		st.Outstanding = st.Outstanding.Add(item.ActualCost)
	case PaymentReceived:
	}
}

// Clock supplies the current time to the engine and recorder.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

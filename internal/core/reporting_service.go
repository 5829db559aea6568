package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Page sizes of the list screens.
const (
	ServicesPageSize  = 20
	CustomersPageSize = 20
	LedgerPageSize    = 50
)

const (
	recentServicesLimit  = 10
	overdueServicesLimit = 5
	overdueAfter         = 7 * 24 * time.Hour
)

// Pagination describes the window a list result covers.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

func newPagination(p Page, total int) Pagination {
	if p.Limit <= 0 {
		return Pagination{Page: 1, PageSize: total, Total: total, Pages: 1}
	}
	pages := (total + p.Limit - 1) / p.Limit
	if pages == 0 {
		pages = 1
	}
	return Pagination{Page: p.Offset/p.Limit + 1, PageSize: p.Limit, Total: total, Pages: pages}
}

// DeviceCount is the number of services for one device type.
type DeviceCount struct {
	DeviceType DeviceType `json:"device_type"`
	Count      int        `json:"count"`
}

// Dashboard is the shop overview.
type Dashboard struct {
	TotalCustomers  int                   `json:"total_customers"`
	TotalServices   int                   `json:"total_services"`
	StatusCounts    map[ServiceStatus]int `json:"status_counts"`
	PaymentCounts   map[PaymentStatus]int `json:"payment_counts"`
	TotalRevenue    decimal.Decimal       `json:"total_revenue"`
	MonthRevenue    decimal.Decimal       `json:"month_revenue"`
	PendingAmount   decimal.Decimal       `json:"pending_amount"`
	DeviceStats     []DeviceCount         `json:"device_stats"`
	RecentServices  []ServiceItem         `json:"recent_services"`
	OverdueServices []ServiceItem         `json:"overdue_services"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// ServicePage is one page of the service list.
type ServicePage struct {
	Services   []ServiceItem `json:"services"`
	Pagination Pagination    `json:"pagination"`
}

// CustomerPage is one page of the customer list.
type CustomerPage struct {
	Customers              []Customer      `json:"customers"`
	Pagination             Pagination      `json:"pagination"`
	TotalServices          int             `json:"total_services"`
	AvgServicesPerCustomer decimal.Decimal `json:"avg_services_per_customer"`
}

// CustomerDetail is a customer with their service history and statistics.
type CustomerDetail struct {
	Customer          *Customer          `json:"customer"`
	Services          []ServiceItem      `json:"services"`
	TotalSpent        decimal.Decimal    `json:"total_spent"`
	PendingServices   int                `json:"pending_services"`
	CompletedServices int                `json:"completed_services"`
	DeviceCounts      map[DeviceType]int `json:"device_counts"`
}

// ServiceReport is the full record of one service item, ledger and expenses
// in chronological order.
type ServiceReport struct {
	Item         *ServiceItem     `json:"service_item"`
	Customer     *Customer        `json:"customer"`
	Inward       *ServiceInward   `json:"inward,omitempty"`
	Ledger       []LedgerEntry    `json:"ledger"`
	Expenses     []ServiceExpense `json:"expenses"`
	LedgerTotal  decimal.Decimal  `json:"ledger_total"`
	ExpenseTotal decimal.Decimal  `json:"expense_total"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// LedgerPage is one page of the shop-wide ledger, newest first.
type LedgerPage struct {
	Entries    []LedgerEntry `json:"entries"`
	Pagination Pagination    `json:"pagination"`
}

// ReportingService answers read-only questions about the shop. It holds no
// invariants beyond correct aggregation.
type ReportingService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	ListServices(ctx context.Context, filter ServiceFilter) (*ServicePage, error)
	ListCustomers(ctx context.Context, filter CustomerFilter) (*CustomerPage, error)
	CustomerDetail(ctx context.Context, customerID int) (*CustomerDetail, error)
	ServiceReport(ctx context.Context, serviceItemID int) (*ServiceReport, error)
	LedgerPage(ctx context.Context, page Page) (*LedgerPage, error)
}

type reportingService struct {
	reader Reader
	clock  Clock
}

// NewReportingService constructs a ReportingService reading through r.
func NewReportingService(r Reader, clock Clock) ReportingService {
	if clock == nil {
		clock = SystemClock
	}
	return &reportingService{reader: r, clock: clock}
}

func (s *reportingService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.clock.Now()

	_, totalCustomers, err := s.reader.ListCustomers(ctx, CustomerFilter{Page: Page{Limit: 1}})
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	all, err := s.reader.SummarizeServices(ctx, ServiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize services: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	month, err := s.reader.SummarizeServices(ctx, ServiceFilter{
		CompletedFrom:  monthStart,
		CompletedUntil: monthStart.AddDate(0, 1, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize month revenue: %w", err)
	}

	recent, _, err := s.reader.ListServiceItems(ctx, ServiceFilter{Page: Page{Limit: recentServicesLimit}})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent services: %w", err)
	}
	overdue, _, err := s.reader.ListServiceItems(ctx, ServiceFilter{
		Statuses:       []ServiceStatus{StatusPending, StatusInProgress},
		ReceivedBefore: now.Add(-overdueAfter),
		Page:           Page{Limit: overdueServicesLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue services: %w", err)
	}

	return &Dashboard{
		TotalCustomers:  totalCustomers,
		TotalServices:   all.Total,
		StatusCounts:    all.ByStatus,
		PaymentCounts:   all.ByPayment,
		TotalRevenue:    all.ActualCost,
		MonthRevenue:    month.ActualCost,
		PendingAmount:   all.Outstanding,
		DeviceStats:     deviceStats(all.ByDevice),
		RecentServices:  recent,
		OverdueServices: overdue,
		GeneratedAt:     now,
	}, nil
}

// deviceStats lists device types that have services, most common first.
func deviceStats(counts map[DeviceType]int) []DeviceCount {
	out := make([]DeviceCount, 0, len(counts))
	for _, d := range DeviceTypes {
		if counts[d] > 0 {
			out = append(out, DeviceCount{DeviceType: d, Count: counts[d]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (s *reportingService) ListServices(ctx context.Context, filter ServiceFilter) (*ServicePage, error) {
	items, total, err := s.reader.ListServiceItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return &ServicePage{Services: items, Pagination: newPagination(filter.Page, total)}, nil
}

func (s *reportingService) ListCustomers(ctx context.Context, filter CustomerFilter) (*CustomerPage, error) {
	customers, total, err := s.reader.ListCustomers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	_, allCustomers, err := s.reader.ListCustomers(ctx, CustomerFilter{Page: Page{Limit: 1}})
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	stats, err := s.reader.SummarizeServices(ctx, ServiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize services: %w", err)
	}
	avg := decimal.Zero
	if allCustomers > 0 {
		avg = decimal.NewFromInt(int64(stats.Total)).Div(decimal.NewFromInt(int64(allCustomers))).Round(1)
	}

	return &CustomerPage{
		Customers:              customers,
		Pagination:             newPagination(filter.Page, total),
		TotalServices:          stats.Total,
		AvgServicesPerCustomer: avg,
	}, nil
}

func (s *reportingService) CustomerDetail(ctx context.Context, customerID int) (*CustomerDetail, error) {
	customer, err := s.reader.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}
	filter := ServiceFilter{CustomerID: customerID}
	services, _, err := s.reader.ListServiceItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer services: %w", err)
	}
	stats, err := s.reader.SummarizeServices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize customer services: %w", err)
	}

	return &CustomerDetail{
		Customer:          customer,
		Services:          services,
		TotalSpent:        stats.ActualCost,
		PendingServices:   stats.ByStatus[StatusPending],
		CompletedServices: stats.ByStatus[StatusCompleted] + stats.ByStatus[StatusDelivered],
		DeviceCounts:      stats.ByDevice,
	}, nil
}

func (s *reportingService) ServiceReport(ctx context.Context, serviceItemID int) (*ServiceReport, error) {
	item, err := s.reader.GetServiceItem(ctx, serviceItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service item %d: %w", serviceItemID, err)
	}
	customer, err := s.reader.GetCustomer(ctx, item.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", item.CustomerID, err)
	}
	inward, err := s.reader.GetInwardByServiceItem(ctx, serviceItemID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load inward: %w", err)
	}
	entries, err := s.reader.ListLedgerEntries(ctx, serviceItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	expenses, err := s.reader.ListExpenses(ctx, serviceItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	ledgerTotal := decimal.Zero
	for _, e := range entries {
		ledgerTotal = ledgerTotal.Add(e.Amount)
	}
	expenseTotal := decimal.Zero
	for _, e := range expenses {
		expenseTotal = expenseTotal.Add(e.Amount)
	}

	return &ServiceReport{
		Item:         item,
		Customer:     customer,
		Inward:       inward,
		Ledger:       entries,
		Expenses:     expenses,
		LedgerTotal:  ledgerTotal,
		ExpenseTotal: expenseTotal,
		GeneratedAt:  s.clock.Now(),
	}, nil
}

func (s *reportingService) LedgerPage(ctx context.Context, page Page) (*LedgerPage, error) {
	entries, total, err := s.reader.ListAllLedgerEntries(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	return &LedgerPage{Entries: entries, Pagination: newPagination(page, total)}, nil
}

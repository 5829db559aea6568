package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"repair-desk/internal/ai"
	"repair-desk/internal/cache"
	"repair-desk/internal/core"
	"repair-desk/internal/export"
)

// ErrAssistantDisabled is returned by InterpretIntake when no OpenAI key is configured.
var ErrAssistantDisabled = errors.New("AI intake assistant is not configured")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type appService struct {
	store     core.Store
	engine    core.WorkflowEngine
	reporting core.ReportingService
	agent     ai.IntakeAssistant
	dashboard cache.DashboardCache
	clock     core.Clock
	logger    *slog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// agent may be nil, which disables InterpretIntake. A nil dashboard cache
// means no caching.
func NewAppService(
	store core.Store,
	engine core.WorkflowEngine,
	reporting core.ReportingService,
	agent ai.IntakeAssistant,
	dashboard cache.DashboardCache,
	clock core.Clock,
	logger *slog.Logger,
) ApplicationService {
	if dashboard == nil {
		dashboard = cache.Nop{}
	}
	if clock == nil {
		clock = core.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &appService{
		store:     store,
		engine:    engine,
		reporting: reporting,
		agent:     agent,
		dashboard: dashboard,
		clock:     clock,
		logger:    logger,
	}
}

// changed drops the cached dashboard after a successful mutation. A cache
// failure never fails the mutation.
func (s *appService) changed(ctx context.Context) {
	if err := s.dashboard.Invalidate(ctx); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", "error", err)
	}
}

// ── Intake ───────────────────────────────────────────────────────────────────

func (s *appService) CreateIntake(ctx context.Context, in core.IntakeInput) (*core.Intake, error) {
	intake, err := s.engine.CreateIntake(ctx, in)
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return intake, nil
}

func (s *appService) InterpretIntake(ctx context.Context, note string) (*AIResult, error) {
	if s.agent == nil {
		return nil, ErrAssistantDisabled
	}
	resp, err := s.agent.InterpretIntake(ctx, note, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("intake assistant: %w", err)
	}
	result := &AIResult{Proposal: resp.Proposal, IsClarification: resp.IsClarificationRequest}
	if resp.Clarification != nil {
		result.ClarificationMessage = resp.Clarification.Message
		result.MissingFields = resp.Clarification.Missing
	}
	return result, nil
}

func (s *appService) NextInwardNumber(ctx context.Context) (string, error) {
	return core.NextInwardNumber(ctx, s.store)
}

// ── Workflow ─────────────────────────────────────────────────────────────────

func (s *appService) UpdateStatus(ctx context.Context, serviceID int, status string) (*core.ServiceItem, error) {
	st, err := core.ParseServiceStatus(strings.ToLower(strings.TrimSpace(status)))
	if err != nil {
		return nil, err
	}
	item, err := s.engine.TransitionStatus(ctx, serviceID, st)
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return item, nil
}

func (s *appService) UpdateActualCost(ctx context.Context, serviceID int, cost string) (*core.ServiceItem, error) {
	amount, err := core.ParseAmount("actual_cost", cost)
	if err != nil {
		return nil, err
	}
	item, err := s.engine.UpdateActualCost(ctx, serviceID, amount)
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return item, nil
}

func (s *appService) UpdatePaymentStatus(ctx context.Context, serviceID int, status string) (*core.ServiceItem, error) {
	ps, err := core.ParsePaymentStatus(strings.ToLower(strings.TrimSpace(status)))
	if err != nil {
		return nil, err
	}
	item, err := s.engine.UpdatePaymentStatus(ctx, serviceID, ps)
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return item, nil
}

func (s *appService) UpdateServiceDetails(ctx context.Context, serviceID int, in core.DeviceInput) (*core.ServiceItem, error) {
	item, err := s.engine.UpdateServiceDetails(ctx, serviceID, in)
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return item, nil
}

func (s *appService) AddExpense(ctx context.Context, serviceID int, in core.ExpenseInput) (*core.ServiceExpense, error) {
	return s.engine.AddExpense(ctx, serviceID, in)
}

func (s *appService) AddLedgerEntry(ctx context.Context, serviceID int, in core.ManualEntryInput) (*core.LedgerEntry, error) {
	return s.engine.AddManualLedgerEntry(ctx, serviceID, in)
}

func (s *appService) DeleteService(ctx context.Context, serviceID int) error {
	if err := s.engine.DeleteServiceItem(ctx, serviceID); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *appService) DeleteCustomer(ctx context.Context, customerID int) error {
	if err := s.engine.DeleteCustomer(ctx, customerID); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// ── Reporting ────────────────────────────────────────────────────────────────

func (s *appService) GetDashboard(ctx context.Context) (*core.Dashboard, error) {
	cached, ok, err := s.dashboard.Load(ctx)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", "error", err)
	}
	if ok {
		return cached, nil
	}

	d, err := s.reporting.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.dashboard.Store(ctx, d); err != nil {
		s.logger.Warn("dashboard cache write failed", "error", err)
	}
	return d, nil
}

func (s *appService) ListServices(ctx context.Context, req ServiceListRequest) (*core.ServicePage, error) {
	filter, err := serviceFilter(req)
	if err != nil {
		return nil, err
	}
	return s.reporting.ListServices(ctx, filter)
}

// serviceFilter converts list query parameters. DateTo is inclusive of the whole day.
func serviceFilter(req ServiceListRequest) (core.ServiceFilter, error) {
	filter := core.ServiceFilter{
		Search: strings.TrimSpace(req.Search),
		Page:   core.PageNumber(req.Page, core.ServicesPageSize),
	}
	if v := strings.ToLower(strings.TrimSpace(req.DeviceType)); v != "" {
		d, err := core.ParseDeviceType(v)
		if err != nil {
			return filter, err
		}
		filter.DeviceType = d
	}
	if v := strings.ToLower(strings.TrimSpace(req.Status)); v != "" {
		st, err := core.ParseServiceStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Statuses = []core.ServiceStatus{st}
	}

	verr := &core.ValidationError{}
	if v := strings.TrimSpace(req.DateFrom); v != "" {
		t, err := time.Parse(core.DateLayout, v)
		if err != nil {
			verr.Add("filter", "date_from", "Enter a valid date.")
		}
		filter.ReceivedFrom = t
	}
	if v := strings.TrimSpace(req.DateTo); v != "" {
		t, err := time.Parse(core.DateLayout, v)
		if err != nil {
			verr.Add("filter", "date_to", "Enter a valid date.")
		} else {
			filter.ReceivedBefore = t.AddDate(0, 0, 1)
		}
	}
	if len(verr.Fields) > 0 {
		return filter, verr
	}
	return filter, nil
}

func (s *appService) GetServiceReport(ctx context.Context, serviceID int) (*core.ServiceReport, error) {
	return s.reporting.ServiceReport(ctx, serviceID)
}

func (s *appService) ExportServiceReport(ctx context.Context, serviceID int) (*ExportResult, error) {
	report, err := s.reporting.ServiceReport(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	buf, err := export.ServiceReportXLSX(report)
	if err != nil {
		return nil, fmt.Errorf("failed to export service report %d: %w", serviceID, err)
	}
	return &ExportResult{
		Filename:    export.ServiceReportFilename(report),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *appService) ListLedger(ctx context.Context, page int) (*core.LedgerPage, error) {
	return s.reporting.LedgerPage(ctx, core.PageNumber(page, core.LedgerPageSize))
}

func (s *appService) ListCustomers(ctx context.Context, search string, page int) (*core.CustomerPage, error) {
	return s.reporting.ListCustomers(ctx, core.CustomerFilter{
		Search: strings.TrimSpace(search),
		Page:   core.PageNumber(page, core.CustomersPageSize),
	})
}

func (s *appService) GetCustomer(ctx context.Context, customerID int) (*core.CustomerDetail, error) {
	return s.reporting.CustomerDetail(ctx, customerID)
}

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repair-desk/internal/core"

	"github.com/shopspring/decimal"
)

type sampleService struct {
	customer        int // index into sampleCustomers
	device          core.DeviceInput
	actualCost      string
	status          core.ServiceStatus
	receivedDaysAgo int
}

var sampleCustomers = []core.CustomerInput{
	{Name: "John Smith", Phone: "+1-555-0101", Email: "john.smith@email.com", Address: "123 Main Street, City, State 12345"},
	{Name: "Sarah Johnson", Phone: "+1-555-0102", Email: "sarah.johnson@email.com", Address: "456 Oak Avenue, City, State 12345"},
	{Name: "Mike Davis", Phone: "+1-555-0103", Email: "mike.davis@email.com", Address: "789 Pine Road, City, State 12345"},
	{Name: "Lisa Wilson", Phone: "+1-555-0104", Email: "lisa.wilson@email.com", Address: "321 Elm Street, City, State 12345"},
	{Name: "David Brown", Phone: "+1-555-0105", Email: "david.brown@email.com", Address: "654 Maple Drive, City, State 12345"},
}

var sampleServices = []sampleService{
	{
		device: core.DeviceInput{
			DeviceType:          "laptop",
			Brand:               "Dell",
			Model:               "Latitude 5520",
			SerialNumber:        "DL123456789",
			ProblemDescription:  "Laptop not turning on, suspected power supply issue",
			AccessoriesReceived: "Laptop, Charger, Mouse",
			EstimatedCost:       "150.00",
			TechnicianNotes:     "Replaced power supply unit. System working properly now.",
		},
		customer:        0,
		actualCost:      "120.00",
		status:          core.StatusCompleted,
		receivedDaysAgo: 5,
	},
	{
		device: core.DeviceInput{
			DeviceType:          "desktop",
			Brand:               "HP",
			Model:               "Pavilion Desktop",
			SerialNumber:        "HP987654321",
			ProblemDescription:  "Slow performance, needs RAM upgrade and virus removal",
			AccessoriesReceived: "Desktop tower, Monitor, Keyboard, Mouse",
			EstimatedCost:       "200.00",
			TechnicianNotes:     "Virus removed. RAM upgrade completed. Testing performance.",
		},
		customer:        1,
		actualCost:      "180.00",
		status:          core.StatusInProgress,
		receivedDaysAgo: 3,
	},
	{
		device: core.DeviceInput{
			DeviceType:          "printer",
			Brand:               "Canon",
			Model:               "Pixma MG3620",
			SerialNumber:        "CN456789123",
			ProblemDescription:  "Printer not printing, paper jam error",
			AccessoriesReceived: "Printer, Power cable, USB cable",
			EstimatedCost:       "50.00",
			TechnicianNotes:     "Cleared paper jam. Replaced worn rollers. Printer working fine.",
		},
		customer:        2,
		actualCost:      "45.00",
		status:          core.StatusDelivered,
		receivedDaysAgo: 7,
	},
	{
		device: core.DeviceInput{
			DeviceType:          "laptop",
			Brand:               "Lenovo",
			Model:               "ThinkPad T14",
			SerialNumber:        "LN789123456",
			ProblemDescription:  "Broken screen, needs replacement",
			AccessoriesReceived: "Laptop only",
			EstimatedCost:       "300.00",
			TechnicianNotes:     "Waiting for screen replacement part to arrive.",
		},
		customer:        3,
		actualCost:      "0.00",
		status:          core.StatusPending,
		receivedDaysAgo: 1,
	},
	{
		device: core.DeviceInput{
			DeviceType:          "desktop",
			Brand:               "Apple",
			Model:               `iMac 27"`,
			SerialNumber:        "AP321654987",
			ProblemDescription:  "Software installation and system optimization",
			AccessoriesReceived: "iMac only",
			EstimatedCost:       "100.00",
			TechnicianNotes:     "Installed requested software. Optimized system performance.",
		},
		customer:        4,
		actualCost:      "100.00",
		status:          core.StatusCompleted,
		receivedDaysAgo: 10,
	},
}

// statusPath lists the transitions that lead from pending to target.
func statusPath(target core.ServiceStatus) []core.ServiceStatus {
	switch target {
	case core.StatusInProgress:
		return []core.ServiceStatus{core.StatusInProgress}
	case core.StatusCompleted:
		return []core.ServiceStatus{core.StatusInProgress, core.StatusCompleted}
	case core.StatusDelivered:
		return []core.ServiceStatus{core.StatusInProgress, core.StatusCompleted, core.StatusDelivered}
	case core.StatusCancelled:
		return []core.ServiceStatus{core.StatusCancelled}
	case core.StatusPending:
	}
	return nil
}

// SeedSampleData drives every sample service through the workflow engine so
// the ledger reads as if an operator had done the work.
func (s *appService) SeedSampleData(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}
	now := s.clock.Now()

	customers := make([]*core.Customer, len(sampleCustomers))
	for i, in := range sampleCustomers {
		c, created, err := s.engine.UpsertCustomer(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to seed customer %s: %w", in.Name, err)
		}
		customers[i] = c
		if created {
			result.CustomersCreated++
		}
	}

	for _, sample := range sampleServices {
		customer := customers[sample.customer]
		exists, err := s.sampleServiceExists(ctx, customer.ID, sample.device)
		if err != nil {
			return nil, err
		}
		if exists {
			result.ServicesExisting++
			continue
		}
		if err := s.seedService(ctx, customer.ID, sample, now); err != nil {
			return nil, fmt.Errorf("failed to seed %s %s for %s: %w",
				sample.device.Brand, sample.device.Model, customer.Name, err)
		}
		result.ServicesCreated++
	}

	s.changed(ctx)
	s.logger.Info("sample data seeded",
		"customers_created", result.CustomersCreated, "services_created", result.ServicesCreated)
	return result, nil
}

// sampleServiceExists matches on customer, device type, brand, model and serial number.
func (s *appService) sampleServiceExists(ctx context.Context, customerID int, d core.DeviceInput) (bool, error) {
	items, _, err := s.store.ListServiceItems(ctx, core.ServiceFilter{CustomerID: customerID})
	if err != nil {
		return false, fmt.Errorf("failed to list services of customer %d: %w", customerID, err)
	}
	for _, item := range items {
		if string(item.DeviceType) == d.DeviceType && item.Brand == d.Brand &&
			item.Model == d.Model && item.SerialNumber == d.SerialNumber {
			return true, nil
		}
	}
	return false, nil
}

func (s *appService) seedService(ctx context.Context, customerID int, sample sampleService, now time.Time) error {
	received := now.AddDate(0, 0, -sample.receivedDaysAgo)
	intake, err := s.engine.CreateIntake(ctx, core.IntakeInput{
		CustomerID: customerID,
		Device:     sample.device,
		Inward: core.InwardInput{
			ReceivedBy:            "Admin",
			ConditionOnReceipt:    "Device received in good condition",
			EstimatedDeliveryDate: now.AddDate(0, 0, 7).Format(core.DateLayout),
		},
		ReceivedAt: &received,
	})
	if err != nil {
		return err
	}
	id := intake.Item.ID

	for _, st := range statusPath(sample.status) {
		if _, err := s.engine.TransitionStatus(ctx, id, st); err != nil {
			return err
		}
	}

	cost := decimal.RequireFromString(sample.actualCost)
	if cost.IsPositive() {
		if _, err := s.engine.UpdateActualCost(ctx, id, cost); err != nil {
			return err
		}
	}

	if sample.status != core.StatusCompleted && sample.status != core.StatusDelivered {
		return nil
	}
	date := received.Format(core.DateLayout)
	split := []struct {
		kind, description string
		share             decimal.Decimal
	}{
		{"Parts", "Replacement parts used", decimal.RequireFromString("0.6")},
		{"Labor", "Technician labor", decimal.RequireFromString("0.4")},
	}
	for _, e := range split {
		amount := cost.Mul(e.share).Round(2)
		if !amount.IsPositive() {
			continue
		}
		_, err := s.engine.AddExpense(ctx, id, core.ExpenseInput{
			ExpenseType: e.kind,
			Description: e.description,
			Amount:      core.AmountText(amount.StringFixed(2)),
			Date:        date,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s expense: %w", strings.ToLower(e.kind), err)
		}
	}
	return nil
}

package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DeviceType identifies the kind of device brought in for service.
type DeviceType string

const (
	DeviceLaptop  DeviceType = "laptop"
	DeviceDesktop DeviceType = "desktop"
	DevicePrinter DeviceType = "printer"
)

// DeviceTypes lists every device type in display order.
var DeviceTypes = []DeviceType{DeviceLaptop, DeviceDesktop, DevicePrinter}

func (d DeviceType) Valid() bool {
	switch d {
	case DeviceLaptop, DeviceDesktop, DevicePrinter:
		return true
	}
	return false
}

func (d DeviceType) Label() string {
	switch d {
	case DeviceLaptop:
		return "Laptop"
	case DeviceDesktop:
		return "Desktop"
	case DevicePrinter:
		return "Printer"
	}
	return string(d)
}

// ParseDeviceType returns an *InvalidStatusError for values outside the enumeration.
func ParseDeviceType(s string) (DeviceType, error) {
	d := DeviceType(s)
	if !d.Valid() {
		return "", &InvalidStatusError{Field: "device_type", Value: s}
	}
	return d, nil
}

// ServiceStatus is the workflow status of a service item.
type ServiceStatus string

const (
	StatusPending    ServiceStatus = "pending"
	StatusInProgress ServiceStatus = "in_progress"
	StatusCompleted  ServiceStatus = "completed"
	StatusDelivered  ServiceStatus = "delivered"
	StatusCancelled  ServiceStatus = "cancelled"
)

var ServiceStatuses = []ServiceStatus{StatusPending, StatusInProgress, StatusCompleted, StatusDelivered, StatusCancelled}

func (s ServiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s ServiceStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

func ParseServiceStatus(s string) (ServiceStatus, error) {
	st := ServiceStatus(s)
	if !st.Valid() {
		return "", &InvalidStatusError{Field: "status", Value: s}
	}
	return st, nil
}

// PaymentStatus tracks whether the customer has paid for the service.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentReceived PaymentStatus = "received"
	PaymentPartial  PaymentStatus = "partial"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentReceived, PaymentPartial}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentReceived, PaymentPartial:
		return true
	}
	return false
}

func (p PaymentStatus) Label() string {
	switch p {
	case PaymentPending:
		return "Payment Pending"
	case PaymentReceived:
		return "Payment Received"
	case PaymentPartial:
		return "Partial Payment"
	}
	return string(p)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	p := PaymentStatus(s)
	if !p.Valid() {
		return "", &InvalidStatusError{Field: "payment_status", Value: s}
	}
	return p, nil
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxInward     TransactionType = "inward"
	TxProgress   TransactionType = "progress"
	TxCompletion TransactionType = "completion"
	TxDelivery   TransactionType = "delivery"
	TxPayment    TransactionType = "payment"
)

var TransactionTypes = []TransactionType{TxInward, TxProgress, TxCompletion, TxDelivery, TxPayment}

func (t TransactionType) Valid() bool {
	switch t {
	case TxInward, TxProgress, TxCompletion, TxDelivery, TxPayment:
		return true
	}
	return false
}

func (t TransactionType) Label() string {
	switch t {
	case TxInward:
		return "Service Inward"
	case TxProgress:
		return "Service Progress"
	case TxCompletion:
		return "Service Completion"
	case TxDelivery:
		return "Service Delivery"
	case TxPayment:
		return "Payment Received"
	}
	return string(t)
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", &InvalidStatusError{Field: "transaction_type", Value: s}
	}
	return t, nil
}

// ── Entities ─────────────────────────────────────────────────────────────────

// Customer is a person who brings devices in for repair. Phone is the natural
// key used by UpsertCustomer but is not unique in storage.
type Customer struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceItem is a single device under service. CompletedDate and DeliveredDate
// are stamped once by the workflow engine and never cleared.
type ServiceItem struct {
	ID                  int             `json:"id"`
	CustomerID          int             `json:"customer_id"`
	CustomerName        string          `json:"customer_name,omitempty"`
	CustomerPhone       string          `json:"customer_phone,omitempty"`
	DeviceType          DeviceType      `json:"device_type"`
	Brand               string          `json:"brand"`
	Model               string          `json:"model"`
	SerialNumber        string          `json:"serial_number,omitempty"`
	ProblemDescription  string          `json:"problem_description"`
	AccessoriesReceived string          `json:"accessories_received,omitempty"`
	EstimatedCost       decimal.Decimal `json:"estimated_cost"`
	ActualCost          decimal.Decimal `json:"actual_cost"`
	Status              ServiceStatus   `json:"status"`
	PaymentStatus       PaymentStatus   `json:"payment_status"`
	ReceivedDate        time.Time       `json:"received_date"`
	CompletedDate       *time.Time      `json:"completed_date,omitempty"`
	DeliveredDate       *time.Time      `json:"delivered_date,omitempty"`
	TechnicianNotes     string          `json:"technician_notes,omitempty"`
	ProblemResolved     string          `json:"problem_resolved,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Title is the short human description used in lists: "Laptop - Dell Latitude 5520".
func (s ServiceItem) Title() string {
	return fmt.Sprintf("%s - %s %s", s.DeviceType.Label(), s.Brand, s.Model)
}

// ServiceInward is the intake record of a service item. One per item.
type ServiceInward struct {
	ID                    int       `json:"id"`
	ServiceItemID         int       `json:"service_item_id"`
	InwardNumber          string    `json:"inward_number"`
	ReceivedBy            string    `json:"received_by"`
	ConditionOnReceipt    string    `json:"condition_on_receipt"`
	EstimatedDeliveryDate time.Time `json:"estimated_delivery_date"`
	CreatedAt             time.Time `json:"created_at"`
}

// LedgerEntry is one append-only row of a service item's audit trail.
type LedgerEntry struct {
	ID              int             `json:"id"`
	ServiceItemID   int             `json:"service_item_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
}

// ServiceExpense is a cost incurred while servicing an item (parts, labor).
type ServiceExpense struct {
	ID            int             `json:"id"`
	ServiceItemID int             `json:"service_item_id"`
	ExpenseType   string          `json:"expense_type"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DateLayout is the calendar-date format accepted for inward delivery dates,
// expense dates and report filters.
const DateLayout = "2006-01-02"

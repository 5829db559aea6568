package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Form sections reported in ValidationError.
const (
	SectionCustomer = "customer"
	SectionService  = "service"
	SectionInward   = "inward"
	SectionExpense  = "expense"
	SectionLedger   = "ledger"
)

// CustomerInput is the customer part of an intake form.
type CustomerInput struct {
	Name    string `json:"name" validate:"required,max=200" jsonschema:"description=Customer full name"`
	Phone   string `json:"phone" validate:"required,max=15" jsonschema:"description=Customer phone number"`
	Email   string `json:"email" validate:"omitempty,email,max=254" jsonschema:"description=Email address or empty string"`
	Address string `json:"address" validate:"required" jsonschema:"description=Postal address"`
}

// DeviceInput is the device part of an intake form. ActualCost is accepted so
// form payloads decode, but intake always stores zero.
type DeviceInput struct {
	DeviceType          string     `json:"device_type" validate:"required,oneof=laptop desktop printer" jsonschema:"enum=laptop,enum=desktop,enum=printer"`
	Brand               string     `json:"brand" validate:"required,max=100"`
	Model               string     `json:"model" validate:"required,max=100"`
	SerialNumber        string     `json:"serial_number" validate:"max=100"`
	ProblemDescription  string     `json:"problem_description" validate:"required"`
	AccessoriesReceived string     `json:"accessories_received"`
	EstimatedCost       AmountText `json:"estimated_cost" validate:"required" jsonschema:"description=Decimal string e.g. 150.00"`
	ActualCost          AmountText `json:"actual_cost,omitempty" jsonschema:"-"`
	PaymentStatus       string     `json:"payment_status,omitempty" validate:"omitempty,oneof=pending received partial" jsonschema:"-"`
	TechnicianNotes     string     `json:"technician_notes,omitempty" jsonschema:"-"`
	ProblemResolved     string     `json:"problem_resolved,omitempty" jsonschema:"-"`
}

// InwardInput is the receipt part of an intake form.
type InwardInput struct {
	ReceivedBy            string `json:"received_by" validate:"required,max=100"`
	ConditionOnReceipt    string `json:"condition_on_receipt" validate:"required"`
	EstimatedDeliveryDate string `json:"estimated_delivery_date" validate:"required" jsonschema:"description=YYYY-MM-DD"`
}

// IntakeInput is everything needed to receive a device.
//
// Customer resolution: CustomerID reuses an existing customer; otherwise
// ReuseCustomerByPhone upserts by phone (batch loading), and by default a new
// customer is always created (form entry).
type IntakeInput struct {
	Customer             CustomerInput `json:"customer"`
	Device               DeviceInput   `json:"device"`
	Inward               InwardInput   `json:"inward"`
	CustomerID           int           `json:"customer_id,omitempty"`
	ReuseCustomerByPhone bool          `json:"reuse_customer_by_phone,omitempty"`
	// ReceivedAt backdates the intake. Numbering ignores it.
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// Normalize trims whitespace and lower-cases enum fields.
func (in *IntakeInput) Normalize() {
	in.Customer.normalize()
	in.Device.normalize()
	in.Inward.EstimatedDeliveryDate = strings.TrimSpace(in.Inward.EstimatedDeliveryDate)
	in.Inward.ReceivedBy = strings.TrimSpace(in.Inward.ReceivedBy)
	in.Inward.ConditionOnReceipt = strings.TrimSpace(in.Inward.ConditionOnReceipt)
}

func (c *CustomerInput) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Address = strings.TrimSpace(c.Address)
}

func (d *DeviceInput) normalize() {
	d.DeviceType = strings.ToLower(strings.TrimSpace(d.DeviceType))
	d.Brand = strings.TrimSpace(d.Brand)
	d.Model = strings.TrimSpace(d.Model)
	d.SerialNumber = strings.TrimSpace(d.SerialNumber)
	d.ProblemDescription = strings.TrimSpace(d.ProblemDescription)
	d.AccessoriesReceived = strings.TrimSpace(d.AccessoriesReceived)
	d.EstimatedCost = AmountText(strings.TrimSpace(string(d.EstimatedCost)))
	d.PaymentStatus = strings.ToLower(strings.TrimSpace(d.PaymentStatus))
	d.TechnicianNotes = strings.TrimSpace(d.TechnicianNotes)
	d.ProblemResolved = strings.TrimSpace(d.ProblemResolved)
}

// validIntake holds the parsed, typed form of an IntakeInput.
type validIntake struct {
	deviceType    DeviceType
	estimatedCost decimal.Decimal
	paymentStatus PaymentStatus
	deliveryDate  time.Time
}

// Validate checks every section and returns a *ValidationError listing all
// invalid fields, or nil. Customer fields are skipped when CustomerID is set.
func (in *IntakeInput) Validate() error {
	_, err := in.validate()
	return err
}

func (in *IntakeInput) validate() (*validIntake, error) {
	verr := &ValidationError{}
	if in.CustomerID == 0 {
		collectFieldErrors(verr, SectionCustomer, in.Customer)
	}
	device := validateDevice(verr, in.Device)
	collectFieldErrors(verr, SectionInward, in.Inward)

	out := &validIntake{deviceType: device.deviceType, estimatedCost: device.estimatedCost, paymentStatus: PaymentPending}
	if in.Device.PaymentStatus != "" {
		out.paymentStatus = PaymentStatus(in.Device.PaymentStatus)
	}
	if in.Inward.EstimatedDeliveryDate != "" {
		d, err := time.Parse(DateLayout, in.Inward.EstimatedDeliveryDate)
		if err != nil {
			verr.Add(SectionInward, "estimated_delivery_date", "Enter a valid date.")
		}
		out.deliveryDate = d
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

type validDevice struct {
	deviceType    DeviceType
	estimatedCost decimal.Decimal
}

// validateDevice adds device field errors to verr. An unparseable or
// out-of-domain cost is reported as a field error too.
func validateDevice(verr *ValidationError, d DeviceInput) validDevice {
	collectFieldErrors(verr, SectionService, d)
	out := validDevice{deviceType: DeviceType(d.DeviceType)}
	if d.EstimatedCost != "" {
		cost, err := ParseAmount("estimated_cost", string(d.EstimatedCost))
		var amountErr *InvalidAmountError
		if errors.As(err, &amountErr) {
			verr.Add(SectionService, "estimated_cost", amountMessage(amountErr))
		}
		out.estimatedCost = cost
	}
	return out
}

func amountMessage(e *InvalidAmountError) string {
	if e.Reason == "not a number" {
		return "Enter a number."
	}
	return "Invalid amount: " + e.Reason + "."
}

// ExpenseInput records a cost line against a service item.
type ExpenseInput struct {
	ExpenseType string     `json:"expense_type" validate:"required,max=100"`
	Description string     `json:"description" validate:"required"`
	Amount      AmountText `json:"amount" validate:"required"`
	Date        string     `json:"date" validate:"required"`
}

func (in *ExpenseInput) validate() (decimal.Decimal, time.Time, error) {
	in.ExpenseType = strings.TrimSpace(in.ExpenseType)
	in.Description = strings.TrimSpace(in.Description)
	in.Amount = AmountText(strings.TrimSpace(string(in.Amount)))
	in.Date = strings.TrimSpace(in.Date)

	verr := &ValidationError{}
	collectFieldErrors(verr, SectionExpense, *in)
	var date time.Time
	if in.Date != "" {
		d, err := time.Parse(DateLayout, in.Date)
		if err != nil {
			verr.Add(SectionExpense, "date", "Enter a valid date.")
		}
		date = d
	}
	if err := verr.orNil(); err != nil {
		return decimal.Zero, time.Time{}, err
	}

	amount, err := decimal.NewFromString(string(in.Amount))
	if err != nil {
		return decimal.Zero, time.Time{}, &InvalidAmountError{Field: "amount", Value: string(in.Amount), Reason: "not a number"}
	}
	if err := CheckPositiveAmount("amount", amount); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	return amount, date, nil
}

// ManualEntryInput is an ad-hoc ledger entry such as an adjustment.
type ManualEntryInput struct {
	TransactionType string     `json:"transaction_type"`
	Description     string     `json:"description"`
	Amount          AmountText `json:"amount"`
	Notes           string     `json:"notes"`
	CreatedBy       string     `json:"created_by"`
}

// ── validator wiring ─────────────────────────────────────────────────────────

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// collectFieldErrors runs struct-tag validation on v and records failures
// under section.
func collectFieldErrors(verr *ValidationError, section string, v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add(section, "", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(section, fe.Field(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %v is not one of the available choices.", fe.Value())
	}
	return fmt.Sprintf("Failed on %s.", fe.Tag())
}

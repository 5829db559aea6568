package repl

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"repair-desk/internal/core"
)

// formField is one prompt of the intake wizard, bound to a field of the form.
type formField struct {
	label string
	value *string
}

func intakeFields(in *core.IntakeInput) []formField {
	cost := (*string)(&in.Device.EstimatedCost)
	return []formField{
		{"Customer name", &in.Customer.Name},
		{"Phone", &in.Customer.Phone},
		{"Email (optional)", &in.Customer.Email},
		{"Address", &in.Customer.Address},
		{"Device type (laptop/desktop/printer)", &in.Device.DeviceType},
		{"Brand", &in.Device.Brand},
		{"Model", &in.Device.Model},
		{"Serial number (optional)", &in.Device.SerialNumber},
		{"Problem description", &in.Device.ProblemDescription},
		{"Accessories received (optional)", &in.Device.AccessoriesReceived},
		{"Estimated cost", cost},
		{"Received by", &in.Inward.ReceivedBy},
		{"Condition on receipt", &in.Inward.ConditionOnReceipt},
		{"Estimated delivery date (YYYY-MM-DD)", &in.Inward.EstimatedDeliveryDate},
	}
}

// editIntake walks every field. Enter keeps the current value, "-" clears it.
func editIntake(s *session, in *core.IntakeInput) {
	fmt.Fprintln(s.out, "Press Enter to keep a value, '-' to clear it.")
	for _, f := range intakeFields(in) {
		prompt := fmt.Sprintf("  %s", f.label)
		if *f.value != "" {
			prompt += fmt.Sprintf(" [%s]", *f.value)
		}
		answer := s.readLine(prompt + ": ")
		switch answer {
		case "":
		case "-":
			*f.value = ""
		default:
			*f.value = answer
		}
	}
	in.Normalize()
}

// handleReceive runs the intake form interactively without the AI assistant.
// Invalid sections are reported and the operator may edit and resubmit.
func handleReceive(s *session) {
	in := core.IntakeInput{
		Inward: core.InwardInput{
			EstimatedDeliveryDate: time.Now().AddDate(0, 0, 3).Format(core.DateLayout),
		},
	}
	fmt.Fprintln(s.out, "Receiving a device. Type 'cancel' at the confirmation to abort.")
	editIntake(s, &in)

	for {
		printForm(s.out, in)
		choice := strings.ToLower(s.readLine("\nSave? (y = yes, e = edit, cancel): "))
		switch choice {
		case "y", "yes":
			intake, err := s.svc.CreateIntake(s.ctx, in)
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				printValidation(s.out, verr)
				editIntake(s, &in)
				continue
			}
			if err != nil {
				printError(s.out, err)
				return
			}
			printIntake(s.out, intake)
			return
		case "e", "edit":
			editIntake(s, &in)
		default:
			fmt.Fprintln(s.out, "Intake cancelled.")
			return
		}
	}
}

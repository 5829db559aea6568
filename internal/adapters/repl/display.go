package repl

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"repair-desk/internal/ai"
	"repair-desk/internal/core"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  /receive                         fill in the intake form step by step")
	fmt.Fprintln(out, "  /services [--search S] [--status S] [--device-type T] [--page N]")
	fmt.Fprintln(out, "  /show <id>                       full service report")
	fmt.Fprintln(out, "  /status <id> <status>            pending, in_progress, completed, delivered, cancelled")
	fmt.Fprintln(out, "  /cost <id> <amount>              set the actual cost")
	fmt.Fprintln(out, "  /payment <id> <status>           pending, received, partial")
	fmt.Fprintln(out, "  /expense <id> --type T --description \"D\" --amount A")
	fmt.Fprintln(out, "  /ledger [<id>] [--page N]        service ledger, or the shop ledger")
	fmt.Fprintln(out, "  /report <id> --xlsx <path>       export the service report workbook")
	fmt.Fprintln(out, "  /dashboard                       shop overview")
	fmt.Fprintln(out, "  /next-number                     preview the next inward number")
	fmt.Fprintln(out, "  /exit")
	fmt.Fprintln(out, "Anything else is read as a drop-off note, e.g.")
	fmt.Fprintln(out, "  Asha Rao 98765 43210 dropped a Dell Latitude 5520, no display, charger included")
}

func printProposal(out io.Writer, p *ai.IntakeProposal) {
	fmt.Fprintf(out, "\nREASONING:  %s\n", p.Reasoning)
	fmt.Fprintf(out, "CONFIDENCE: %.2f\n", p.Confidence)
	printForm(out, p.IntakeInput())
}

func printForm(out io.Writer, in core.IntakeInput) {
	fmt.Fprintln(out, strings.Repeat("-", 70))
	fmt.Fprintf(out, "  CUSTOMER  %s, %s", in.Customer.Name, in.Customer.Phone)
	if in.Customer.Email != "" {
		fmt.Fprintf(out, ", %s", in.Customer.Email)
	}
	fmt.Fprintf(out, "\n            %s\n", in.Customer.Address)
	fmt.Fprintf(out, "  DEVICE    %s %s %s", in.Device.DeviceType, in.Device.Brand, in.Device.Model)
	if in.Device.SerialNumber != "" {
		fmt.Fprintf(out, " (S/N %s)", in.Device.SerialNumber)
	}
	fmt.Fprintf(out, "\n  PROBLEM   %s\n", in.Device.ProblemDescription)
	if in.Device.AccessoriesReceived != "" {
		fmt.Fprintf(out, "  WITH      %s\n", in.Device.AccessoriesReceived)
	}
	fmt.Fprintf(out, "  ESTIMATE  %s\n", in.Device.EstimatedCost)
	fmt.Fprintf(out, "  RECEIVED  by %s, %s\n", in.Inward.ReceivedBy, in.Inward.ConditionOnReceipt)
	fmt.Fprintf(out, "  DELIVERY  %s\n", in.Inward.EstimatedDeliveryDate)
	fmt.Fprintln(out, strings.Repeat("-", 70))
}

func printIntake(out io.Writer, in *core.Intake) {
	fmt.Fprintf(out, "Device RECEIVED. Inward number %s, service #%d (%s).\n",
		in.Inward.InwardNumber, in.Item.ID, in.Item.Title())
}

func printValidation(out io.Writer, verr *core.ValidationError) {
	fmt.Fprintln(out, verr.Summary())
	byField := verr.ByField()
	keys := make([]string, 0, len(byField))
	for k := range byField {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %s\n", k, strings.Join(byField[k], " "))
	}
}

func printError(out io.Writer, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		printValidation(out, verr)
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}

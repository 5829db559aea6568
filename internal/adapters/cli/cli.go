package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"repair-desk/internal/app"
	"repair-desk/internal/core"

	"github.com/spf13/pflag"
)

// ErrUsage is returned for a malformed command line. The usage text has
// already been written to the output.
var ErrUsage = errors.New("usage error")

// Commands lists the subcommands Run understands.
var Commands = []string{
	"intake", "status", "cost", "payment", "expense", "ledger", "dashboard",
	"services", "report", "seed", "create-admin", "reset-password", "next-number",
}

// Run executes a one-shot CLI command.
// args is os.Args[1:]; the first element is the subcommand name.
// stdin is read by "intake --json".
func Run(ctx context.Context, svc app.ApplicationService, args []string, stdin io.Reader, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "intake":
		return runIntake(ctx, svc, rest, stdin, out)
	case "status":
		return runUpdate(ctx, out, rest, "status <service-id> <status>", svc.UpdateStatus)
	case "cost":
		return runUpdate(ctx, out, rest, "cost <service-id> <amount>", svc.UpdateActualCost)
	case "payment":
		return runUpdate(ctx, out, rest, "payment <service-id> <pending|received|partial>", svc.UpdatePaymentStatus)
	case "expense":
		return runExpense(ctx, svc, rest, out)
	case "ledger":
		return runLedger(ctx, svc, rest, out)
	case "dashboard":
		d, err := svc.GetDashboard(ctx)
		if err != nil {
			return err
		}
		printDashboard(out, d)
		return nil
	case "services":
		return runServices(ctx, svc, rest, out)
	case "report":
		return runReport(ctx, svc, rest, out)
	case "seed":
		res, err := svc.SeedSampleData(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Sample data loaded: %d customers and %d services created, %d services already present.\n",
			res.CustomersCreated, res.ServicesCreated, res.ServicesExisting)
		return nil
	case "create-admin":
		return runCreateAdmin(ctx, svc, rest, out)
	case "reset-password":
		return runResetPassword(ctx, svc, rest, out)
	case "next-number":
		next, err := svc.NextInwardNumber(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, next)
		return nil
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(out, "Unknown command: %s\n", cmd)
		printUsage(out)
		return ErrUsage
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Usage: app <command> [flags]")
	fmt.Fprintln(out, "Commands: "+strings.Join(Commands, ", "))
	fmt.Fprintln(out, "Run 'app <command> --help' for the flags of a command.")
}

func newFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parse parses flags. --help is reported as ErrUsage after the flag listing.
func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ErrUsage
		}
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	return nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// ── Intake ───────────────────────────────────────────────────────────────────

func runIntake(ctx context.Context, svc app.ApplicationService, args []string, stdin io.Reader, out io.Writer) error {
	fs := newFlagSet("intake", out)
	var in core.IntakeInput
	fromJSON := fs.Bool("json", false, "read the intake form as JSON from stdin")
	fs.IntVar(&in.CustomerID, "customer-id", 0, "existing customer ID (skips customer fields)")
	fs.BoolVar(&in.ReuseCustomerByPhone, "reuse-customer", false, "reuse the customer with the same phone number")
	fs.StringVar(&in.Customer.Name, "name", "", "customer name")
	fs.StringVar(&in.Customer.Phone, "phone", "", "customer phone")
	fs.StringVar(&in.Customer.Email, "email", "", "customer email")
	fs.StringVar(&in.Customer.Address, "address", "", "customer address")
	fs.StringVar(&in.Device.DeviceType, "device-type", "", "laptop, desktop or printer")
	fs.StringVar(&in.Device.Brand, "brand", "", "device brand")
	fs.StringVar(&in.Device.Model, "model", "", "device model")
	fs.StringVar(&in.Device.SerialNumber, "serial", "", "serial number")
	fs.StringVar(&in.Device.ProblemDescription, "problem", "", "problem description")
	fs.StringVar(&in.Device.AccessoriesReceived, "accessories", "", "accessories received")
	estimated := fs.String("estimated-cost", "", "estimated cost")
	fs.StringVar(&in.Inward.ReceivedBy, "received-by", "", "staff member receiving the device")
	fs.StringVar(&in.Inward.ConditionOnReceipt, "condition", "", "condition on receipt")
	fs.StringVar(&in.Inward.EstimatedDeliveryDate, "delivery-date", "", "estimated delivery date (YYYY-MM-DD)")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *fromJSON {
		in = core.IntakeInput{}
		if err := json.NewDecoder(stdin).Decode(&in); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		in.ReceivedAt = nil
	} else {
		in.Device.EstimatedCost = core.AmountText(*estimated)
	}

	intake, err := svc.CreateIntake(ctx, in)
	if err != nil {
		return err
	}
	printIntake(out, intake)
	return nil
}

// ── Workflow ─────────────────────────────────────────────────────────────────

func runUpdate(ctx context.Context, out io.Writer, args []string, usage string,
	update func(context.Context, int, string) (*core.ServiceItem, error)) error {
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: app "+usage)
		return ErrUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	item, err := update(ctx, id, args[1])
	if err != nil {
		return err
	}
	printItem(out, item)
	return nil
}

func runExpense(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	fs := newFlagSet("expense", out)
	var in core.ExpenseInput
	fs.StringVar(&in.ExpenseType, "type", "", "expense type, e.g. Parts or Labor")
	fs.StringVar(&in.Description, "description", "", "what the expense was for")
	amount := fs.String("amount", "", "amount")
	fs.StringVar(&in.Date, "date", time.Now().Format(core.DateLayout), "expense date (YYYY-MM-DD)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(out, "Usage: app expense <service-id> --type T --description D --amount A [--date YYYY-MM-DD]")
		return ErrUsage
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	in.Amount = core.AmountText(*amount)

	e, err := svc.AddExpense(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Expense #%d recorded: %s %s %s\n", e.ID, e.ExpenseType, e.Description, core.FormatRupees(e.Amount))
	return nil
}

// ── Reporting ────────────────────────────────────────────────────────────────

// runLedger prints one service's ledger, or the shop ledger when no ID is given.
func runLedger(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	fs := newFlagSet("ledger", out)
	page := fs.Int("page", 1, "page of the shop ledger")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		p, err := svc.ListLedger(ctx, *page)
		if err != nil {
			return err
		}
		printLedger(out, p.Entries)
		fmt.Fprintf(out, "Page %d of %d (%d entries)\n", p.Pagination.Page, p.Pagination.Pages, p.Pagination.Total)
		return nil
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	report, err := svc.GetServiceReport(ctx, id)
	if err != nil {
		return err
	}
	printLedger(out, report.Ledger)
	fmt.Fprintf(out, "Total: %s\n", core.FormatRupees(report.LedgerTotal))
	return nil
}

func runServices(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	fs := newFlagSet("services", out)
	var req app.ServiceListRequest
	fs.StringVar(&req.Search, "search", "", "match customer name, brand, model or serial number")
	fs.StringVar(&req.DeviceType, "device-type", "", "laptop, desktop or printer")
	fs.StringVar(&req.Status, "status", "", "service status")
	fs.StringVar(&req.DateFrom, "from", "", "received on or after (YYYY-MM-DD)")
	fs.StringVar(&req.DateTo, "to", "", "received on or before (YYYY-MM-DD)")
	fs.IntVar(&req.Page, "page", 1, "page number")
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := svc.ListServices(ctx, req)
	if err != nil {
		return err
	}
	printServices(out, p.Services)
	fmt.Fprintf(out, "Page %d of %d (%d services)\n", p.Pagination.Page, p.Pagination.Pages, p.Pagination.Total)
	return nil
}

func runReport(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	fs := newFlagSet("report", out)
	xlsx := fs.String("xlsx", "", "also write the report workbook to this path (a directory gets the default file name)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(out, "Usage: app report <service-id> [--xlsx path]")
		return ErrUsage
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	report, err := svc.GetServiceReport(ctx, id)
	if err != nil {
		return err
	}
	printReport(out, report)

	if *xlsx == "" {
		return nil
	}
	export, err := svc.ExportServiceReport(ctx, id)
	if err != nil {
		return err
	}
	path := *xlsx
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, export.Filename)
	}
	if err := os.WriteFile(path, export.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Report written to %s\n", path)
	return nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func runCreateAdmin(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	fs := newFlagSet("create-admin", out)
	var req app.CreateUserRequest
	fs.StringVar(&req.Username, "username", app.DefaultAdminUsername, "username")
	fs.StringVar(&req.Email, "email", app.DefaultAdminEmail, "email")
	fs.StringVar(&req.Password, "password", app.DefaultAdminPassword, "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := svc.CreateAdminUser(ctx, req)
	if err != nil {
		return err
	}
	if !u.Created {
		fmt.Fprintf(out, "User %s already exists.\n", u.Username)
		return nil
	}
	fmt.Fprintf(out, "Admin user %s created.\n", u.Username)
	if req.Password == app.DefaultAdminPassword {
		fmt.Fprintln(out, "Change the default password with: app reset-password --username "+u.Username+" --password <new>")
	}
	return nil
}

func runResetPassword(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	fs := newFlagSet("reset-password", out)
	username := fs.String("username", app.DefaultAdminUsername, "username")
	password := fs.String("password", "", "new password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *password == "" {
		fmt.Fprintln(out, "Usage: app reset-password --username U --password P")
		return ErrUsage
	}
	if err := svc.ResetPassword(ctx, *username, *password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Password updated for %s.\n", *username)
	return nil
}

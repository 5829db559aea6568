package cli

import (
	"fmt"
	"io"
	"strings"

	"repair-desk/internal/core"
)

const rule = 78

func printIntake(out io.Writer, in *core.Intake) {
	fmt.Fprintln(out, strings.Repeat("=", rule))
	fmt.Fprintf(out, "  Device received. Inward number: %s\n", in.Inward.InwardNumber)
	fmt.Fprintln(out, strings.Repeat("=", rule))
	fmt.Fprintf(out, "  Service ID : %d\n", in.Item.ID)
	fmt.Fprintf(out, "  Device     : %s\n", in.Item.Title())
	fmt.Fprintf(out, "  Customer   : %s (%s)", in.Customer.Name, in.Customer.Phone)
	if !in.CustomerCreated {
		fmt.Fprint(out, " [existing]")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Estimate   : %s\n", core.FormatRupees(in.Item.EstimatedCost))
	fmt.Fprintf(out, "  Delivery   : %s\n", in.Inward.EstimatedDeliveryDate.Format(core.DateLayout))
}

func printItem(out io.Writer, item *core.ServiceItem) {
	fmt.Fprintf(out, "Service #%d %s\n", item.ID, item.Title())
	fmt.Fprintf(out, "  Status: %s  Payment: %s  Estimated: %s  Actual: %s\n",
		item.Status.Label(), item.PaymentStatus.Label(),
		core.FormatRupees(item.EstimatedCost), core.FormatRupees(item.ActualCost))
	if item.CompletedDate != nil {
		fmt.Fprintf(out, "  Completed: %s\n", item.CompletedDate.Format(core.DateLayout))
	}
	if item.DeliveredDate != nil {
		fmt.Fprintf(out, "  Delivered: %s\n", item.DeliveredDate.Format(core.DateLayout))
	}
}

func printDashboard(out io.Writer, d *core.Dashboard) {
	fmt.Fprintln(out, strings.Repeat("=", rule))
	fmt.Fprintln(out, "  DASHBOARD")
	fmt.Fprintln(out, strings.Repeat("=", rule))
	fmt.Fprintf(out, "  Customers       : %d\n", d.TotalCustomers)
	fmt.Fprintf(out, "  Services        : %d\n", d.TotalServices)
	for _, st := range core.ServiceStatuses {
		fmt.Fprintf(out, "    %-14s: %d\n", st.Label(), d.StatusCounts[st])
	}
	fmt.Fprintf(out, "  Total revenue   : %s\n", core.FormatRupees(d.TotalRevenue))
	fmt.Fprintf(out, "  This month      : %s\n", core.FormatRupees(d.MonthRevenue))
	fmt.Fprintf(out, "  Pending amount  : %s\n", core.FormatRupees(d.PendingAmount))
	if len(d.DeviceStats) > 0 {
		fmt.Fprintln(out, "  Devices:")
		for _, ds := range d.DeviceStats {
			fmt.Fprintf(out, "    %-14s: %d\n", ds.DeviceType.Label(), ds.Count)
		}
	}
	if len(d.OverdueServices) > 0 {
		fmt.Fprintln(out, strings.Repeat("-", rule))
		fmt.Fprintln(out, "  OVERDUE")
		printServices(out, d.OverdueServices)
	}
	fmt.Fprintln(out, strings.Repeat("-", rule))
	fmt.Fprintln(out, "  RECENT")
	printServices(out, d.RecentServices)
}

func printServices(out io.Writer, items []core.ServiceItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "  No services found.")
		return
	}
	fmt.Fprintf(out, "  %-5s %-10s %-30s %-20s %-12s %12s\n", "ID", "RECEIVED", "DEVICE", "CUSTOMER", "STATUS", "ACTUAL")
	for _, s := range items {
		fmt.Fprintf(out, "  %-5d %-10s %-30s %-20s %-12s %12s\n",
			s.ID, s.ReceivedDate.Format(core.DateLayout), truncate(s.Title(), 30),
			truncate(s.CustomerName, 20), s.Status.Label(), s.ActualCost.StringFixed(2))
	}
}

func printLedger(out io.Writer, entries []core.LedgerEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "  No ledger entries.")
		return
	}
	fmt.Fprintf(out, "  %-16s %-8s %-18s %-30s %12s  %s\n", "DATE", "SERVICE", "TYPE", "DESCRIPTION", "AMOUNT", "BY")
	for _, e := range entries {
		fmt.Fprintf(out, "  %-16s %-8d %-18s %-30s %12s  %s\n",
			e.Date.Format("2006-01-02 15:04"), e.ServiceItemID, e.TransactionType.Label(),
			truncate(e.Description, 30), e.Amount.StringFixed(2), e.CreatedBy)
	}
}

func printReport(out io.Writer, r *core.ServiceReport) {
	fmt.Fprintln(out, strings.Repeat("=", rule))
	if r.Inward != nil {
		fmt.Fprintf(out, "  SERVICE REPORT %s\n", r.Inward.InwardNumber)
	} else {
		fmt.Fprintf(out, "  SERVICE REPORT #%d\n", r.Item.ID)
	}
	fmt.Fprintln(out, strings.Repeat("=", rule))
	fmt.Fprintf(out, "  Customer : %s, %s\n", r.Customer.Name, r.Customer.Phone)
	printItem(out, r.Item)
	fmt.Fprintf(out, "  Problem  : %s\n", r.Item.ProblemDescription)
	if r.Item.TechnicianNotes != "" {
		fmt.Fprintf(out, "  Notes    : %s\n", r.Item.TechnicianNotes)
	}
	fmt.Fprintln(out, strings.Repeat("-", rule))
	fmt.Fprintln(out, "  LEDGER")
	printLedger(out, r.Ledger)
	fmt.Fprintf(out, "  Ledger total  : %s\n", core.FormatRupees(r.LedgerTotal))
	fmt.Fprintln(out, strings.Repeat("-", rule))
	fmt.Fprintln(out, "  EXPENSES")
	for _, e := range r.Expenses {
		fmt.Fprintf(out, "  %-10s %-12s %-40s %12s\n",
			e.Date.Format(core.DateLayout), truncate(e.ExpenseType, 12), truncate(e.Description, 40), e.Amount.StringFixed(2))
	}
	fmt.Fprintf(out, "  Expense total : %s\n", core.FormatRupees(r.ExpenseTotal))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

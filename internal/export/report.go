// Package export renders service reports as Excel workbooks.
package export

import (
	"bytes"
	"fmt"

	"repair-desk/internal/core"

	"github.com/xuri/excelize/v2"
)

// Sheet names of a service report workbook.
const (
	SheetService  = "Service"
	SheetLedger   = "Ledger"
	SheetExpenses = "Expenses"
)

const timeLayout = "2006-01-02 15:04"

// ServiceReportFilename is the download name for a report, e.g. "service-RDC0007.xlsx".
func ServiceReportFilename(r *core.ServiceReport) string {
	if r.Inward != nil {
		return fmt.Sprintf("service-%s.xlsx", r.Inward.InwardNumber)
	}
	return fmt.Sprintf("service-%d.xlsx", r.Item.ID)
}

// ServiceReportXLSX writes r as a three-sheet workbook: service summary,
// ledger entries oldest first, expenses.
func ServiceReportXLSX(r *core.ServiceReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetService); err != nil {
		return nil, fmt.Errorf("error renaming sheet: %w", err)
	}
	for _, name := range []string{SheetLedger, SheetExpenses} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("error creating sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating header style: %w", err)
	}

	if err := writeSummary(f, r, headerStyle); err != nil {
		return nil, err
	}

	ledgerRows := make([][]any, 0, len(r.Ledger)+1)
	for _, e := range r.Ledger {
		ledgerRows = append(ledgerRows, []any{
			e.Date.Format(timeLayout), e.TransactionType.Label(), e.Description,
			e.Amount.InexactFloat64(), e.Notes, e.CreatedBy,
		})
	}
	ledgerRows = append(ledgerRows, []any{"", "", "Total", r.LedgerTotal.InexactFloat64()})
	if err := writeTable(f, SheetLedger, headerStyle,
		[]string{"Date", "Type", "Description", "Amount", "Notes", "Created By"}, ledgerRows); err != nil {
		return nil, err
	}

	expenseRows := make([][]any, 0, len(r.Expenses)+1)
	for _, e := range r.Expenses {
		expenseRows = append(expenseRows, []any{
			e.Date.Format(core.DateLayout), e.ExpenseType, e.Description, e.Amount.InexactFloat64(),
		})
	}
	expenseRows = append(expenseRows, []any{"", "", "Total", r.ExpenseTotal.InexactFloat64()})
	if err := writeTable(f, SheetExpenses, headerStyle,
		[]string{"Date", "Type", "Description", "Amount"}, expenseRows); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return &buf, nil
}

func writeSummary(f *excelize.File, r *core.ServiceReport, headerStyle int) error {
	item := r.Item
	rows := [][2]any{
		{"Service", item.Title()},
		{"Customer", r.Customer.Name},
		{"Phone", r.Customer.Phone},
		{"Serial Number", item.SerialNumber},
		{"Problem", item.ProblemDescription},
		{"Accessories", item.AccessoriesReceived},
		{"Status", item.Status.Label()},
		{"Payment", item.PaymentStatus.Label()},
		{"Estimated Cost", item.EstimatedCost.InexactFloat64()},
		{"Actual Cost", item.ActualCost.InexactFloat64()},
		{"Received", item.ReceivedDate.Format(timeLayout)},
	}
	if item.CompletedDate != nil {
		rows = append(rows, [2]any{"Completed", item.CompletedDate.Format(timeLayout)})
	}
	if item.DeliveredDate != nil {
		rows = append(rows, [2]any{"Delivered", item.DeliveredDate.Format(timeLayout)})
	}
	if r.Inward != nil {
		rows = append([][2]any{{"Inward Number", r.Inward.InwardNumber}}, rows...)
		rows = append(rows,
			[2]any{"Received By", r.Inward.ReceivedBy},
			[2]any{"Condition", r.Inward.ConditionOnReceipt},
			[2]any{"Estimated Delivery", r.Inward.EstimatedDeliveryDate.Format(core.DateLayout)},
		)
	}
	rows = append(rows, [2]any{"Generated", r.GeneratedAt.Format(timeLayout)})

	for i, kv := range rows {
		row := i + 1
		label, _ := excelize.CoordinatesToCellName(1, row)
		value, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(SheetService, label, kv[0]); err != nil {
			return fmt.Errorf("error writing %s: %w", label, err)
		}
		if err := f.SetCellValue(SheetService, value, kv[1]); err != nil {
			return fmt.Errorf("error writing %s: %w", value, err)
		}
	}
	if err := f.SetColStyle(SheetService, "A", headerStyle); err != nil {
		return fmt.Errorf("error styling summary: %w", err)
	}
	if err := f.SetColWidth(SheetService, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(SheetService, "B", "B", 50)
}

func writeTable(f *excelize.File, sheet string, headerStyle int, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("error writing %s!%s: %w", sheet, cell, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("error styling %s header: %w", sheet, err)
	}
	for r, values := range rows {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("error writing %s!%s: %w", sheet, cell, err)
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", last, 18)
}

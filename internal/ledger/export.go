package ledger

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of an exported workbook
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	headerSheet   = "Header"
	lineItemSheet = "Line Items"
)

var (
	headerColumns = []string{
		"invoice_id", "invoice_number", "invoice_date", "customer_name",
		"customer_address", "subtotal", "tax", "total_amount", "created_at",
	}
	lineItemColumns = []string{
		"invoice_id", "invoice_number", "product_name", "quantity",
		"unit_price", "line_total", "created_at",
	}
)

// Workbook renders an entry as an xlsx file with a Header sheet holding the
// invoice row and a Line Items sheet holding one row per item
func Workbook(entry *Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1
	if err := f.SetSheetName("Sheet1", headerSheet); err != nil {
		return nil, fmt.Errorf("creating header sheet: %w", err)
	}
	if _, err := f.NewSheet(lineItemSheet); err != nil {
		return nil, fmt.Errorf("creating line item sheet: %w", err)
	}

	inv := entry.Invoice
	if err := writeRow(f, headerSheet, 1, toRow(headerColumns)); err != nil {
		return nil, err
	}
	err := writeRow(f, headerSheet, 2, []any{
		entry.ID, inv.InvoiceNumber, inv.InvoiceDate, inv.CustomerName,
		inv.CustomerAddress, inv.Subtotal, inv.Tax, inv.TotalAmount, entry.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := writeRow(f, lineItemSheet, 1, toRow(lineItemColumns)); err != nil {
		return nil, err
	}
	for i, item := range inv.LineItems {
		err := writeRow(f, lineItemSheet, i+2, []any{
			entry.ID, inv.InvoiceNumber, item.ProductName, item.Quantity,
			item.UnitPrice, item.LineTotal, entry.CreatedAt,
		})
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(columns []string) []any {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}

package ledger

import (
	"errors"

	"github.com/zombor/invoice-review/internal/invoice"
)

// CreatedAtLayout is the format of Entry.CreatedAt
const CreatedAtLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned for unknown invoice IDs
var ErrNotFound = errors.New("invoice not found")

// Entry is a saved invoice
type Entry struct {
	ID        string          `json:"invoice_id"`
	CreatedAt string          `json:"created_at"`
	Invoice   invoice.Invoice `json:"invoice"`
}

// Header is the list view of an Entry, one row of the header sheet
type Header struct {
	InvoiceID       string  `json:"invoice_id"`
	InvoiceNumber   string  `json:"invoice_number"`
	InvoiceDate     string  `json:"invoice_date"`
	CustomerName    string  `json:"customer_name"`
	CustomerAddress string  `json:"customer_address"`
	Subtotal        float64 `json:"subtotal"`
	Tax             float64 `json:"tax"`
	TotalAmount     float64 `json:"total_amount"`
	CreatedAt       string  `json:"created_at"`
}

// Header returns the entry's header row
func (e *Entry) Header() Header {
	return Header{
		InvoiceID:       e.ID,
		InvoiceNumber:   e.Invoice.InvoiceNumber,
		InvoiceDate:     e.Invoice.InvoiceDate,
		CustomerName:    e.Invoice.CustomerName,
		CustomerAddress: e.Invoice.CustomerAddress,
		Subtotal:        e.Invoice.Subtotal,
		Tax:             e.Invoice.Tax,
		TotalAmount:     e.Invoice.TotalAmount,
		CreatedAt:       e.CreatedAt,
	}
}

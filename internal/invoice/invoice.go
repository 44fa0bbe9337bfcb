package invoice

import "time"

// DefaultTaxRate is the tax percentage used when none can be inferred
const DefaultTaxRate = 10.0

// LineItem is one product row on an invoice
type LineItem struct {
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"` // round2(quantity * unit_price)
}

// Invoice holds the structured fields extracted from an invoice document
type Invoice struct {
	InvoiceNumber   string     `json:"invoice_number"`
	InvoiceDate     string     `json:"invoice_date"` // free-form, as extracted
	CustomerName    string     `json:"customer_name"`
	CustomerAddress string     `json:"customer_address"`
	Subtotal        float64    `json:"subtotal"`
	Tax             float64    `json:"tax"`
	TotalAmount     float64    `json:"total_amount"`
	LineItems       []LineItem `json:"line_items"`
}

// Record is a saved invoice as listed by the backend
type Record struct {
	InvoiceID     string  `json:"invoice_id"`
	InvoiceNumber string  `json:"invoice_number"`
	CustomerName  string  `json:"customer_name"`
	TotalAmount   float64 `json:"total_amount"`
	CreatedAt     string  `json:"created_at"`
}

// createdAtLayouts are the timestamp layouts accepted for Record.CreatedAt
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CreatedTime parses CreatedAt. ok is false when no known layout matches.
func (r Record) CreatedTime() (t time.Time, ok bool) {
	for _, layout := range createdAtLayouts {
		if parsed, err := time.Parse(layout, r.CreatedAt); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy of the invoice
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.LineItems != nil {
		out.LineItems = make([]LineItem, len(inv.LineItems))
		copy(out.LineItems, inv.LineItems)
	}
	return out
}

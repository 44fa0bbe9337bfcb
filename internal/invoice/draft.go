package invoice

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoDraft is returned when there is no invoice under review
	ErrNoDraft = errors.New("no invoice under review")

	// ErrInvalidEdit is returned when an edit names an unknown field or
	// line item
	ErrInvalidEdit = errors.New("invalid edit")
)

// Header fields editable on a draft
const (
	FieldInvoiceNumber   = "invoice_number"
	FieldInvoiceDate     = "invoice_date"
	FieldCustomerName    = "customer_name"
	FieldCustomerAddress = "customer_address"
)

// Line item fields editable on a draft
const (
	FieldProductName = "product_name"
	FieldQuantity    = "quantity"
	FieldUnitPrice   = "unit_price"
)

// Draft is an invoice under review together with the tax rate used to
// derive its tax and total
type Draft struct {
	Invoice Invoice `json:"invoice"`
	TaxRate float64 `json:"tax_rate"`
}

// NewDraft builds a draft from an extraction payload. Numeric fields are
// coerced, and the tax rate is inferred from the extracted subtotal and tax.
// The extracted totals are kept until the first edit triggers a
// recalculation.
func NewDraft(payload []byte) (*Draft, error) {
	inv, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	rate := InferTaxRate(inv.Subtotal, inv.Tax)
	if math.IsInf(rate, 0) || math.IsNaN(rate) {
		rate = DefaultTaxRate
	}

	return &Draft{Invoice: inv, TaxRate: rate}, nil
}

// SetField edits a header field. No recalculation happens.
func (d *Draft) SetField(field, value string) error {
	switch field {
	case FieldInvoiceNumber:
		d.Invoice.InvoiceNumber = value
	case FieldInvoiceDate:
		d.Invoice.InvoiceDate = value
	case FieldCustomerName:
		d.Invoice.CustomerName = value
	case FieldCustomerAddress:
		d.Invoice.CustomerAddress = value
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidEdit, field)
	}
	return nil
}

// SetLineItem edits one field of the line item at index. Editing the
// quantity or unit price recalculates the whole invoice; editing the
// product name does not. A rejected edit leaves the draft unchanged.
func (d *Draft) SetLineItem(index int, field string, value any) error {
	if index < 0 || index >= len(d.Invoice.LineItems) {
		return fmt.Errorf("%w: line item %d does not exist", ErrInvalidEdit, index)
	}

	switch field {
	case FieldProductName:
		d.Invoice.LineItems[index].ProductName = text(value)
		return nil
	case FieldQuantity, FieldUnitPrice:
		n, err := ParseAmount(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		next := d.Invoice.Clone()
		if field == FieldQuantity {
			next.LineItems[index].Quantity = n
		} else {
			next.LineItems[index].UnitPrice = n
		}
		d.Invoice = Recalculate(next, d.TaxRate)
		return nil
	default:
		return fmt.Errorf("%w: unknown line item field %q", ErrInvalidEdit, field)
	}
}

// SetTaxRate changes the tax rate and recomputes tax and total from the
// current subtotal
func (d *Draft) SetTaxRate(value any) error {
	rate, err := ParseAmount(value)
	if err != nil {
		return fmt.Errorf("tax rate: %w", err)
	}
	d.TaxRate = rate
	d.Invoice = ApplyTaxRate(d.Invoice, rate)
	return nil
}

// AddLineItem appends an empty line item with quantity 1 and recalculates
func (d *Draft) AddLineItem() {
	next := d.Invoice.Clone()
	next.LineItems = append(next.LineItems, LineItem{Quantity: 1})
	d.Invoice = Recalculate(next, d.TaxRate)
}

// RemoveLineItem deletes the line item at index and recalculates
func (d *Draft) RemoveLineItem(index int) error {
	if index < 0 || index >= len(d.Invoice.LineItems) {
		return fmt.Errorf("%w: line item %d does not exist", ErrInvalidEdit, index)
	}
	next := d.Invoice.Clone()
	next.LineItems = append(next.LineItems[:index], next.LineItems[index+1:]...)
	d.Invoice = Recalculate(next, d.TaxRate)
	return nil
}

// Recalculate re-derives all totals from the line items
func (d *Draft) Recalculate() {
	d.Invoice = Recalculate(d.Invoice, d.TaxRate)
}

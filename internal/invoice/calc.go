package invoice

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds to 2 decimal places, halves away from zero
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// LineTotal returns round2(quantity * unitPrice)
func LineTotal(quantity, unitPrice float64) float64 {
	return lineTotal(quantity, unitPrice).InexactFloat64()
}

func lineTotal(quantity, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2)
}

// Recalculate derives every line total, the subtotal, the tax and the total
// from the line items and the tax rate. It returns a new invoice; inv is
// not modified.
func Recalculate(inv Invoice, taxRate float64) Invoice {
	out := inv.Clone()
	if out.LineItems == nil {
		out.LineItems = []LineItem{}
	}

	subtotal := decimal.Zero
	for i := range out.LineItems {
		total := lineTotal(out.LineItems[i].Quantity, out.LineItems[i].UnitPrice)
		out.LineItems[i].LineTotal = total.InexactFloat64()
		subtotal = subtotal.Add(total)
	}

	tax, total := taxAndTotal(subtotal, taxRate)
	out.Subtotal = subtotal.InexactFloat64()
	out.Tax = tax.InexactFloat64()
	out.TotalAmount = total.InexactFloat64()
	return out
}

// ApplyTaxRate recomputes tax and total from the invoice's current subtotal.
// Line items and the subtotal are left as they are.
func ApplyTaxRate(inv Invoice, taxRate float64) Invoice {
	out := inv.Clone()
	tax, total := taxAndTotal(decimal.NewFromFloat(inv.Subtotal), taxRate)
	out.Tax = tax.InexactFloat64()
	out.TotalAmount = total.InexactFloat64()
	return out
}

func taxAndTotal(subtotal decimal.Decimal, taxRate float64) (tax, total decimal.Decimal) {
	tax = subtotal.Mul(decimal.NewFromFloat(taxRate)).Div(hundred).Round(2)
	total = subtotal.Add(tax).Round(2)
	return tax, total
}

// InferTaxRate returns tax/subtotal as a percentage when both are positive,
// DefaultTaxRate otherwise
func InferTaxRate(subtotal, tax float64) float64 {
	if subtotal > 0 && tax > 0 {
		return tax / subtotal * 100
	}
	return DefaultTaxRate
}

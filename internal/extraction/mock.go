package extraction

import (
	"context"

	"github.com/zombor/invoice-review/internal/invoice"
)

// Mock returns the same sample invoice for every document. It stands in for
// a model during local development.
type Mock struct{}

// NewMock creates a new Mock Extractor
func NewMock() *Mock {
	return &Mock{}
}

// Extract returns the sample invoice
func (m *Mock) Extract(ctx context.Context, doc Document) (*invoice.Invoice, error) {
	return &invoice.Invoice{
		InvoiceNumber:   "INV-MOCK-001",
		InvoiceDate:     "2024-12-16",
		CustomerName:    "John Doe Enterprises",
		CustomerAddress: "123 Mock Street, AI City, 90210",
		Subtotal:        1000,
		Tax:             100,
		TotalAmount:     1100,
		LineItems: []invoice.LineItem{
			{ProductName: "AI Consultation Service", Quantity: 10, UnitPrice: 100, LineTotal: 1000},
		},
	}, nil
}

// Close is a no-op
func (m *Mock) Close() error {
	return nil
}

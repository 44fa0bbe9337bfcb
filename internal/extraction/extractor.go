package extraction

import (
	"context"

	"github.com/zombor/invoice-review/internal/invoice"
)

// Document is an uploaded invoice turned into model input. Exactly one of
// Text and Image is set; Image is always PNG.
type Document struct {
	Text  string
	Image []byte
}

// Extractor defines the interface for invoice extraction
type Extractor interface {
	// Extract reads the structured invoice fields out of a document
	Extract(ctx context.Context, doc Document) (*invoice.Invoice, error)
	// Close releases resources
	Close() error
}

package extraction

import (
	"fmt"
	"strings"

	"github.com/zombor/invoice-review/internal/invoice"
)

// parseInvoiceJSON reads the invoice object out of a model reply. Markdown
// fences and text around the object are ignored.
func parseInvoiceJSON(text string) (*invoice.Invoice, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	inv, err := invoice.DecodePayload([]byte(text[startIdx : endIdx+1]))
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = strings.TrimSpace(inv.InvoiceNumber)
	inv.CustomerName = strings.TrimSpace(inv.CustomerName)
	return &inv, nil
}

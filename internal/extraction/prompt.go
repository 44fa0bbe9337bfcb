package extraction

// invoicePrompt is the shared prompt used by all model providers
const invoicePrompt = `You are an expert data extraction assistant. Extract structured data from the provided invoice.
Return ONLY valid JSON. No markdown formatting. No preamble.

Required JSON structure:
{
  "invoice_number": "string",
  "invoice_date": "YYYY-MM-DD",
  "customer_name": "string",
  "customer_address": "string",
  "subtotal": number,
  "tax": number,
  "total_amount": number,
  "line_items": [
    {
      "product_name": "string",
      "quantity": number,
      "unit_price": number,
      "line_total": number
    }
  ]
}

Mapping rules:
- "Invoice No", "Bill No", "Ref No" -> invoice_number
- "Date", "Issued Date" -> invoice_date (convert to YYYY-MM-DD)
- "Billed To", "Client" -> customer_name and customer_address
- "Total", "Grand Total" -> total_amount
- Amounts are numbers, not strings
- If a field is missing, use null`

// textPrompt wraps extracted PDF text for text-only models
func textPrompt(text string) string {
	return invoicePrompt + "\n\nExtract data from this invoice text:\n\n" + text
}

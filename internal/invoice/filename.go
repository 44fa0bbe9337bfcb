package invoice

import (
	"fmt"
	"regexp"
	"time"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ExportFilename returns the download name for an invoice spreadsheet,
// invoice_<number>_<YYYYMMDDHHMMSS>.xlsx, stamped in UTC
func ExportFilename(invoiceNumber string, at time.Time) string {
	number := unsafeFilenameChars.ReplaceAllString(invoiceNumber, "")
	if len(number) > 50 {
		number = number[:50]
	}
	if number == "" {
		number = "UNKNOWN"
	}
	return fmt.Sprintf("invoice_%s_%s.xlsx", number, at.UTC().Format("20060102150405"))
}

package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cast"
)

var (
	// ErrNotANumber is returned when a value cannot be read as a number
	ErrNotANumber = errors.New("not a number")

	// ErrNegative is returned when a number is below zero
	ErrNegative = errors.New("must not be negative")
)

// ParseAmount reads a quantity, price, amount or rate from a loosely typed
// value: JSON numbers, numeric strings and null (which reads as 0).
// Negative and non-finite values are rejected.
func ParseAmount(v any) (float64, error) {
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		v = s
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotANumber, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotANumber, v)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: %v", ErrNegative, v)
	}
	return f, nil
}

// coerceAmount is ParseAmount with parse failures read as 0
func coerceAmount(field string, v any) float64 {
	f, err := ParseAmount(v)
	if err != nil {
		slog.Warn("Coercing invalid number to 0", "field", field, "error", err)
		return 0
	}
	return f
}

// rawLineItem and rawInvoice mirror the extraction payload without
// committing to types for the numeric fields
type rawLineItem struct {
	ProductName any `json:"product_name"`
	Quantity    any `json:"quantity"`
	UnitPrice   any `json:"unit_price"`
	LineTotal   any `json:"line_total"`
}

type rawInvoice struct {
	InvoiceNumber   any           `json:"invoice_number"`
	InvoiceDate     any           `json:"invoice_date"`
	CustomerName    any           `json:"customer_name"`
	CustomerAddress any           `json:"customer_address"`
	Subtotal        any           `json:"subtotal"`
	Tax             any           `json:"tax"`
	TotalAmount     any           `json:"total_amount"`
	LineItems       []rawLineItem `json:"line_items"`
}

// DecodePayload turns a raw extraction payload into an Invoice. Every
// numeric field goes through ParseAmount and falls back to 0 on failure.
// Text fields that are null or missing read as "".
func DecodePayload(payload []byte) (Invoice, error) {
	var raw rawInvoice
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Invoice{}, fmt.Errorf("decoding extraction payload: %w", err)
	}

	inv := Invoice{
		InvoiceNumber:   text(raw.InvoiceNumber),
		InvoiceDate:     text(raw.InvoiceDate),
		CustomerName:    text(raw.CustomerName),
		CustomerAddress: text(raw.CustomerAddress),
		Subtotal:        coerceAmount("subtotal", raw.Subtotal),
		Tax:             coerceAmount("tax", raw.Tax),
		TotalAmount:     coerceAmount("total_amount", raw.TotalAmount),
		LineItems:       make([]LineItem, 0, len(raw.LineItems)),
	}
	for _, item := range raw.LineItems {
		inv.LineItems = append(inv.LineItems, LineItem{
			ProductName: text(item.ProductName),
			Quantity:    coerceAmount("quantity", item.Quantity),
			UnitPrice:   coerceAmount("unit_price", item.UnitPrice),
			LineTotal:   coerceAmount("line_total", item.LineTotal),
		})
	}
	return inv, nil
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

type rawRecord struct {
	InvoiceID     any `json:"invoice_id"`
	InvoiceNumber any `json:"invoice_number"`
	CustomerName  any `json:"customer_name"`
	TotalAmount   any `json:"total_amount"`
	CreatedAt     any `json:"created_at"`
}

// DecodeRecords reads the backend's invoice list. Fields are read as
// loosely as in DecodePayload; unknown fields are ignored.
func DecodeRecords(body []byte) ([]Record, error) {
	var raw []rawRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding invoice list: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		records = append(records, Record{
			InvoiceID:     text(r.InvoiceID),
			InvoiceNumber: text(r.InvoiceNumber),
			CustomerName:  text(r.CustomerName),
			TotalAmount:   coerceAmount("total_amount", r.TotalAmount),
			CreatedAt:     text(r.CreatedAt),
		})
	}
	return records, nil
}

package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zombor/invoice-review/internal/extraction"
	"github.com/zombor/invoice-review/internal/invoice"
)

const (
	maxUploadSize  = 50 << 20
	maxInvoiceSize = 1 << 20
)

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUploadInvoice extracts the fields of an uploaded invoice document
func (s *Server) handleUploadInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	f, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusBadRequest, "Error reading file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	inv, err := s.service.ExtractInvoice(r.Context(), header.Filename, data)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, inv)
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "Unsupported file format.")
	case errors.Is(err, extraction.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Extraction is temporarily unavailable. Please try again later.")
	default:
		slog.Error("Error extracting invoice", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to extract invoice: %v", err))
	}
}

// handleSaveInvoice stores a reviewed invoice
func (s *Server) handleSaveInvoice(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInvoiceSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	inv, err := invoice.DecodePayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice data")
		return
	}

	entry, err := s.service.SaveInvoice(inv)
	if err != nil {
		slog.Error("Error saving invoice", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save invoice")
		return
	}

	slog.Info("Saved invoice", "invoice_id", entry.ID, "invoice_number", entry.Invoice.InvoiceNumber)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Invoice saved successfully!",
		"invoice_id": entry.ID,
	})
}

// handleListInvoices returns the header row of every saved invoice
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	headers, err := s.service.ListInvoices()
	if err != nil {
		slog.Error("Error listing invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list invoices")
		return
	}
	writeJSON(w, http.StatusOK, headers)
}

// handleDownloadInvoice returns a saved invoice as an xlsx workbook
func (s *Server) handleDownloadInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.service.ExportInvoice(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Invoice not found")
			return
		}
		slog.Error("Error exporting invoice", "invoice_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to export invoice")
		return
	}

	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice_%s.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

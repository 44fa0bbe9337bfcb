package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spf13/cast"

	"github.com/zombor/invoice-review/internal/backend"
	"github.com/zombor/invoice-review/internal/invoice"
)

const (
	// maxUploadSize caps an uploaded document (50MB, enough for phone photos)
	maxUploadSize = int64(50 << 20)

	// maxEditSize caps a draft API request body
	maxEditSize = int64(1 << 20)
)

// User-facing messages
const (
	msgNoFile         = "No file was selected. Please choose a file to upload."
	msgTooLarge       = "File is too large. Maximum size is 50MB."
	msgUnsupported    = "Unsupported file type. Please upload a PDF, PNG or JPEG file."
	msgExtractFailed  = "Failed to extract invoice data."
	msgNoDraft        = "No invoice under review"
	msgSaved          = "Invoice Saved Successfully!"
	msgSaveFailed     = "Failed to save invoice."
	msgHistoryFailed  = "Failed to load invoices."
	msgDownloadFailed = "Failed to download Excel file."
	msgInvalidBody    = "Invalid request body"
	msgInternal       = "Internal server error"
)

type uploadPage struct {
	Error string
}

type historyPage struct {
	Error   string
	Records []invoice.Record
}

type editRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// handleIndex renders the upload screen
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.ensureSession(w, r)
	render(w, http.StatusOK, "upload", uploadPage{})
}

// handleUpload forwards a document to the extraction endpoint and moves on
// to the review screen
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := s.ensureSession(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render(w, http.StatusRequestEntityTooLarge, "upload", uploadPage{Error: msgTooLarge})
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			slog.Error("Error parsing multipart form", "error", err)
		}
		render(w, http.StatusBadRequest, "upload", uploadPage{Error: msgNoFile})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		render(w, http.StatusBadRequest, "upload", uploadPage{Error: msgNoFile})
		return
	}
	defer f.Close()

	if header.Size == 0 {
		render(w, http.StatusBadRequest, "upload", uploadPage{Error: msgNoFile})
		return
	}
	if header.Size > maxUploadSize {
		render(w, http.StatusRequestEntityTooLarge, "upload", uploadPage{Error: msgTooLarge})
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		render(w, http.StatusInternalServerError, "upload", uploadPage{Error: msgExtractFailed})
		return
	}

	if err := s.service.Extract(r.Context(), id, header.Filename, data); err != nil {
		slog.Error("Error extracting invoice", "filename", header.Filename, "error", err)
		switch {
		case errors.Is(err, ErrUnsupportedFile):
			render(w, http.StatusUnsupportedMediaType, "upload", uploadPage{Error: msgUnsupported})
		case errors.Is(err, ErrBackend):
			render(w, http.StatusBadGateway, "upload", uploadPage{Error: backend.Message(err, msgExtractFailed)})
		default:
			render(w, http.StatusInternalServerError, "upload", uploadPage{Error: msgExtractFailed})
		}
		return
	}

	http.Redirect(w, r, "/review", http.StatusSeeOther)
}

// handleReview renders the review screen, or sends the browser back to
// upload when there is nothing to review
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	draft, err := s.service.OpenDraft(id)
	if err != nil {
		if !errors.Is(err, invoice.ErrNoDraft) {
			slog.Error("Error opening draft", "session", id, "error", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	render(w, http.StatusOK, "review", draft)
}

// handleGetDraft returns the current draft
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.service.Draft(sessionID(r))
	if err != nil {
		writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// handleEditField edits a header field
func (s *Server) handleEditField(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.editDraft(w, r, func(d *invoice.Draft) error {
		return d.SetField(req.Field, cast.ToString(req.Value))
	})
}

// handleSetTaxRate changes the tax rate
func (s *Server) handleSetTaxRate(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.editDraft(w, r, func(d *invoice.Draft) error {
		return d.SetTaxRate(req.Value)
	})
}

// handleAddItem appends a line item
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, func(d *invoice.Draft) error {
		d.AddLineItem()
		return nil
	})
}

// handleEditItem edits one field of a line item
func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.editDraft(w, r, func(d *invoice.Draft) error {
		index, err := itemIndex(r)
		if err != nil {
			return err
		}
		return d.SetLineItem(index, req.Field, req.Value)
	})
}

// handleRemoveItem removes a line item
func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, func(d *invoice.Draft) error {
		index, err := itemIndex(r)
		if err != nil {
			return err
		}
		return d.RemoveLineItem(index)
	})
}

// handleSave sends the draft to the backend
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := s.service.SaveDraft(r.Context(), id); err != nil {
		if errors.Is(err, ErrBackend) {
			slog.Error("Error saving invoice", "session", id, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": backend.Message(err, msgSaveFailed),
			})
			return
		}
		writeDraftError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":  msgSaved,
		"redirect": "/history",
	})
}

// handleHistory renders every saved invoice, newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.History(r.Context())
	if err != nil {
		slog.Error("Error listing invoices", "error", err)
		render(w, http.StatusBadGateway, "history", historyPage{Error: backend.Message(err, msgHistoryFailed)})
		return
	}
	render(w, http.StatusOK, "history", historyPage{Records: records})
}

// handleDownload streams an invoice's spreadsheet as an attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	export, err := s.service.Export(r.Context(), id, r.URL.Query().Get("number"))
	if err != nil {
		slog.Error("Error downloading invoice", "id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": backend.Message(err, msgDownloadFailed)})
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.Write(export.Data)
}

// handleHealth reports that the server is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// editDraft applies edit to the session's draft and writes the result
func (s *Server) editDraft(w http.ResponseWriter, r *http.Request, edit func(*invoice.Draft) error) {
	draft, err := s.service.EditDraft(sessionID(r), edit)
	if err != nil {
		writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func itemIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: line item %q", invoice.ErrInvalidEdit, raw)
	}
	return index, nil
}

// writeDraftError maps draft errors to their status codes
func writeDraftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoice.ErrNoDraft):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":    msgNoDraft,
			"redirect": "/",
		})
	case errors.Is(err, invoice.ErrInvalidEdit),
		errors.Is(err, invoice.ErrNotANumber),
		errors.Is(err, invoice.ErrNegative):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("Error updating draft", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditSize)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

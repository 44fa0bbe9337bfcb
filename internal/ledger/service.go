package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-review/internal/extraction"
	"github.com/zombor/invoice-review/internal/invoice"
	"github.com/zombor/invoice-review/internal/middleware"
)

// IDGenerator generates unique IDs for invoices
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles invoice extraction and bookkeeping
type Service struct {
	db          DB
	extractor   extraction.Extractor
	storage     Storage
	metrics     *middleware.Metrics
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor extraction.Extractor, storage Storage, metrics *middleware.Metrics) *Service {
	return NewServiceWithDeps(db, extractor, storage, metrics, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, storage Storage, metrics *middleware.Metrics, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		metrics:     metrics,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ExtractInvoice keeps a copy of the upload and reads the invoice fields out
// of it. The copy is removed again when extraction fails.
func (s *Service) ExtractInvoice(ctx context.Context, filename string, data []byte) (*invoice.Invoice, error) {
	doc, err := extraction.Prepare(data)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename))
	saved, err := s.storage.Save(name, data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	start := time.Now()
	inv, err := s.extractor.Extract(ctx, doc)
	s.metrics.ObserveBackend("extract", start, err)
	if err != nil {
		slog.Error("Failed to extract invoice",
			"filename", filename,
			"file_size", len(data),
			"text_layer", doc.Text != "",
			"error", err,
		)
		if delErr := s.storage.Delete(saved); delErr != nil {
			slog.Warn("Failed to delete file", "filename", saved, "error", delErr)
		}
		return nil, fmt.Errorf("extracting invoice: %w", err)
	}
	return inv, nil
}

// SaveInvoice stores a reviewed invoice under a new ID
func (s *Service) SaveInvoice(inv invoice.Invoice) (*Entry, error) {
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		inv.InvoiceNumber = "UNKNOWN"
	}
	if inv.LineItems == nil {
		inv.LineItems = []invoice.LineItem{}
	}

	entry := &Entry{
		ID:        s.idGenerator.Generate(),
		CreatedAt: s.timeSource.Now().Format(CreatedAtLayout),
		Invoice:   inv,
	}
	if err := s.db.SaveEntry(entry); err != nil {
		return nil, fmt.Errorf("saving invoice to database: %w", err)
	}
	return entry, nil
}

// ListInvoices returns the header row of every saved invoice
func (s *Service) ListInvoices() ([]Header, error) {
	entries, err := s.db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	headers := make([]Header, 0, len(entries))
	for _, entry := range entries {
		headers = append(headers, entry.Header())
	}
	return headers, nil
}

// ExportInvoice renders a saved invoice as an xlsx workbook
func (s *Service) ExportInvoice(id string) ([]byte, error) {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	data, err := Workbook(entry)
	if err != nil {
		return nil, fmt.Errorf("exporting invoice: %w", err)
	}
	return data, nil
}

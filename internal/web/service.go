package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/zombor/invoice-review/internal/invoice"
	"github.com/zombor/invoice-review/internal/middleware"
)

var (
	// ErrBackend marks failures of the invoice API, as opposed to local ones
	ErrBackend = errors.New("invoice api")

	// ErrUnsupportedFile is returned for uploads that are not PDF, PNG or JPEG
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// acceptedTypes are the upload types the extractor understands
var acceptedTypes = []string{"application/pdf", "image/png", "image/jpeg"}

// InvoiceAPI is the part of the backend API the screens use
type InvoiceAPI interface {
	ExtractInvoice(ctx context.Context, filename, contentType string, data []byte) ([]byte, error)
	SaveInvoice(ctx context.Context, inv invoice.Invoice) error
	ListInvoices(ctx context.Context) ([]invoice.Record, error)
	DownloadInvoice(ctx context.Context, id string) ([]byte, string, error)
}

// IDGenerator generates session IDs
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

// Service runs the upload, review and history workflows
type Service struct {
	api         InvoiceAPI
	store       Store
	metrics     *middleware.Metrics
	idGenerator IDGenerator
	timeSource  TimeSource
	sessions    *sessionLocks
}

// sessionLocks hands out one mutex per session. A lock is dropped once
// nobody holds or waits for it.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until the session is free and returns the matching unlock
func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}

// NewService creates a new Service with default ID generator and time source
func NewService(api InvoiceAPI, store Store, metrics *middleware.Metrics) *Service {
	return NewServiceWithDeps(api, store, metrics, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(api InvoiceAPI, store Store, metrics *middleware.Metrics, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		api:         api,
		store:       store,
		metrics:     metrics,
		idGenerator: idGen,
		timeSource:  timeSrc,
		sessions:    newSessionLocks(),
	}
}

// NewSessionID returns an ID for a new browser session
func (s *Service) NewSessionID() string {
	return s.idGenerator.Generate()
}

// DetectUploadType sniffs the content type of an upload. It returns
// ErrUnsupportedFile unless the data is a PDF, PNG or JPEG.
func DetectUploadType(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	for _, accepted := range acceptedTypes {
		if mtype.Is(accepted) {
			return accepted, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, mtype.String())
}

// Extract sends an uploaded document to the extraction endpoint and stashes
// the result for the session's next review
func (s *Service) Extract(ctx context.Context, sessionID, filename string, data []byte) error {
	contentType, err := DetectUploadType(data)
	if err != nil {
		return err
	}

	start := time.Now()
	payload, err := s.api.ExtractInvoice(ctx, filename, contentType, data)
	s.metrics.ObserveBackend("upload-invoice", start, err)
	if err != nil {
		return fmt.Errorf("%w: extracting invoice: %w", ErrBackend, err)
	}

	unlock := s.sessions.lock(sessionID)
	defer unlock()
	if err := s.store.PutExtraction(sessionID, payload); err != nil {
		return fmt.Errorf("stashing extraction: %w", err)
	}
	return nil
}

// OpenDraft returns the session's draft. A pending extraction is consumed
// and replaces any earlier draft. Returns invoice.ErrNoDraft when there is
// nothing to review.
func (s *Service) OpenDraft(sessionID string) (*invoice.Draft, error) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	payload, err := s.store.TakeExtraction(sessionID)
	switch {
	case err == nil:
		draft, err := invoice.NewDraft(payload)
		if err != nil {
			return nil, fmt.Errorf("opening draft: %w", err)
		}
		if err := s.store.SaveDraft(sessionID, draft); err != nil {
			return nil, fmt.Errorf("saving draft: %w", err)
		}
		return draft, nil
	case errors.Is(err, ErrNoExtraction):
		return s.store.GetDraft(sessionID)
	default:
		return nil, fmt.Errorf("reading extraction: %w", err)
	}
}

// Draft returns the session's current draft
func (s *Service) Draft(sessionID string) (*invoice.Draft, error) {
	return s.store.GetDraft(sessionID)
}

// EditDraft applies edit to the session's draft and stores the result. When
// edit fails nothing is stored. Edits and saves of one session run one at
// a time.
func (s *Service) EditDraft(sessionID string, edit func(*invoice.Draft) error) (*invoice.Draft, error) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	return s.store.UpdateDraft(sessionID, edit)
}

// SaveDraft posts the session's draft to the save endpoint and discards it
// once the backend accepted it. On failure the draft is kept.
func (s *Service) SaveDraft(ctx context.Context, sessionID string) error {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	draft, err := s.store.GetDraft(sessionID)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.api.SaveInvoice(ctx, draft.Invoice)
	s.metrics.ObserveBackend("save-invoice", start, err)
	if err != nil {
		return fmt.Errorf("%w: saving invoice: %w", ErrBackend, err)
	}

	if err := s.store.DeleteDraft(sessionID); err != nil {
		slog.Warn("Failed to discard saved draft", "session", sessionID, "error", err)
	}
	return nil
}

// History returns every saved invoice, newest first
func (s *Service) History(ctx context.Context) ([]invoice.Record, error) {
	start := time.Now()
	records, err := s.api.ListInvoices(ctx)
	s.metrics.ObserveBackend("list-invoices", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: listing invoices: %w", ErrBackend, err)
	}
	invoice.SortNewestFirst(records)
	return records, nil
}

// Export is a downloadable invoice spreadsheet
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export fetches an invoice's spreadsheet and names it after the invoice
// number and the current time
func (s *Service) Export(ctx context.Context, invoiceID, invoiceNumber string) (*Export, error) {
	start := time.Now()
	data, contentType, err := s.api.DownloadInvoice(ctx, invoiceID)
	s.metrics.ObserveBackend("download-invoice", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading invoice: %w", ErrBackend, err)
	}

	return &Export{
		Filename:    invoice.ExportFilename(invoiceNumber, s.timeSource.Now()),
		ContentType: contentType,
		Data:        data,
	}, nil
}

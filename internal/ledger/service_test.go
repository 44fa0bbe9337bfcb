package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-review/internal/extraction"
	"github.com/zombor/invoice-review/internal/invoice"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// Mock implementations for testing
type mockDB struct {
	entries map[string]*Entry
	saveErr error
	listErr error
}

func newMockDB() *mockDB {
	return &mockDB{entries: make(map[string]*Entry)}
}

func (m *mockDB) SaveEntry(entry *Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockDB) GetEntry(id string) (*Entry, error) {
	entry, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, nil
}

func (m *mockDB) ListEntries() ([]*Entry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, m.entries[id])
	}
	return entries, nil
}

func (m *mockDB) Close() error {
	return nil
}

type mockExtractor struct {
	invoice *invoice.Invoice
	err     error
	docs    []extraction.Document
}

func (m *mockExtractor) Extract(ctx context.Context, doc extraction.Document) (*invoice.Invoice, error) {
	m.docs = append(m.docs, doc)
	if m.err != nil {
		return nil, m.err
	}
	return m.invoice, nil
}

func (m *mockExtractor) Close() error {
	return nil
}

type mockStorage struct {
	files map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(filename string, data []byte) (string, error) {
	m.files[filename] = data
	return filename, nil
}

func (m *mockStorage) Get(name string) ([]byte, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *mockStorage) Delete(name string) error {
	delete(m.files, name)
	return nil
}

type mockIDGenerator struct {
	id string
}

func (m *mockIDGenerator) Generate() string {
	return m.id
}

type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time {
	return m.now
}

var _ = ginkgo.Describe("Service", func() {
	var (
		db        *mockDB
		extractor *mockExtractor
		storage   *mockStorage
		service   *Service
	)

	ginkgo.BeforeEach(func() {
		db = newMockDB()
		extractor = &mockExtractor{invoice: &invoice.Invoice{InvoiceNumber: "INV-1", Subtotal: 10, TotalAmount: 10}}
		storage = newMockStorage()
		service = NewServiceWithDeps(db, extractor, storage, nil,
			&mockIDGenerator{id: "test-id"},
			&mockTimeSource{now: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)},
		)
	})

	ginkgo.Describe("ExtractInvoice", func() {
		var (
			filename string
			data     []byte
			inv      *invoice.Invoice
			err      error
		)

		ginkgo.BeforeEach(func() {
			filename = "My Scan!.PNG"
			data = pngBytes
		})

		ginkgo.JustBeforeEach(func() {
			inv, err = service.ExtractInvoice(context.Background(), filename, data)
		})

		ginkgo.When("extraction succeeds", func() {
			ginkgo.It("returns the invoice", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(inv.InvoiceNumber).To(Equal("INV-1"))
			})

			ginkgo.It("hands the image to the extractor", func() {
				Expect(extractor.docs).To(HaveLen(1))
				Expect(extractor.docs[0].Image).To(Equal(pngBytes))
			})

			ginkgo.It("keeps a copy of the upload under a sanitized name", func() {
				Expect(storage.files).To(HaveKeyWithValue("test-id_My Scan.png", pngBytes))
			})
		})

		ginkgo.When("extraction fails", func() {
			ginkgo.BeforeEach(func() {
				extractor.err = errors.New("model exploded")
			})

			ginkgo.It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("model exploded")))
			})

			ginkgo.It("removes the stored copy", func() {
				Expect(storage.files).To(BeEmpty())
			})
		})

		ginkgo.When("the model is unavailable", func() {
			ginkgo.BeforeEach(func() {
				extractor.err = fmt.Errorf("%w: open", extraction.ErrUnavailable)
			})

			ginkgo.It("keeps the error inspectable", func() {
				Expect(err).To(MatchError(extraction.ErrUnavailable))
			})
		})

		ginkgo.When("the upload is not a document", func() {
			ginkgo.BeforeEach(func() {
				data = []byte("plain text")
			})

			ginkgo.It("returns ErrUnsupportedFormat", func() {
				Expect(err).To(MatchError(extraction.ErrUnsupportedFormat))
			})

			ginkgo.It("does not call the extractor or store anything", func() {
				Expect(extractor.docs).To(BeEmpty())
				Expect(storage.files).To(BeEmpty())
			})
		})
	})

	ginkgo.Describe("SaveInvoice", func() {
		var (
			inv   invoice.Invoice
			entry *Entry
			err   error
		)

		ginkgo.BeforeEach(func() {
			inv = invoice.Invoice{InvoiceNumber: "INV-9", TotalAmount: 27.5}
		})

		ginkgo.JustBeforeEach(func() {
			entry, err = service.SaveInvoice(inv)
		})

		ginkgo.It("stores the invoice under a new ID", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.ID).To(Equal("test-id"))
			Expect(db.entries).To(HaveKey("test-id"))
		})

		ginkgo.It("stamps the creation time", func() {
			Expect(entry.CreatedAt).To(Equal("2024-03-05 14:07:09"))
		})

		ginkgo.It("never stores a nil line item list", func() {
			Expect(entry.Invoice.LineItems).NotTo(BeNil())
		})

		ginkgo.When("the invoice number is blank", func() {
			ginkgo.BeforeEach(func() {
				inv.InvoiceNumber = "  "
			})

			ginkgo.It("uses UNKNOWN", func() {
				Expect(entry.Invoice.InvoiceNumber).To(Equal("UNKNOWN"))
			})
		})

		ginkgo.When("the database fails", func() {
			ginkgo.BeforeEach(func() {
				db.saveErr = errors.New("disk full")
			})

			ginkgo.It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("disk full")))
			})
		})
	})

	ginkgo.Describe("ListInvoices", func() {
		ginkgo.BeforeEach(func() {
			db.entries["a"] = &Entry{ID: "a", CreatedAt: "2024-01-01 10:00:00", Invoice: invoice.Invoice{InvoiceNumber: "INV-1", CustomerName: "Acme", TotalAmount: 5}}
			db.entries["b"] = &Entry{ID: "b", CreatedAt: "2024-02-01 10:00:00", Invoice: invoice.Invoice{InvoiceNumber: "INV-2"}}
		})

		ginkgo.It("returns one header per invoice", func() {
			headers, err := service.ListInvoices()
			Expect(err).NotTo(HaveOccurred())
			Expect(headers).To(HaveLen(2))
			Expect(headers[0]).To(Equal(Header{
				InvoiceID:     "a",
				InvoiceNumber: "INV-1",
				CustomerName:  "Acme",
				TotalAmount:   5,
				CreatedAt:     "2024-01-01 10:00:00",
			}))
		})

		ginkgo.When("the database fails", func() {
			ginkgo.BeforeEach(func() {
				db.listErr = errors.New("corrupt")
			})

			ginkgo.It("returns the error", func() {
				_, err := service.ListInvoices()
				Expect(err).To(MatchError(ContainSubstring("corrupt")))
			})
		})
	})

	ginkgo.Describe("ExportInvoice", func() {
		ginkgo.It("returns a workbook for saved invoices", func() {
			db.entries["a"] = &Entry{ID: "a", Invoice: invoice.Invoice{InvoiceNumber: "INV-1"}}
			data, err := service.ExportInvoice("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data[:2])).To(Equal("PK"))
		})

		ginkgo.It("returns ErrNotFound for unknown IDs", func() {
			_, err := service.ExportInvoice("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})
})

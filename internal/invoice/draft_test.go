package invoice

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Draft", func() {
	var draft *Draft

	BeforeEach(func() {
		var err error
		draft, err = NewDraft([]byte(`{
			"invoice_number": "INV-7",
			"customer_name": "Acme",
			"subtotal": 25,
			"tax": 2.5,
			"total_amount": 27.5,
			"line_items": [
				{"product_name": "Widget", "quantity": 2, "unit_price": 10, "line_total": 20},
				{"product_name": "Gadget", "quantity": 1, "unit_price": 5, "line_total": 5}
			]
		}`))
		Expect(err).NotTo(HaveOccurred())
	})

	expectConsistent := func() {
		inv := draft.Invoice
		for _, item := range inv.LineItems {
			Expect(item.LineTotal).To(Equal(LineTotal(item.Quantity, item.UnitPrice)))
		}
		Expect(inv.Subtotal).To(Equal(sumLineTotals(inv.LineItems)))
		Expect(inv.Tax).To(Equal(Round2(inv.Subtotal * draft.TaxRate / 100)))
		Expect(inv.TotalAmount).To(Equal(Round2(inv.Subtotal + inv.Tax)))
	}

	Describe("NewDraft", func() {
		It("should infer the tax rate from the extracted amounts", func() {
			Expect(draft.TaxRate).To(BeNumerically("~", 10.0, 1e-9))
		})

		It("should keep the extracted totals", func() {
			Expect(draft.Invoice.Subtotal).To(Equal(25.0))
			Expect(draft.Invoice.TotalAmount).To(Equal(27.5))
		})

		When("the extraction has no tax", func() {
			BeforeEach(func() {
				var err error
				draft, err = NewDraft([]byte(`{"subtotal": 100, "tax": 0, "line_items": []}`))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should default the tax rate", func() {
				Expect(draft.TaxRate).To(Equal(DefaultTaxRate))
			})
		})

		When("the payload is not JSON", func() {
			It("returns the error", func() {
				_, err := NewDraft([]byte("<html>"))
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("SetField", func() {
		It("should update only that field", func() {
			before := draft.Invoice
			Expect(draft.SetField(FieldCustomerAddress, "1 Main St")).To(Succeed())
			Expect(draft.Invoice.CustomerAddress).To(Equal("1 Main St"))
			Expect(draft.Invoice.Subtotal).To(Equal(before.Subtotal))
			Expect(draft.Invoice.LineItems).To(Equal(before.LineItems))
		})

		It("should reject unknown fields", func() {
			Expect(draft.SetField("subtotal", "5")).To(MatchError(ErrInvalidEdit))
		})
	})

	Describe("SetLineItem", func() {
		When("the quantity changes", func() {
			BeforeEach(func() {
				Expect(draft.SetLineItem(0, FieldQuantity, "3")).To(Succeed())
			})

			It("should recalculate the line total", func() {
				Expect(draft.Invoice.LineItems[0].LineTotal).To(Equal(30.0))
			})

			It("should recalculate the totals", func() {
				Expect(draft.Invoice.Subtotal).To(Equal(35.0))
				Expect(draft.Invoice.Tax).To(Equal(3.5))
				Expect(draft.Invoice.TotalAmount).To(Equal(38.5))
			})

			It("should keep the invariant", expectConsistent)
		})

		When("the unit price changes", func() {
			BeforeEach(func() {
				Expect(draft.SetLineItem(1, FieldUnitPrice, 4.99)).To(Succeed())
			})

			It("should recalculate the line total", func() {
				Expect(draft.Invoice.LineItems[1].LineTotal).To(Equal(4.99))
			})

			It("should keep the invariant", expectConsistent)
		})

		When("the product name changes", func() {
			BeforeEach(func() {
				draft.Invoice.Subtotal = 999
				Expect(draft.SetLineItem(0, FieldProductName, "Sprocket")).To(Succeed())
			})

			It("should update the name", func() {
				Expect(draft.Invoice.LineItems[0].ProductName).To(Equal("Sprocket"))
			})

			It("should not recalculate", func() {
				Expect(draft.Invoice.Subtotal).To(Equal(999.0))
			})
		})

		When("the value is negative", func() {
			var (
				before Invoice
				err    error
			)

			BeforeEach(func() {
				before = draft.Invoice.Clone()
				err = draft.SetLineItem(0, FieldQuantity, "-2")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ErrNegative))
			})

			It("should leave the draft unchanged", func() {
				Expect(draft.Invoice).To(Equal(before))
			})
		})

		When("the value is not a number", func() {
			It("returns the error", func() {
				Expect(draft.SetLineItem(0, FieldUnitPrice, "ten")).To(MatchError(ErrNotANumber))
			})
		})

		When("the index is out of range", func() {
			It("returns the error", func() {
				Expect(draft.SetLineItem(2, FieldQuantity, 1)).To(MatchError(ErrInvalidEdit))
				Expect(draft.SetLineItem(-1, FieldQuantity, 1)).To(MatchError(ErrInvalidEdit))
			})
		})

		When("the field is unknown", func() {
			It("returns the error", func() {
				Expect(draft.SetLineItem(0, "line_total", 1)).To(MatchError(ErrInvalidEdit))
			})
		})
	})

	Describe("SetTaxRate", func() {
		var before Invoice

		BeforeEach(func() {
			before = draft.Invoice.Clone()
			Expect(draft.SetTaxRate("20")).To(Succeed())
		})

		It("should store the rate", func() {
			Expect(draft.TaxRate).To(Equal(20.0))
		})

		It("should recompute tax and total", func() {
			Expect(draft.Invoice.Tax).To(Equal(5.0))
			Expect(draft.Invoice.TotalAmount).To(Equal(30.0))
		})

		It("should leave subtotal and line items unchanged", func() {
			Expect(draft.Invoice.Subtotal).To(Equal(before.Subtotal))
			Expect(draft.Invoice.LineItems).To(Equal(before.LineItems))
		})

		It("should reject a negative rate", func() {
			Expect(draft.SetTaxRate(-5)).To(MatchError(ErrNegative))
			Expect(draft.TaxRate).To(Equal(20.0))
		})
	})

	Describe("AddLineItem", func() {
		BeforeEach(func() {
			draft.AddLineItem()
		})

		It("should append an empty item with quantity 1", func() {
			Expect(draft.Invoice.LineItems).To(HaveLen(3))
			Expect(draft.Invoice.LineItems[2]).To(Equal(LineItem{Quantity: 1}))
		})

		It("should keep the invariant", expectConsistent)
	})

	Describe("RemoveLineItem", func() {
		When("removing the first item", func() {
			BeforeEach(func() {
				Expect(draft.RemoveLineItem(0)).To(Succeed())
			})

			It("should drop it", func() {
				Expect(draft.Invoice.LineItems).To(HaveLen(1))
				Expect(draft.Invoice.LineItems[0].ProductName).To(Equal("Gadget"))
			})

			It("should recalculate the totals", func() {
				Expect(draft.Invoice.Subtotal).To(Equal(5.0))
				Expect(draft.Invoice.Tax).To(Equal(0.5))
				Expect(draft.Invoice.TotalAmount).To(Equal(5.5))
			})
		})

		When("removing the only item", func() {
			BeforeEach(func() {
				Expect(draft.RemoveLineItem(1)).To(Succeed())
				Expect(draft.RemoveLineItem(0)).To(Succeed())
			})

			It("should zero every total", func() {
				Expect(draft.Invoice.Subtotal).To(BeZero())
				Expect(draft.Invoice.Tax).To(BeZero())
				Expect(draft.Invoice.TotalAmount).To(BeZero())
			})

			It("should leave an empty line item list", func() {
				Expect(draft.Invoice.LineItems).To(BeEmpty())
			})
		})

		When("the index is out of range", func() {
			It("returns the error", func() {
				Expect(draft.RemoveLineItem(5)).To(MatchError(ErrInvalidEdit))
				Expect(draft.Invoice.LineItems).To(HaveLen(2))
			})
		})
	})
})

var _ = Describe("SortNewestFirst", func() {
	It("should put the most recent record first", func() {
		records := []Record{
			{InvoiceID: "jan", CreatedAt: "2024-01-01"},
			{InvoiceID: "jun", CreatedAt: "2024-06-01"},
		}
		SortNewestFirst(records)
		Expect(records[0].InvoiceID).To(Equal("jun"))
		Expect(records[1].InvoiceID).To(Equal("jan"))
	})

	It("should compare mixed layouts", func() {
		records := []Record{
			{InvoiceID: "a", CreatedAt: "2024-03-01 09:00:00"},
			{InvoiceID: "b", CreatedAt: "2024-03-01T10:00:00Z"},
			{InvoiceID: "c", CreatedAt: "2024-02-28"},
		}
		SortNewestFirst(records)
		Expect([]string{records[0].InvoiceID, records[1].InvoiceID, records[2].InvoiceID}).To(Equal([]string{"b", "a", "c"}))
	})

	It("should put unreadable timestamps last", func() {
		records := []Record{
			{InvoiceID: "bad", CreatedAt: "yesterday"},
			{InvoiceID: "ok", CreatedAt: "2023-01-01"},
		}
		SortNewestFirst(records)
		Expect(records[0].InvoiceID).To(Equal("ok"))
	})
})

var _ = Describe("ExportFilename", func() {
	at := time.Date(2024, 6, 1, 14, 5, 9, 0, time.UTC)

	It("should embed the invoice number and a compact timestamp", func() {
		Expect(ExportFilename("INV-001", at)).To(Equal("invoice_INV-001_20240601140509.xlsx"))
	})

	It("should stamp the time in UTC", func() {
		local := at.In(time.FixedZone("UTC+2", 2*60*60))
		Expect(ExportFilename("INV-001", local)).To(Equal("invoice_INV-001_20240601140509.xlsx"))
	})

	It("should strip characters unsafe in a filename", func() {
		Expect(ExportFilename(`INV/12"3`, at)).To(Equal("invoice_INV123_20240601140509.xlsx"))
	})

	It("should fall back when nothing is left", func() {
		Expect(ExportFilename("///", at)).To(Equal("invoice_UNKNOWN_20240601140509.xlsx"))
	})
})

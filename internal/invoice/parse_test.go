package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseAmount", func() {
	DescribeTable("accepts numbers, numeric strings and null",
		func(in any, want float64) {
			got, err := ParseAmount(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("float", 12.5, 12.5),
		Entry("int", 3, 3.0),
		Entry("numeric string", "1000.00", 1000.0),
		Entry("padded string", "  7 ", 7.0),
		Entry("empty string", "", 0.0),
		Entry("null", nil, 0.0),
	)

	DescribeTable("rejects values that are not numbers",
		func(in any) {
			_, err := ParseAmount(in)
			Expect(err).To(MatchError(ErrNotANumber))
		},
		Entry("word", "abc"),
		Entry("currency symbol", "$12"),
		Entry("object", map[string]any{"value": 1}),
		Entry("list", []any{1}),
	)

	It("rejects negative numbers", func() {
		_, err := ParseAmount(-1.0)
		Expect(err).To(MatchError(ErrNegative))
	})

	It("rejects negative numeric strings", func() {
		_, err := ParseAmount("-0.5")
		Expect(err).To(MatchError(ErrNegative))
	})
})

var _ = Describe("DecodePayload", func() {
	var (
		payload string
		inv     Invoice
		err     error
	)

	JustBeforeEach(func() {
		inv, err = DecodePayload([]byte(payload))
	})

	When("the payload is well typed", func() {
		BeforeEach(func() {
			payload = `{
				"invoice_number": "INV-MOCK-001",
				"invoice_date": "2024-12-16",
				"customer_name": "John Doe Enterprises",
				"customer_address": "123 Mock Street",
				"subtotal": 1000.00,
				"tax": 100.00,
				"total_amount": 1100.00,
				"line_items": [
					{"product_name": "AI Consultation Service", "quantity": 10, "unit_price": 100.00, "line_total": 1000.00}
				]
			}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read the header fields", func() {
			Expect(inv.InvoiceNumber).To(Equal("INV-MOCK-001"))
			Expect(inv.InvoiceDate).To(Equal("2024-12-16"))
			Expect(inv.CustomerName).To(Equal("John Doe Enterprises"))
			Expect(inv.CustomerAddress).To(Equal("123 Mock Street"))
		})

		It("should read the amounts", func() {
			Expect(inv.Subtotal).To(Equal(1000.0))
			Expect(inv.Tax).To(Equal(100.0))
			Expect(inv.TotalAmount).To(Equal(1100.0))
		})

		It("should read the line items", func() {
			Expect(inv.LineItems).To(Equal([]LineItem{
				{ProductName: "AI Consultation Service", Quantity: 10, UnitPrice: 100, LineTotal: 1000},
			}))
		})
	})

	When("numeric fields are strings, nulls or garbage", func() {
		BeforeEach(func() {
			payload = `{
				"invoice_number": null,
				"subtotal": "250.50",
				"tax": null,
				"total_amount": "n/a",
				"line_items": [
					{"product_name": null, "quantity": "2", "unit_price": "oops", "line_total": -3}
				]
			}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse numeric strings", func() {
			Expect(inv.Subtotal).To(Equal(250.5))
			Expect(inv.LineItems[0].Quantity).To(Equal(2.0))
		})

		It("should coerce unreadable numbers to 0", func() {
			Expect(inv.Tax).To(BeZero())
			Expect(inv.TotalAmount).To(BeZero())
			Expect(inv.LineItems[0].UnitPrice).To(BeZero())
		})

		It("should coerce negative numbers to 0", func() {
			Expect(inv.LineItems[0].LineTotal).To(BeZero())
		})

		It("should read null text as empty", func() {
			Expect(inv.InvoiceNumber).To(BeEmpty())
			Expect(inv.LineItems[0].ProductName).To(BeEmpty())
		})
	})

	When("the invoice number is numeric", func() {
		BeforeEach(func() {
			payload = `{"invoice_number": 1042}`
		})

		It("should read it as text", func() {
			Expect(inv.InvoiceNumber).To(Equal("1042"))
		})

		It("should default to no line items", func() {
			Expect(inv.LineItems).To(BeEmpty())
		})
	})

	When("the payload is not JSON", func() {
		BeforeEach(func() {
			payload = `not json`
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("decoding extraction payload"))
		})
	})
})

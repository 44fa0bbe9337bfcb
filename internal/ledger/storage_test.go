package ledger

import (
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage *LocalStorage
	)

	ginkgo.BeforeEach(func() {
		tmpDir = ginkgo.GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.It("creates the storage directory", func() {
		info, err := os.Stat(filepath.Join(tmpDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	ginkgo.Describe("Save", func() {
		ginkgo.It("writes the file and returns its name", func() {
			name, err := storage.Save("scan.pdf", []byte("data"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("scan.pdf"))

			data, err := storage.Get(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("data"))
		})

		ginkgo.It("stays inside the storage directory", func() {
			name, err := storage.Save("../../escape.pdf", []byte("data"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("escape.pdf"))
			Expect(filepath.Join(tmpDir, "uploads", "escape.pdf")).To(BeARegularFile())
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("removes the file", func() {
			name, err := storage.Save("scan.pdf", []byte("data"))
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.Delete(name)).To(Succeed())

			_, err = storage.Get(name)
			Expect(err).To(HaveOccurred())
		})

		ginkgo.It("returns an error for missing files", func() {
			Expect(storage.Delete("missing.pdf")).NotTo(Succeed())
		})
	})
})

var _ = ginkgo.Describe("sanitizeFilename", func() {
	ginkgo.DescribeTable("cleans upload names",
		func(in, out string) {
			Expect(sanitizeFilename(in)).To(Equal(out))
		},
		ginkgo.Entry("plain name", "invoice.pdf", "invoice.pdf"),
		ginkgo.Entry("lowercases the extension", "Scan 01.PDF", "Scan 01.pdf"),
		ginkgo.Entry("drops unsafe characters", "in$voice#(1).png", "invoice1.png"),
		ginkgo.Entry("collapses whitespace", "my   big\tinvoice.jpg", "my big invoice.jpg"),
		ginkgo.Entry("falls back when nothing is left", "$$$.pdf", "invoice.pdf"),
		ginkgo.Entry("keeps names without extension", "invoice", "invoice"),
		ginkgo.Entry("strips directories", "../../etc/passwd", "passwd"),
	)

	ginkgo.It("caps the base name at 50 characters", func() {
		long := "a"
		for len(long) < 80 {
			long += "a"
		}
		Expect(sanitizeFilename(long + ".pdf")).To(HaveLen(54))
	})
})

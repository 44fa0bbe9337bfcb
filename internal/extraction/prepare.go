package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for uploads that are neither a PDF nor
// an image
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Prepare turns an upload into model input. PDFs with a text layer become
// text; scanned PDFs and images become PNG.
func Prepare(data []byte) (Document, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("application/pdf"):
		text, err := pdfText(data)
		if err == nil && strings.TrimSpace(text) != "" {
			return Document{Text: text}, nil
		}
		if err != nil {
			slog.Debug("Reading PDF text failed, rendering page instead", "error", err)
		}
		img, err := pdfToImage(data)
		if err != nil {
			return Document{}, fmt.Errorf("converting PDF to image: %w", err)
		}
		return Document{Image: img}, nil
	case mtype.Is("image/png"):
		return Document{Image: data}, nil
	case mtype.Is("image/jpeg"), mtype.Is("image/gif"), mtype.Is("image/heic"), mtype.Is("image/heif"):
		img, err := imageToPNG(data, mtype.String())
		if err != nil {
			return Document{}, fmt.Errorf("converting image to PNG: %w", err)
		}
		return Document{Image: img}, nil
	default:
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mtype.String())
	}
}

// pdfText reads the text layer of every page, one line per text row
func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
				sb.WriteString(" ")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// pdfToImage renders the first page of a PDF as PNG
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// imageToPNG re-encodes a JPEG, GIF or HEIC image as PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if mimeType == "image/heic" || mimeType == "image/heif" {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/zombor/invoice-review/internal/invoice"
)

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// Client talks to the invoice API server
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the API server at baseURL. A timeout of
// zero means requests only end with their context.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https: %q", baseURL)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// ExtractInvoice uploads a document to /upload-invoice and returns the
// extraction result exactly as the server sent it
func (c *Client) ExtractInvoice(ctx context.Context, filename, contentType string, data []byte) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	resp, err := c.do(ctx, "upload-invoice", http.MethodPost, "/upload-invoice", writer.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading extraction result: %w", err)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("extraction result is not JSON")
	}
	return payload, nil
}

// SaveInvoice posts a reviewed invoice to /save-invoice
func (c *Client) SaveInvoice(ctx context.Context, inv invoice.Invoice) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshaling invoice: %w", err)
	}

	resp, err := c.do(ctx, "save-invoice", http.MethodPost, "/save-invoice", "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ListInvoices fetches every saved invoice from /invoices, in the order the
// server returned them
func (c *Client) ListInvoices(ctx context.Context) ([]invoice.Record, error) {
	resp, err := c.do(ctx, "list-invoices", http.MethodGet, "/invoices", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading invoice list: %w", err)
	}
	return invoice.DecodeRecords(body)
}

// DownloadInvoice fetches the spreadsheet export of one invoice and returns
// its bytes and content type
func (c *Client) DownloadInvoice(ctx context.Context, id string) ([]byte, string, error) {
	path := "/invoice/" + url.PathEscape(id) + "/download"
	resp, err := c.do(ctx, "download-invoice", http.MethodGet, path, "", nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading invoice export: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return data, contentType, nil
}

// do sends one request. Non-2xx responses are returned as *APIError with
// the body closed; on success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, operation, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}
	return resp, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

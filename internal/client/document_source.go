package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

const maxDocumentBytes = 32 << 20

// DocumentSource turns a document URL into something the vision model can
// read: blob URLs get a SAS token, PDFs are rendered to a JPEG data URL.
type DocumentSource struct {
	http     *http.Client
	sasToken string
	dpi      float64
}

// NewDocumentSource creates a new DocumentSource. dpi is the render
// resolution for PDF pages; 144 is twice the native resolution.
func NewDocumentSource(httpClient *http.Client, sasToken string, dpi float64) *DocumentSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if dpi <= 0 {
		dpi = 144
	}
	return &DocumentSource{http: httpClient, sasToken: sasToken, dpi: dpi}
}

// Materialize returns a URL the vision model can fetch directly.
func (s *DocumentSource) Materialize(ctx context.Context, documentURL string) (string, error) {
	signed := WithSAS(documentURL, s.sasToken)
	if !isPDF(signed) {
		return signed, nil
	}
	return s.renderFirstPage(ctx, signed)
}

// WithSAS makes sure an Azure Blob Storage URL carries a SAS token. URLs that
// already carry one keep it; other hosts are returned unchanged.
func WithSAS(rawURL, sasToken string) string {
	if !strings.Contains(rawURL, "blob.core.windows.net") {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	signed := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawPath: u.RawPath}
	if strings.Contains(u.RawQuery, "sig=") || strings.Contains(u.RawQuery, "sv=") {
		signed.RawQuery = u.RawQuery
		signed.Fragment = u.Fragment
		return signed.String()
	}

	token := strings.TrimLeft(sasToken, "?&")
	if token == "" {
		return rawURL
	}
	signed.RawQuery = token
	return signed.String()
}

func isPDF(rawURL string) bool {
	path, _, _ := strings.Cut(rawURL, "?")
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}

func (s *DocumentSource) renderFirstPage(ctx context.Context, pdfURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid document url")
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUnavailable, "failed to download document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrCodeUnavailable, fmt.Sprintf("document download returned status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUnavailable, "failed to read document")
	}

	return RenderPDFPage(data, s.dpi)
}

// RenderPDFPage renders the first page of a PDF as a JPEG data URL.
func RenderPDFPage(data []byte, dpi float64) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to open pdf")
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "empty pdf document")
	}

	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to render pdf page")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to encode page image")
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

func TestWithSAS(t *testing.T) {
	const sas = "?sv=2024-01-01&sig=abc"

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "non-blob url untouched",
			url:  "https://example.com/doc.png",
			want: "https://example.com/doc.png",
		},
		{
			name: "token appended",
			url:  "https://acct.blob.core.windows.net/claims/doc.png",
			want: "https://acct.blob.core.windows.net/claims/doc.png?sv=2024-01-01&sig=abc",
		},
		{
			name: "existing token kept",
			url:  "https://acct.blob.core.windows.net/claims/doc.png?sv=2020&sig=old",
			want: "https://acct.blob.core.windows.net/claims/doc.png?sv=2020&sig=old",
		},
		{
			name: "unrelated query replaced",
			url:  "https://acct.blob.core.windows.net/claims/doc.png?download=1",
			want: "https://acct.blob.core.windows.net/claims/doc.png?sv=2024-01-01&sig=abc",
		},
		{
			name: "path re-encoded",
			url:  "https://acct.blob.core.windows.net/claims/death cert.pdf",
			want: "https://acct.blob.core.windows.net/claims/death%20cert.pdf?sv=2024-01-01&sig=abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithSAS(tt.url, sas))
		})
	}

	assert.Equal(t, "https://acct.blob.core.windows.net/c/d.png", WithSAS("https://acct.blob.core.windows.net/c/d.png", ""))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("https://x/doc.PDF"))
	assert.True(t, isPDF("https://x/doc.pdf?sv=1&sig=2"))
	assert.False(t, isPDF("https://x/doc.png"))
	assert.False(t, isPDF("https://x/pdf?name=a.png"))
}

func TestDocumentSource_ImagePassThrough(t *testing.T) {
	src := NewDocumentSource(nil, "sv=1&sig=2", 0)

	got, err := src.Materialize(context.Background(), "https://acct.blob.core.windows.net/c/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://acct.blob.core.windows.net/c/photo.jpg?sv=1&sig=2", got)
}

func TestDocumentSource_PDFDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	src := NewDocumentSource(server.Client(), "", 144)

	_, err := src.Materialize(context.Background(), server.URL+"/missing.pdf")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnavailable, errors.CodeOf(err))
}

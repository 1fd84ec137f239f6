// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package limits

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ieee-docgen/internal/apierr"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

func small() *Validator {
	return New(types.LimitsConfig{DOCX: 100, PDF: 1 << 20, Image: 50, Text: 10, JSON: 10, MaxResponseBytes: 200})
}

func twoPagePDF(t *testing.T) []byte {
	t.Helper()
	f := gofpdf.New("P", "pt", "Letter", "")
	f.SetFont("Times", "", 12)
	for i := 0; i < 2; i++ {
		f.AddPage()
		f.Cell(100, 14, "page")
	}
	var buf bytes.Buffer
	require.NoError(t, f.Output(&buf))
	return buf.Bytes()
}

func TestLimit(t *testing.T) {
	v := small()
	assert.Equal(t, int64(100), v.Limit("docx"))
	assert.Equal(t, int64(100), v.Limit("DOCX"))
	assert.Equal(t, int64(100), v.Limit("unknown"), "unknown kinds get half the response limit")

	def := New(types.LimitsConfig{})
	assert.Equal(t, int64(25<<20), def.Limit(KindPDF))
	assert.Equal(t, int64(50<<20), def.Info().MaxResponseBytes)
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		n       int64
		valid   bool
		errPart string
	}{
		{"within limit", KindDOCX, 50, true, ""},
		{"at limit", KindDOCX, 100, true, ""},
		{"over kind limit", KindImage, 51, false, "exceeds limit 50 bytes for type image"},
		{"over response limit", KindPDF, 201, false, "exceeds response limit 200 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := small().ValidateSize(tt.kind, tt.n)
			assert.Equal(t, tt.valid, r.Valid)
			if tt.valid {
				require.NoError(t, err)
				assert.InDelta(t, float64(tt.n)/float64(r.Limit)*100, r.Utilization, 0.001)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, &apierr.Error{Type: apierr.FileSize})
			assert.Contains(t, r.Error, tt.errPart)
		})
	}
}

func TestValidateBase64(t *testing.T) {
	v := small()

	r, data, err := v.ValidateBase64(KindText, base64.StdEncoding.EncodeToString([]byte("hello")))
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, []byte("hello"), data)

	// Rejected on the estimate alone, before decoding.
	r, _, err = v.ValidateBase64(KindText, strings.Repeat("!", 40))
	assert.ErrorIs(t, err, &apierr.Error{Type: apierr.FileSize})
	assert.Equal(t, int64(30), r.EstimatedSize)

	_, _, err = v.ValidateBase64(KindDOCX, "not base64!")
	assert.ErrorIs(t, err, &apierr.Error{Type: apierr.Validation})
}

func TestValidateBase64PDF(t *testing.T) {
	v := New(types.LimitsConfig{})
	r, _, err := v.ValidateBase64(KindPDF, base64.StdEncoding.EncodeToString(twoPagePDF(t)))
	require.NoError(t, err)
	assert.Equal(t, 2, r.PageCount)

	_, _, err = v.ValidateBase64(KindPDF, base64.StdEncoding.EncodeToString([]byte("plain text")))
	assert.ErrorIs(t, err, ErrInvalidPDF)
	assert.ErrorIs(t, err, &apierr.Error{Type: apierr.Validation})
}

func TestValidateRequest(t *testing.T) {
	v := small()
	assert.NoError(t, v.ValidateRequest(200))
	err := v.ValidateRequest(201)
	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 413, e.Status)
}

func TestInspectPDF(t *testing.T) {
	n, err := InspectPDF(twoPagePDF(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = InspectPDF([]byte("%PDF-1.4 truncated"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

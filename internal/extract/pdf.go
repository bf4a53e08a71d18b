package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDF validates a PDF with pdfcpu and reads its text layer.
type PDF struct {
	conf *model.Configuration
}

// NewPDF creates a PDF extractor that never touches the pdfcpu config directory.
func NewPDF() *PDF {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDF{conf: conf}
}

// Extract returns the text and page count of a PDF.
func (p *PDF) Extract(ctx context.Context, data []byte) (Document, error) {
	pages, err := api.PageCount(bytes.NewReader(data), p.conf)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	text, err := plainText(data)
	if err != nil {
		return Document{Pages: &pages}, err
	}
	return Document{Text: text, Pages: &pages}, nil
}

func plainText(data []byte) (text string, err error) {
	// The text reader panics on some malformed font tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: read text: %v", ErrInvalidDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read text: %v", ErrInvalidDocument, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: read text: %v", ErrInvalidDocument, err)
	}
	return buf.String(), nil
}

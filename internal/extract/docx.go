package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxDocumentXML caps the decompressed size of word/document.xml.
const DefaultMaxDocumentXML = 64 << 20

// DOCX reads the text of a Word document.
type DOCX struct {
	// MaxDocumentXML is the largest decompressed document.xml accepted.
	// Zero means DefaultMaxDocumentXML.
	MaxDocumentXML int64
}

func (d DOCX) limit() int64 {
	if d.MaxDocumentXML > 0 {
		return d.MaxDocumentXML
	}
	return DefaultMaxDocumentXML
}

// Extract returns the text of every w:t element in word/document.xml, including
// tables, text boxes and other nested content. Paragraphs are separated by newlines.
func (d DOCX) Extract(_ context.Context, data []byte) (Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		content, err := d.readEntry(f)
		if err != nil {
			return Document{}, err
		}
		text, err := docxText(content)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return Document{Text: text}, nil
	}

	return Document{}, fmt.Errorf("%w: missing word/document.xml", ErrInvalidDocument)
}

// readEntry decompresses f, refusing entries larger than the limit whatever the
// header claims.
func (d DOCX) readEntry(f *zip.File) ([]byte, error) {
	limit := d.limit()
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: document.xml exceeds %d bytes", ErrInvalidDocument, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: document.xml exceeds %d bytes", ErrInvalidDocument, limit)
	}
	return content, nil
}

// docxText walks the WordprocessingML tokens and collects run text.
func docxText(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte(' ')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

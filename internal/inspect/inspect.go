// Package inspect looks at a local document before it is uploaded: its
// format, size, page count and whether it carries extractable text.
package inspect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Format enumerates the document formats inspect recognizes.
type Format string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown Format = ""
	// FormatPDF represents PDF documents.
	FormatPDF Format = "pdf"
)

// ErrUnsupported is returned for files inspect cannot read.
var ErrUnsupported = errors.New("unsupported document format")

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// previewRunes caps Report.Preview.
const previewRunes = 80

// DetectFormat infers a document format from the provided path's extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// Report summarizes a local document.
type Report struct {
	Name    string
	Format  Format
	Size    int64
	Pages   int
	HasText bool
	// Preview is the first line of extracted text, if any.
	Preview string
}

// File inspects the document at path.
func File(path string) (*Report, error) {
	format := DetectFormat(path)
	if format != FormatPDF {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	// A .pdf name is not enough; the server parses the content.
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%s is not a PDF: %w", filepath.Base(path), ErrUnsupported)
	}

	report, err := PDF(data)
	if err != nil {
		return nil, err
	}
	report.Name = filepath.Base(path)
	return report, nil
}

// PDF inspects an in-memory PDF. Malformed input is reported as an error;
// the pdf reader's panics on corrupt structures are recovered.
func PDF(data []byte) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("open pdf: malformed document: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	report = &Report{
		Format: FormatPDF,
		Size:   int64(len(data)),
		Pages:  doc.NumPage(),
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	report.Preview = firstNonEmptyLine(buf.String())
	report.HasText = report.Preview != ""
	return report, nil
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return truncateRunes(trimmed, previewRunes)
		}
	}
	return ""
}

// truncateRunes cuts s to at most n runes without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

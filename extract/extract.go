// Package extract turns resume files into plain text.
//
// PDF text is the concatenation of every page's plain text in page order,
// with no separators added. Pages without content contribute nothing. Any
// failure, including a panic inside the PDF parser, is an EXTRACTION error.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dslipak/pdf"

	"github.com/vinayprograms/talentkit/errors"
)

// Extractor reads the text of one document.
type Extractor interface {
	Extract(r io.ReaderAt, size int64) (string, error)
}

// PDF extracts text from PDF documents.
type PDF struct{}

// Extract implements Extractor.
func (PDF) Extract(r io.ReaderAt, size int64) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = errors.RecoverPanic(errors.ErrCodeExtraction, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeExtraction, "not a readable pdf")
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.Kind() == pdf.Null || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", errors.WrapWithCode(err, errors.ErrCodeExtraction, "reading page text",
				errors.WithMetadata("page", fmt.Sprint(i)))
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

// PlainText reads UTF-8 text files as-is.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(r io.ReaderAt, size int64) (string, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeExtraction, "reading text")
	}
	if !utf8.Valid(data) {
		return "", errors.Extraction("text is not valid UTF-8")
	}
	return string(data), nil
}

// ForFile picks an extractor by file extension.
func ForFile(name string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return PDF{}, nil
	case ".txt", ".md", ".text":
		return PlainText{}, nil
	default:
		return nil, errors.Extraction(fmt.Sprintf("unsupported file type %q", filepath.Ext(name)),
			errors.WithMetadata("file", filepath.Base(name)))
	}
}

// ExtractFile opens path read-only and extracts its text.
func ExtractFile(path string) (string, error) {
	ex, err := ForFile(path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeExtraction, "opening resume",
			errors.WithMetadata("file", filepath.Base(path)))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeExtraction, "stat resume",
			errors.WithMetadata("file", filepath.Base(path)))
	}
	return ex.Extract(f, info.Size())
}

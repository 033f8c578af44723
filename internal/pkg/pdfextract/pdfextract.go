package pdfextract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractText extracts the plain text of the PDF read from r. A PDF with no
// extractable text yields an empty string and no error; callers decide what
// counts as sufficient content.
func ExtractText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return ExtractTextFromBytes(raw)
}

// ExtractTextFromBytes is ExtractText for payloads already held in memory,
// such as a downloaded document body.
func ExtractTextFromBytes(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

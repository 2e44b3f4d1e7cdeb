// Package extract converts raw document bytes into plain text.
// It handles the formats study notes typically arrive in: HTML pages,
// PDF files, Word documents, and plain text.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies a supported document format.
type Kind string

const (
	KindText Kind = "text"
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
	KindDocx Kind = "docx"
)

// DetectKind guesses the document kind from a file name. Unknown
// extensions are treated as plain text.
func DetectKind(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm", ".xhtml":
		return KindHTML
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDocx
	default:
		return KindText
	}
}

// Text extracts plain text from data according to kind.
func Text(data []byte, kind Kind) (string, error) {
	switch kind {
	case KindText:
		return strings.TrimSpace(string(data)), nil
	case KindHTML:
		return HTMLText(string(data)), nil
	case KindPDF:
		return PDFText(data)
	case KindDocx:
		return DocxText(data)
	default:
		return "", fmt.Errorf("unsupported document kind %q", kind)
	}
}

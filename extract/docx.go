package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var docxTextRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// DocxText extracts the plain text of a Word (.docx) document.
// Paragraphs are separated by blank lines; table rows are rendered one
// per line with " | " between cells.
func DocxText(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX: %w", err)
	}

	for _, file := range zipReader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}

		return parseDocumentXML(content), nil
	}

	return "", fmt.Errorf("document.xml not found in DOCX")
}

type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Runs       []docxRun       `xml:"r"`
	Hyperlinks []docxHyperlink `xml:"hyperlink"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
	Tab  []struct{} `xml:"tab"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxHyperlink struct {
	Runs []docxRun `xml:"r"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func parseDocumentXML(content []byte) string {
	var doc docxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		// Fall back to regex extraction when the XML will not parse.
		return docxTextFallback(content)
	}

	var textParts []string
	for _, para := range doc.Body.Paragraphs {
		if text := paragraphText(&para); text != "" {
			textParts = append(textParts, text)
		}
	}
	for _, tbl := range doc.Body.Tables {
		if text := tableText(&tbl); text != "" {
			textParts = append(textParts, text)
		}
	}

	return strings.TrimSpace(strings.Join(textParts, "\n\n"))
}

func paragraphText(para *docxParagraph) string {
	var parts []string
	for _, run := range para.Runs {
		for _, text := range run.Text {
			if text.Content != "" {
				parts = append(parts, text.Content)
			}
		}
		for range run.Tab {
			parts = append(parts, "\t")
		}
	}
	for _, link := range para.Hyperlinks {
		for _, run := range link.Runs {
			for _, text := range run.Text {
				if text.Content != "" {
					parts = append(parts, text.Content)
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

func tableText(tbl *docxTable) string {
	var rows []string
	for _, row := range tbl.Rows {
		var cells []string
		for _, cell := range row.Cells {
			var cellText []string
			for _, para := range cell.Paragraphs {
				if text := paragraphText(&para); text != "" {
					cellText = append(cellText, text)
				}
			}
			cells = append(cells, strings.Join(cellText, " "))
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	}
	return strings.Join(rows, "\n")
}

func docxTextFallback(content []byte) string {
	matches := docxTextRe.FindAllSubmatch(content, -1)

	var parts []string
	for _, match := range matches {
		if len(match) > 1 {
			if text := string(match[1]); text != "" {
				parts = append(parts, text)
			}
		}
	}

	return strings.Join(parts, " ")
}

// Package export renders a document's title and content to downloadable
// formats. It is invoked synchronously by the HTTP layer.
package export

import (
	"io"
	"strings"

	docx "github.com/fumiama/go-docx"
	"github.com/go-pdf/fpdf"
)

// PDF writes the document as a PDF: title as a centered heading, content as
// body text.
func PDF(w io.Writer, title, content string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, title, "", "C", false)
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 6, content, "", "L", false)
	return pdf.Output(w)
}

// DOCX writes the document as a Word file, one paragraph per content line.
func DOCX(w io.Writer, title, content string) error {
	doc := docx.New().WithDefaultTheme()

	heading := doc.AddParagraph()
	heading.AddText(title).Size("32").Bold()

	for _, line := range strings.Split(content, "\n") {
		para := doc.AddParagraph()
		para.AddText(line).Size("24")
	}

	_, err := doc.WriteTo(w)
	return err
}

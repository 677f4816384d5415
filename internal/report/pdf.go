package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gera1311/foodgram/internal/models"
)

// clock stamps the PDF creation date.
var clock = time.Now

// PDF lays the list out on A4 pages with an embedded UTF-8 font.
func PDF(items []models.ShoppingItem) (Document, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(clock())
	pdf.SetTitle("Shopping list", true)
	pdf.AddUTF8FontFromBytes(fontName, "", goregular.TTF)
	pdf.AddPage()

	pdf.SetFont(fontName, "", 18)
	pdf.CellFormat(0, 12, "Shopping list", "B", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(fontName, "", 12)
	for i, it := range items {
		pdf.CellFormat(0, 8, fmt.Sprintf("%d. %s", i+1, line(it)), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("failed to render PDF: %w", err)
	}
	return Document{
		Filename:    "shopping_list.pdf",
		ContentType: "application/pdf",
		Body:        buf.Bytes(),
	}, nil
}

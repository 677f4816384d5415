package report

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/gera1311/foodgram/internal/models"
)

const (
	pngWidth      = 640
	pngMargin     = 32.0
	pngLineHeight = 22.0
	pngFontSize   = 16.0
)

// PNG draws the list as an image.
func PNG(items []models.ShoppingItem) (Document, error) {
	face, err := loadFontFace(pngFontSize)
	if err != nil {
		return Document{}, err
	}
	height := int(2*pngMargin + pngLineHeight*float64(len(items)+2))
	dc := gg.NewContext(pngWidth, height)
	dc.SetFontFace(face)

	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(color.Black)
	y := pngMargin + pngLineHeight
	dc.DrawString("Shopping list", pngMargin, y)
	dc.DrawLine(pngMargin, y+6, pngWidth-pngMargin, y+6)
	dc.SetLineWidth(1)
	dc.Stroke()

	for i, it := range items {
		y += pngLineHeight
		dc.DrawString(fmt.Sprintf("%d. %s", i+1, line(it)), pngMargin, y+pngLineHeight/2)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return Document{}, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return Document{
		Filename:    "shopping_list.png",
		ContentType: "image/png",
		Body:        buf.Bytes(),
	}, nil
}

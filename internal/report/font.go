package report

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Go Regular covers WGL4, which includes Latin, Greek and Cyrillic.
const fontName = "goregular"

var (
	parseOnce  sync.Once
	parsedFont *truetype.Font
	parseErr   error
)

func loadFontFace(size float64) (font.Face, error) {
	parseOnce.Do(func() {
		parsedFont, parseErr = truetype.Parse(goregular.TTF)
	})
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", parseErr)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

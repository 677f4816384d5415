// Package report formats an aggregated shopping list for download.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/models"
)

// Document is a rendered shopping list ready to be sent to a client.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var formats = map[string]func([]models.ShoppingItem) (Document, error){
	"txt": Text,
	"csv": CSV,
	"png": PNG,
	"pdf": PDF,
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"txt", "csv", "pdf", "png"}
}

// Render picks the renderer by name. An empty name means txt.
func Render(format string, items []models.ShoppingItem) (Document, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "txt"
	}
	fn, ok := formats[format]
	if !ok {
		return Document{}, apperr.Validation("format", "format_unsupported",
			fmt.Sprintf("format must be one of %s", strings.Join(Formats(), ", ")))
	}
	return fn(items)
}

func line(it models.ShoppingItem) string {
	return fmt.Sprintf("%s (%s) - %d", it.Name, it.Unit, it.Amount)
}

func Text(items []models.ShoppingItem) (Document, error) {
	var b strings.Builder
	b.WriteString("Shopping list\n\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line(it))
	}
	return Document{
		Filename:    "shopping_list.txt",
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(b.String()),
	}, nil
}

func CSV(items []models.ShoppingItem) (Document, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"name", "measurement_unit", "amount"}); err != nil {
		return Document{}, err
	}
	for _, it := range items {
		if err := w.Write([]string{it.Name, it.Unit, strconv.FormatInt(it.Amount, 10)}); err != nil {
			return Document{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Document{}, fmt.Errorf("write csv: %w", err)
	}
	return Document{
		Filename:    "shopping_list.csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

package textextractor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText concatenates the plain text of every page, separated by a blank
// line. Pages without text are skipped; a page that fails to decode fails
// the whole document.
func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if txt = strings.TrimSpace(txt); txt != "" {
			pages = append(pages, txt)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

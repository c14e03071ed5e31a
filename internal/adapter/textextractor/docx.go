package textextractor

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// docxText returns the non-blank paragraphs of the main document part,
// separated by a blank line.
func docxText(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer func() { _ = r.Close() }()
	return paragraphs(r.Editable().GetContent())
}

// paragraphs walks WordprocessingML and collects the text runs of each w:p.
// Tabs and breaks inside a paragraph are kept as whitespace. Paragraphs nested
// in a paragraph (text boxes) become lines of the enclosing one.
func paragraphs(documentXML string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(documentXML))
	var (
		out    []string
		cur    strings.Builder
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return strings.Join(out, "\n\n"), fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
				if depth == 1 {
					cur.Reset()
				} else if cur.Len() > 0 && !strings.HasSuffix(cur.String(), "\n") {
					cur.WriteByte('\n')
				}
			case "t":
				inText = true
			case "tab":
				if depth > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth > 0 {
					cur.WriteByte('\n')
					continue
				}
				if s := strings.TrimSpace(cur.String()); s != "" {
					out = append(out, s)
				}
			}
		case xml.CharData:
			if inText && depth > 0 {
				cur.Write(t)
			}
		}
	}
	return strings.Join(out, "\n\n"), nil
}

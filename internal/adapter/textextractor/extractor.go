// Package textextractor converts uploaded CV files into plain text.
//
// PDF and DOCX files are parsed locally. Extraction never fails its caller:
// unreadable, corrupt or unsupported files produce an empty string, which
// the analysis pipeline records as an unreadable CV. A parser error discards
// any text read before it.
package textextractor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/observability"
	"github.com/fairyhunter13/ats-cv-scorer/pkg/textx"
)

// Formats reported to the empty extraction hook.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatDOC  = "doc"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Extractor dispatches on the file name extension and implements domain.TextExtractor.
type Extractor struct {
	remote  domain.TextExtractor
	onEmpty func(format string)

	pdfText  func(path string) (string, error)
	docxText func(path string) (string, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRemote sets an extractor tried when local extraction of a supported
// format yields no text.
func WithRemote(r domain.TextExtractor) Option {
	return func(e *Extractor) { e.remote = r }
}

// WithEmptyHook is called with the format whenever the final text is empty.
func WithEmptyHook(fn func(format string)) Option {
	return func(e *Extractor) { e.onEmpty = fn }
}

// New returns an Extractor backed by the local PDF and DOCX parsers.
func New(opts ...Option) *Extractor {
	e := &Extractor{pdfText: pdfText, docxText: docxText}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractPath returns the text of the file at path. fileName is only a
// format hint. The error is always nil.
func (e *Extractor) ExtractPath(ctx context.Context, fileName, path string) (string, error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("file", fileName))

	format := detectFormat(fileName, path)
	var (
		text string
		err  error
	)
	switch format {
	case FormatDOC:
		lg.Info("legacy .doc files are not supported, returning empty text")
		e.empty(format)
		return "", nil
	case FormatDOCX:
		text, err = safely(e.docxText, path)
	default:
		text, err = safely(e.pdfText, path)
	}
	if err != nil {
		lg.Warn("local text extraction failed", slog.String("format", format), slog.Any("error", err))
		text = ""
	}
	text = textx.SanitizeText(text)

	if text == "" && e.remote != nil {
		remote, rerr := e.remote.ExtractPath(ctx, fileName, path)
		if rerr != nil {
			lg.Warn("remote text extraction failed", slog.Any("error", rerr))
		}
		text = textx.SanitizeText(remote)
	}
	if text == "" {
		e.empty(format)
	}
	return text, nil
}

func (e *Extractor) empty(format string) {
	if e.onEmpty != nil {
		e.onEmpty(format)
	}
}

// detectFormat maps the extension to a format. Without a known extension the
// content is sniffed; anything that is not DOCX is tried as PDF.
func detectFormat(fileName, path string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".doc":
		return FormatDOC
	}
	if mt, err := mimetype.DetectFile(path); err == nil && mt.Is(docxMIME) {
		return FormatDOCX
	}
	return FormatPDF
}

// safely converts parser panics on malformed input into errors.
func safely(fn func(string) (string, error), path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parser panic: %v", r)
		}
	}()
	return fn(path)
}

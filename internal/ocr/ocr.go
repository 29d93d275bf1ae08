// Package ocr extracts the text of a PDF. Pages with a usable text layer are
// read directly; scanned pages are rendered and handed to a PageReader.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	log "log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

type PageReader interface {
	ReadPage(ctx context.Context, png []byte) (string, error)
}

type Options struct {
	MaxPages int     // 0 = all
	DPI      float64 // render resolution for scanned pages
	Force    bool    // ignore the text layer
	MinText  int     // shorter text layers count as scanned
}

// document is the part of *fitz.Document in use.
type document interface {
	NumPage() int
	Text(page int) (string, error)
	ImageDPI(page int, dpi float64) (*image.RGBA, error)
	Close() error
}

type Recognizer struct {
	reader PageReader
	opt    Options
	open   func(path string) (document, error)
}

// New returns a Recognizer. reader may be nil, in which case scanned pages
// are skipped.
func New(reader PageReader, opt Options) *Recognizer {
	if opt.DPI <= 0 {
		opt.DPI = 150
	}
	if opt.MinText <= 0 {
		opt.MinText = 16
	}
	return &Recognizer{
		reader: reader,
		opt:    opt,
		open: func(path string) (document, error) {
			return fitz.New(path)
		},
	}
}

// Recognize returns the text of every page, pages separated by a blank line.
func (r *Recognizer) Recognize(ctx context.Context, path string) (string, error) {
	doc, err := r.open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if r.opt.MaxPages > 0 && pages > r.opt.MaxPages {
		log.Warn("PDF truncated", "pages", pages, "max", r.opt.MaxPages)
		pages = r.opt.MaxPages
	}

	var out []string
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := r.page(ctx, doc, i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n\n"), nil
}

func (r *Recognizer) page(ctx context.Context, doc document, i int) (string, error) {
	if !r.opt.Force {
		text, err := doc.Text(i)
		if err != nil {
			log.Warn("No text layer", "page", i+1, "err", err)
		}
		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) >= r.opt.MinText {
			return text, nil
		}
	}

	if r.reader == nil {
		log.Debug("Skipping scanned page, no OCR reader", "page", i+1)
		return "", nil
	}

	img, err := doc.ImageDPI(i, r.opt.DPI)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	log.Debug("OCR page", "page", i+1, "bytes", buf.Len())
	return r.reader.ReadPage(ctx, buf.Bytes())
}

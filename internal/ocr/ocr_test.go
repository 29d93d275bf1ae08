package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	texts  []string
	closed bool
}

func (d *fakeDoc) NumPage() int { return len(d.texts) }

func (d *fakeDoc) Text(page int) (string, error) { return d.texts[page], nil }

func (d *fakeDoc) ImageDPI(page int, dpi float64) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeReader struct {
	calls int
	text  string
	err   error
}

func (f *fakeReader) ReadPage(_ context.Context, png []byte) (string, error) {
	f.calls++
	if len(png) == 0 {
		return "", errors.New("empty image")
	}
	return f.text, f.err
}

func withDoc(r *Recognizer, doc *fakeDoc) *Recognizer {
	r.open = func(string) (document, error) { return doc, nil }
	return r
}

func TestRecognize_TextLayer(t *testing.T) {
	doc := &fakeDoc{texts: []string{"  First page has plenty of text.  ", "Second page has plenty of text too."}}
	reader := &fakeReader{}
	r := withDoc(New(reader, Options{}), doc)

	out, err := r.Recognize(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "First page has plenty of text.\n\nSecond page has plenty of text too.", out)
	assert.Zero(t, reader.calls)
	assert.True(t, doc.closed)
}

func TestRecognize_ScannedPageGoesToReader(t *testing.T) {
	doc := &fakeDoc{texts: []string{"Readable text layer on page one.", ""}}
	reader := &fakeReader{text: "scanned words"}
	r := withDoc(New(reader, Options{}), doc)

	out, err := r.Recognize(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Readable text layer on page one.\n\nscanned words", out)
	assert.Equal(t, 1, reader.calls)
}

func TestRecognize_Force(t *testing.T) {
	doc := &fakeDoc{texts: []string{"Readable text layer on page one.", "Readable text layer on page two."}}
	reader := &fakeReader{text: "ocr"}
	r := withDoc(New(reader, Options{Force: true}), doc)

	out, err := r.Recognize(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "ocr\n\nocr", out)
	assert.Equal(t, 2, reader.calls)
}

func TestRecognize_NoReaderSkipsScans(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", ""}}
	r := withDoc(New(nil, Options{}), doc)

	out, err := r.Recognize(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRecognize_MaxPages(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", "", "", ""}}
	reader := &fakeReader{text: "p"}
	r := withDoc(New(reader, Options{MaxPages: 2}), doc)

	out, err := r.Recognize(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "p\n\np", out)
	assert.Equal(t, 2, reader.calls)
}

func TestRecognize_ReaderError(t *testing.T) {
	doc := &fakeDoc{texts: []string{""}}
	r := withDoc(New(&fakeReader{err: errors.New("quota")}, Options{}), doc)

	_, err := r.Recognize(context.Background(), "doc.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
}

func TestRecognize_OpenError(t *testing.T) {
	r := New(nil, Options{})
	r.open = func(string) (document, error) { return nil, errors.New("not a pdf") }

	_, err := r.Recognize(context.Background(), "x.pdf")
	assert.ErrorContains(t, err, "open pdf")
}

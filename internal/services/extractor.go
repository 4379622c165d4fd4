package services

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"vardhanvasista/fresalyzer/internal/models"
)

// SupportedExtensions lists the document types the extractor can read.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

type TextExtractor interface {
	ExtractFile(path string) (string, error)
	ExtractBytes(name string, data []byte) (string, error)
	LoadFile(path string) models.Document
	LoadBytes(name string, data []byte) models.Document
}

// formatReader turns the raw bytes of one file type into plain text.
type formatReader func(data []byte) (string, error)

type textExtractor struct {
	readers map[string]formatReader
}

func NewTextExtractor() TextExtractor {
	return newTextExtractor(map[string]formatReader{
		".pdf":  readPDFText,
		".docx": readDocxText,
		".txt":  readPlainText,
	})
}

func newTextExtractor(readers map[string]formatReader) *textExtractor {
	return &textExtractor{readers: readers}
}

// IsSupportedFile reports whether name carries one of the supported extensions.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

func (e *textExtractor) ExtractFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", &ExtractionError{Kind: ErrFileNotFound, Name: path, Err: err}
	}

	reader, ext, err := e.readerFor(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Kind: ErrFileNotFound, Name: path, Err: err}
	}

	return e.run(path, ext, reader, data)
}

func (e *textExtractor) ExtractBytes(name string, data []byte) (string, error) {
	reader, ext, err := e.readerFor(name)
	if err != nil {
		return "", err
	}
	return e.run(name, ext, reader, data)
}

// LoadFile extracts a file from disk into a Document named after its base name.
// Extraction failures are kept on the Document rather than returned.
func (e *textExtractor) LoadFile(path string) models.Document {
	text, err := e.ExtractFile(path)
	if err != nil {
		log.Printf("❌ Failed to extract %s: %v", path, err)
	}
	return models.Document{Name: filepath.Base(path), Text: text, Err: err}
}

func (e *textExtractor) LoadBytes(name string, data []byte) models.Document {
	text, err := e.ExtractBytes(name, data)
	if err != nil {
		log.Printf("❌ Failed to extract %s: %v", name, err)
	}
	return models.Document{Name: name, Text: text, Err: err}
}

func (e *textExtractor) readerFor(name string) (formatReader, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	reader, ok := e.readers[ext]
	if !ok {
		return nil, ext, &ExtractionError{
			Kind: ErrUnsupportedFormat,
			Name: name,
			Err:  fmt.Errorf("extension %q is not one of %s", ext, strings.Join(SupportedExtensions, ", ")),
		}
	}
	return reader, ext, nil
}

func (e *textExtractor) run(name, ext string, reader formatReader, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	text, err := reader(data)
	if err != nil {
		kind := ErrExtractionFailure
		if errors.Is(err, ErrDecode) {
			kind = ErrDecode
		}
		return "", &ExtractionError{Kind: kind, Name: name, Err: err}
	}

	log.Printf("📄 Extracted %d characters from %s (%s)", len(text), name, ext)
	return text, nil
}

func readPDFText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPage := r.NumPage()
	pages := make([]string, 0, totalPage)
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("⚠️  Skipping PDF page %d: %v", pageIndex, err)
			continue
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n"), nil
}

func readDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer doc.Close()

	return docxParagraphText(doc.Editable().GetContent())
}

// docxParagraphText walks word/document.xml and returns one line per w:p
// element. Paragraphs nested in text boxes are folded into their parent.
func docxParagraphText(documentXML string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(documentXML))

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
		inText     bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					current.Reset()
				}
				depth++
			case "t":
				inText = true
			case "tab":
				if depth > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if depth > 0 {
					depth--
				}
				if depth == 0 {
					paragraphs = append(paragraphs, current.String())
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && depth > 0 {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

func readPlainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", ErrDecode)
	}
	return string(data), nil
}

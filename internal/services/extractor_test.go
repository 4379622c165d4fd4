package services

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestPDF writes a single-page PDF showing each line with Tj.
func buildTestPDF(t *testing.T, lines ...string) []byte {
	t.Helper()

	var content bytes.Buffer
	content.WriteString("BT /F1 12 Tf 72 720 Td 14 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", line)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefAt := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefAt)
	return out.Bytes()
}

func buildTestDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml":            documentXML,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Senior Go Engineer</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Skills: </w:t></w:r><w:r><w:t>Go, Kubernetes</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Remote</w:t></w:r></w:p>
</w:body>
</w:document>`

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractFile_SupportedFormats(t *testing.T) {
	extractor := NewTextExtractor()

	t.Run("pdf", func(t *testing.T) {
		path := writeTempFile(t, "resume.PDF", buildTestPDF(t, "Jane Doe", "Backend Developer"))

		text, err := extractor.ExtractFile(path)
		require.NoError(t, err)
		assert.Contains(t, text, "Jane Doe")
		assert.Contains(t, text, "Backend Developer")
	})

	t.Run("docx", func(t *testing.T) {
		path := writeTempFile(t, "jd.docx", buildTestDocx(t, testDocumentXML))

		text, err := extractor.ExtractFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Senior Go Engineer\nSkills: Go, Kubernetes\n\nRemote", text)
	})

	t.Run("txt", func(t *testing.T) {
		path := writeTempFile(t, "notes.txt", []byte("\xef\xbb\xbfGo developer, 5 years"))

		text, err := extractor.ExtractFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Go developer, 5 years", text)
	})
}

func TestExtractFile_EmptyFilesYieldEmptyText(t *testing.T) {
	extractor := NewTextExtractor()

	for _, name := range []string{"empty.pdf", "empty.docx", "empty.txt"} {
		t.Run(name, func(t *testing.T) {
			path := writeTempFile(t, name, nil)

			text, err := extractor.ExtractFile(path)
			require.NoError(t, err)
			assert.Empty(t, text)
		})
	}
}

func TestExtractFile_NotFound(t *testing.T) {
	extractor := NewTextExtractor()

	_, err := extractor.ExtractFile(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))

	_, err = extractor.ExtractFile(t.TempDir())
	assert.True(t, errors.Is(err, ErrFileNotFound), "directories are not readable files")
}

func TestExtract_UnsupportedFormatNeverInvokesReader(t *testing.T) {
	called := false
	spy := func(data []byte) (string, error) {
		called = true
		return "", nil
	}
	extractor := newTextExtractor(map[string]formatReader{".pdf": spy, ".docx": spy, ".txt": spy})

	_, err := extractor.ExtractBytes("candidates.csv", []byte("a,b,c"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	path := writeTempFile(t, "photo.png", []byte{0x89, 'P', 'N', 'G'})
	_, err = extractor.ExtractFile(path)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	assert.False(t, called)
}

func TestExtractBytes_DecodeError(t *testing.T) {
	extractor := NewTextExtractor()

	_, err := extractor.ExtractBytes("latin1.txt", []byte{'c', 'a', 'f', 0xe9})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
	assert.False(t, errors.Is(err, ErrExtractionFailure))

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "latin1.txt", extractionErr.Name)
}

func TestExtractBytes_CorruptDocumentsFail(t *testing.T) {
	extractor := NewTextExtractor()

	tests := []struct {
		name string
		data []byte
	}{
		{"broken.pdf", []byte("this is not a pdf document at all")},
		{"truncated.pdf", append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 200)...)},
		{"broken.docx", []byte("PK not really a zip")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractor.ExtractBytes(tt.name, tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExtractionFailure))
		})
	}
}

func TestExtractBytes_DanglingXrefIsFailure(t *testing.T) {
	extractor := newTextExtractor(map[string]formatReader{".pdf": readPDFText})

	// A header followed by a startxref pointing past the end of the file.
	data := []byte("%PDF-1.4\n" + string(bytes.Repeat([]byte(" "), 120)) + "\nstartxref\n999999\n%%EOF\n")
	_, err := extractor.ExtractBytes("odd.pdf", data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailure))
}

func TestLoadBytes_KeepsErrorOnDocument(t *testing.T) {
	extractor := NewTextExtractor()

	doc := extractor.LoadBytes("cv.txt", []byte("Python, SQL"))
	assert.False(t, doc.Failed())
	assert.Equal(t, "cv.txt", doc.Name)
	assert.Equal(t, "Python, SQL", doc.Text)

	doc = extractor.LoadBytes("cv.odt", []byte("whatever"))
	assert.True(t, doc.Failed())
	assert.True(t, errors.Is(doc.Err, ErrUnsupportedFormat))
}

func TestDocxParagraphText_NestedParagraphs(t *testing.T) {
	xmlDoc := `<w:document xmlns:w="w"><w:body>
<w:p><w:r><w:t>Header </w:t></w:r><w:r><w:txbxContent><w:p><w:r><w:t>boxed</w:t></w:r></w:p></w:txbxContent></w:r></w:p>
<w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t></w:r></w:p>
</w:body></w:document>`

	text, err := docxParagraphText(xmlDoc)
	require.NoError(t, err)
	assert.Equal(t, "Header boxed\nA\tB", text)
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("Resume.DOCX"))
	assert.True(t, IsSupportedFile("a.txt"))
	assert.False(t, IsSupportedFile("a.csv"))
	assert.False(t, IsSupportedFile("README"))
}

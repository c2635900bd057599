package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDocx 构造一个只包含正文的最小 DOCX
func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body bytes.Buffer
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocumentXMLToText(t *testing.T) {
	xml := `<w:body><w:p><w:r><w:t>Jane &amp; Co</w:t></w:r></w:p><w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t><w:br/><w:t>C</w:t></w:r></w:p><w:p></w:p></w:body>`
	assert.Equal(t, "Jane & Co\nA\tB\nC", DocumentXMLToText(xml))
}

func TestDocxTextExtractor(t *testing.T) {
	data := buildDocx(t, "Jane Doe", "Education", "BS Computer Science")

	text, meta, err := NewDocxTextExtractor().ExtractTextFromBytes(context.Background(), data, "resume.docx", nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEducation\nBS Computer Science", text)
	assert.Equal(t, "resume.docx", meta["source_uri"])

	_, _, err = NewDocxTextExtractor().ExtractTextFromBytes(context.Background(), []byte("not a zip"), "bad.docx", nil)
	assert.Error(t, err)
}

func TestPlainTextExtractor(t *testing.T) {
	text, meta, err := PlainTextExtractor{}.ExtractTextFromBytes(context.Background(), []byte("Jane\r\nDoe\n\n"), "a.txt", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "Jane\nDoe", text)
	assert.Equal(t, "v", meta["k"])
	assert.Equal(t, 8, meta["text_length"])
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, MIMEPDF, DetectMIME([]byte("%PDF-1.5\n%µ¶\n1 0 obj"), "x.bin"))
	assert.Equal(t, MIMEText, DetectMIME([]byte("Jane Doe\nSkills\nGo"), "resume"))
	assert.Equal(t, MIMEDOCX, DetectMIME(buildDocx(t, "hello"), "resume.docx"))
	assert.NotContains(t, []string{MIMEPDF, MIMEDOCX, MIMEText}, DetectMIME([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d}, "photo.png"))
}

type stubExtractor struct {
	text  string
	calls int
}

func (s *stubExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	return readFileAndExtract(ctx, s, filePath)
}

func (s *stubExtractor) ExtractTextFromReader(ctx context.Context, r io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	data, _ := io.ReadAll(r)
	return s.ExtractTextFromBytes(ctx, data, uri, options)
}

func (s *stubExtractor) ExtractTextFromBytes(context.Context, []byte, string, interface{}) (string, map[string]interface{}, error) {
	s.calls++
	return "  " + s.text + "  ", nil, nil
}

func TestMultiFormatExtractor(t *testing.T) {
	ctx := context.Background()
	pdfStub := &stubExtractor{text: "from pdf"}
	m := NewMultiFormatExtractor(pdfStub, nil, log.New(io.Discard, "", 0))

	text, meta, err := m.ExtractTextFromBytes(ctx, []byte("%PDF-1.4 fake"), "resume.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "from pdf", text)
	assert.Equal(t, MIMEPDF, meta["mime_type"])
	assert.Equal(t, 1, pdfStub.calls)

	text, meta, err = m.ExtractTextFromReader(ctx, bytes.NewReader(buildDocx(t, "Jane Doe", "Skills", "Go")), "resume.docx", nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills\nGo", text)
	assert.Equal(t, MIMEDOCX, meta["mime_type"])

	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("Jane Doe\nSkills\nGo\n"), 0o644))
	text, _, err = m.ExtractFromFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills\nGo", text)

	_, _, err = m.ExtractTextFromBytes(ctx, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d}, "photo.png", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	noPDF := NewMultiFormatExtractor(nil, nil, nil)
	_, _, err = noPDF.ExtractTextFromBytes(ctx, []byte("%PDF-1.4 fake"), "resume.pdf", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat, "未配置PDF提取器时应视为不支持")
}

func TestLocalPDFTextExtractor_InvalidData(t *testing.T) {
	e := NewLocalPDFTextExtractor(log.New(io.Discard, "", 0))
	_, _, err := e.ExtractTextFromBytes(context.Background(), []byte("definitely not a pdf"), "bad.pdf", nil)
	assert.Error(t, err)
}

// createMockTikaServer 模拟 Tika 的 /tika 与 /meta 接口
func createMockTikaServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		switch r.URL.Path {
		case "/tika":
			assert.Equal(t, "text/plain", r.Header.Get("Accept"))
			assert.Equal(t, MIMEPDF, r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("\nJane Doe\nSkills\nGo\n"))
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"Content-Type":"application/pdf","xmpTPg:NPages":"1","X-TIKA:Parsed-By":"org.apache.tika.parser.DefaultParser"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTikaTextExtractor(t *testing.T) {
	server := createMockTikaServer(t)
	defer server.Close()

	e := NewTikaTextExtractor(server.URL+"/", WithTikaLogger(log.New(io.Discard, "", 0)), WithTimeout(5*time.Second))
	assert.Equal(t, server.URL, e.ServerURL)
	assert.Equal(t, 5*time.Second, e.Client.Timeout)

	text, meta, err := e.ExtractTextFromBytes(context.Background(), []byte("%PDF-1.5 mock"), "resume.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills\nGo", text)
	assert.Equal(t, "1", meta["xmpTPg:NPages"])
	assert.NotContains(t, meta, "X-TIKA:Parsed-By", "只保留关键元数据")
	assert.Contains(t, meta, "processing_duration_ms")

	noMeta := NewTikaTextExtractor(server.URL, WithTikaMetadata(false), WithTikaLogger(log.New(io.Discard, "", 0)))
	_, meta, err = noMeta.ExtractTextFromBytes(context.Background(), []byte("%PDF-1.5 mock"), "resume.pdf", nil)
	require.NoError(t, err)
	assert.NotContains(t, meta, "xmpTPg:NPages")
}

func TestTikaTextExtractor_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	e := NewTikaTextExtractor(server.URL, WithTikaLogger(log.New(io.Discard, "", 0)))
	_, _, err := e.ExtractTextFromBytes(context.Background(), []byte("%PDF-1.5 mock"), "resume.pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	customLogger := log.New(os.Stdout, "[测试PDF提取器] ", log.LstdFlags)
	extractor, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(customLogger), WithEinoTimeout(10*time.Second))
	require.NoError(t, err)
	require.NotNil(t, extractor.parser)
	assert.Equal(t, customLogger, extractor.logger)
	assert.Equal(t, 10*time.Second, extractor.timeout)
}

package ingest

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

// ExtractText converts uploaded bytes into best-effort plain text. It never
// fails: a document that yields nothing comes back as an empty string, and
// callers must treat empty/whitespace output as "no content".
func ExtractText(ctx context.Context, raw []byte, contentType, filename string) string {
	switch {
	case isPDF(contentType, filename):
		return extractPDF(ctx, raw, filename)
	case isMarkdown(contentType, filename):
		return extractMarkdown(raw)
	default:
		return sanitizeUTF8(raw)
	}
}

func isPDF(contentType, filename string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

func isMarkdown(contentType, filename string) bool {
	if strings.Contains(strings.ToLower(contentType), "markdown") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".md")
}

func extractPDF(ctx context.Context, raw []byte, filename string) string {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename))
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		logger.Warn("pdf open failed", zap.Error(err))
		return ""
	}
	var sb strings.Builder
	for num := 1; num <= reader.NumPage(); num++ {
		pageText, err := extractPDFPage(reader, num)
		if err != nil {
			// Scanned or corrupt pages contribute nothing.
			logger.Debug("pdf page extraction failed", zap.Int("page", num), zap.Error(err))
			continue
		}
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func extractPDFPage(reader *pdf.Reader, num int) (result string, err error) {
	// The pdf library panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = &pageError{page: num}
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

type pageError struct {
	page int
}

func (e *pageError) Error() string {
	return "page content stream is unreadable"
}

func extractMarkdown(raw []byte) string {
	md := goldmark.New()
	reader := text.NewReader(raw)
	doc := md.Parser().Parse(reader)

	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if txt := extractNodeText(node, raw); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n")
}

func extractNodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			sb.WriteString(" ")
		case *ast.FencedCodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				line := t.Lines().At(i)
				sb.Write(line.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func sanitizeUTF8(raw []byte) string {
	clean := strings.ToValidUTF8(string(raw), "")
	return strings.ReplaceAll(clean, "\x00", "")
}

package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// DocumentParseError reports a document that could not be decoded into text.
// No partial text is ever returned alongside it.
type DocumentParseError struct {
	Page   int
	Reason string
	Err    error
}

func (e *DocumentParseError) Error() string {
	msg := "document parse error"
	if e.Page > 0 {
		msg = fmt.Sprintf("%s page=%d", msg, e.Page)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// FromUpload extracts text from an uploaded payload after checking its declared type.
// Only PDF is supported; the magic bytes win over a generic or missing content type.
func FromUpload(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	normalized := normalizeMimeType(mimeType, fileName, data)
	if normalized != mimePDF {
		return "", &DocumentParseError{Reason: fmt.Sprintf("unsupported mime type: %s", normalized)}
	}
	return PDFText(ctx, data)
}

// PDFText returns the text of every page, page 1 first, joined with newlines.
// Within a page the text fragments are joined with single spaces.
func PDFText(ctx context.Context, data []byte) (string, error) {
	pages, err := Pages(ctx, data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// Pages returns the normalized text of each page in page order.
func Pages(ctx context.Context, data []byte) (pages []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &DocumentParseError{Reason: "empty document"}
	}

	// the decoder panics on some malformed object graphs
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = &DocumentParseError{Reason: fmt.Sprintf("decoder panic: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &DocumentParseError{Reason: "open", Err: err}
	}

	total := reader.NumPage()
	out := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			out = append(out, "")
			continue
		}
		out = append(out, strings.Join(strings.Fields(strings.Join(pageFragments(page), " ")), " "))
	}
	return out, nil
}

// tjWordGap is the TJ adjustment, in thousandths of an em, at or below which
// two pieces of one TJ array are treated as separate words.
const tjWordGap = -200

// pageFragments returns the strings shown on a page in content-stream order.
// Each Tj or TJ operand is one fragment.
func pageFragments(page pdf.Page) []string {
	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Null {
		return nil
	}

	encoders := make(map[string]pdf.TextEncoding)
	for _, name := range page.Fonts() {
		encoders[name] = page.Font(name).Encoder()
	}

	var (
		enc pdf.TextEncoding
		out []string
	)
	decode := func(v pdf.Value) string {
		if enc == nil {
			return v.RawString()
		}
		return enc.Decode(v.RawString())
	}
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "Tf":
			if len(args) == 2 {
				enc = encoders[args[0].Name()]
			}
		case "Tj", "'", "\"":
			if len(args) > 0 {
				add(decode(args[len(args)-1]))
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			var b strings.Builder
			for i := 0; i < args[0].Len(); i++ {
				item := args[0].Index(i)
				switch item.Kind() {
				case pdf.String:
					b.WriteString(decode(item))
				case pdf.Integer, pdf.Real:
					if item.Float64() <= tjWordGap {
						b.WriteByte(' ')
					}
				}
			}
			add(b.String())
		}
	})
	return out
}

// LooksLikePDF reports whether data starts with the PDF header.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean == mimePDF {
		return clean
	}
	if LooksLikePDF(data) {
		return mimePDF
	}
	switch clean {
	case "", "application/octet-stream", "binary/octet-stream":
		if strings.EqualFold(filepath.Ext(fileName), ".pdf") {
			return mimePDF
		}
		if clean == "" {
			return "application/octet-stream"
		}
	}
	return clean
}

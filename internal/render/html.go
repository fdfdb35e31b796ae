package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// ContentType is the media type of rendered certificates.
const ContentType = "text/html; charset=utf-8"

//go:embed assets/certificate.html.tmpl assets/certificate.css
var assets embed.FS

var (
	certificate = template.Must(template.ParseFS(assets, "assets/certificate.html.tmpl"))
	baseStyle   = template.CSS(mustReadAsset("assets/certificate.css"))
)

func mustReadAsset(name string) string {
	b, err := assets.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

type page struct {
	Document
	Style      template.CSS
	PrintStyle template.CSS
}

// WriteHTML writes doc as a standalone HTML page. Print documents carry an
// extra print-scoped stylesheet derived from their Layout.
func WriteHTML(w io.Writer, doc Document) error {
	p := page{Document: doc, Style: baseStyle}
	if doc.Mode == ModePrint {
		p.PrintStyle = template.CSS(doc.Layout.CSS())
	}
	if err := certificate.Execute(w, p); err != nil {
		return fmt.Errorf("%w: %w", types.ErrRender, err)
	}
	return nil
}

// HTML builds and renders rec in one step.
func HTML(rec types.AppraisalRecord, mode Mode) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, Build(rec, mode)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

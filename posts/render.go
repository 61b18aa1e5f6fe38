package posts

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns user markdown into HTML that is safe to embed in pages and
// in the comment JSON served to external blogs.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // tables, strikethrough, task lists
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithUnsafe(), // raw HTML is allowed here and stripped by the policy below
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

func (r *Renderer) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer

	err := r.markdown.Convert([]byte(src), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil // nolint:gosec
}

package markup

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts plain model text into display markup.
type Renderer interface {
	Render(text string) (string, error)
}

// Options controls rendering.
type Options struct {
	// HardWraps turns every line break in the source into a <br>.
	HardWraps bool
}

type goldmarkRenderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a GitHub-flavoured markdown renderer. Raw HTML in the
// source is omitted from the output.
func NewRenderer(opts Options) Renderer {
	var rendererOpts []goldmark.Option
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithHardWraps()))
	}
	rendererOpts = append(rendererOpts, goldmark.WithExtensions(extension.GFM))

	return &goldmarkRenderer{md: goldmark.New(rendererOpts...)}
}

func (r *goldmarkRenderer) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

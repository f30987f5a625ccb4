package export

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	council "github.com/nevindra/council"
)

// HTML renders the Markdown transcript to an HTML fragment with GFM
// extensions (tables, strikethrough, autolinks).
func HTML(prompt string, resp council.ConsensusResponse, opts Options) (string, error) {
	md := Markdown(prompt, resp, opts)

	gm := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	var buf bytes.Buffer
	if err := gm.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("export: render html: %w", err)
	}
	return buf.String(), nil
}

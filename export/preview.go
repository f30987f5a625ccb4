package export

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	council "github.com/nevindra/council"
)

const (
	previewTimeout  = 15 * time.Second
	previewMaxBytes = 2 << 20 // 2 MiB cap on fetched pages
	previewMaxChars = 600
)

// Previewer fetches citation URLs and extracts short readable excerpts
// for citations whose Content the gateway left empty.
type Previewer struct {
	client *http.Client
}

// NewPreviewer creates a Previewer with a 15-second timeout.
func NewPreviewer() *Previewer {
	return &Previewer{client: &http.Client{Timeout: previewTimeout}}
}

// Fill populates empty Citation.Content fields in place. Fetch failures
// leave the citation untouched; a transcript renders fine without
// previews.
func (p *Previewer) Fill(ctx context.Context, citations []council.Citation) {
	for i := range citations {
		if citations[i].Content != "" || citations[i].URL == "" {
			continue
		}
		if excerpt, err := p.fetch(ctx, citations[i].URL); err == nil {
			citations[i].Content = excerpt
		}
	}
}

func (p *Previewer) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, previewMaxBytes))
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > previewMaxChars {
		// Never cut a multi-byte rune in half.
		cut := previewMaxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text, nil
}

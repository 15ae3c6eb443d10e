package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// The mobile endpoint rejects queries longer than this
const maxTranslateChunk = 5000

var ErrEmptyTranslation = errors.New("translation result is empty")

// Translator translates text between languages; source "auto" lets the service detect it
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type googleTranslator struct {
	rl         ratelimit.Limiter
	endpoint   string
	httpClient *resty.Client
}

// NewGoogleTranslator uses the Google Translate mobile page at endpoint
// (https://translate.google.com/m) and scrapes the result container.
func NewGoogleTranslator(httpClient *resty.Client, endpoint string, maxRequestsPerSecond int) Translator {
	return &googleTranslator{
		rl:         newLimiter(maxRequestsPerSecond),
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

func (t *googleTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if source == "" {
		source = "auto"
	}

	chunks := splitChunks(text, maxTranslateChunk)
	var out strings.Builder
	for i, c := range chunks {
		translated := c.text
		if strings.TrimSpace(c.text) != "" {
			var err error
			translated, err = t.translateChunk(ctx, c.text, source, target)
			if err != nil {
				return "", fmt.Errorf("failed to translate chunk %d/%d: %w", i+1, len(chunks), err)
			}
		}
		out.WriteString(translated)
		out.WriteString(c.joiner)
	}

	log.Debugf("Translated %d characters in %d chunks to %s", len(text), len(chunks), target)
	return out.String(), nil
}

func (t *googleTranslator) translateChunk(ctx context.Context, text, source, target string) (string, error) {
	t.rl.Take()

	resp, err := t.httpClient.R().
		SetContext(ctx).
		SetQueryParam("sl", source).
		SetQueryParam("tl", target).
		SetQueryParam("q", text).
		Get(t.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call translation endpoint: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("translation endpoint returned HTTP %d %s", resp.StatusCode(), resp.Status())
	}

	return parseTranslation(resp.String())
}

func parseTranslation(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := doc.Find("div.result-container").First()
	if result.Length() == 0 {
		result = doc.Find("div.t0").First()
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmptyTranslation
	}
	return text, nil
}

// chunk is one piece of text sent for translation. joiner goes between its
// translation and the next one: a line break, or nothing when a line was cut.
type chunk struct {
	text   string
	joiner string
}

// splitChunks cuts text on line boundaries into pieces of at most size bytes.
// A single line longer than size is cut on rune boundaries.
func splitChunks(text string, size int) []chunk {
	if len(text) <= size {
		return []chunk{{text: text}}
	}

	var (
		chunks []chunk
		lines  []string
		n      int
	)
	flush := func() {
		if len(lines) > 0 {
			chunks = append(chunks, chunk{text: strings.Join(lines, "\n"), joiner: "\n"})
			lines, n = nil, 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		cut := false
		for len(line) > size {
			flush()
			at := size
			for at > 0 && !isRuneStart(line[at]) {
				at--
			}
			if at == 0 {
				at = size
			}
			chunks = append(chunks, chunk{text: line[:at]})
			line = line[at:]
			cut = true
		}
		if cut && line == "" {
			chunks[len(chunks)-1].joiner = "\n"
			continue
		}

		add := len(line)
		if len(lines) > 0 {
			add++
		}
		if len(lines) > 0 && n+add > size {
			flush()
			add = len(line)
		}
		lines = append(lines, line)
		n += add
	}
	flush()

	chunks[len(chunks)-1].joiner = ""
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Package sanitize turns HTML or noisy feed text into plain prose.
//
// Clean never fails: when the markup cannot be parsed it falls back to a
// regex-only pass. A result shorter than MinLength runes is reported as "".
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// MinLength is the shortest cleaned text still worth keeping.
const MinLength = 10

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://\S+`),
		regexp.MustCompile(`(?i)\bwww\.\S+`),
		regexp.MustCompile(`(?i)\b(?:bit\.ly|t\.co|goo\.gl|tinyurl\.com|ow\.ly|buff\.ly|dlvr\.it|is\.gd|lnkd\.in)/\S*`),
	}

	trackingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bsource=\w+\S*`),
		regexp.MustCompile(`(?i)\butm_\w+=\S*`),
		regexp.MustCompile(`(?i)\bref=\S*`),
		regexp.MustCompile(`\?\w+=[^\s&]*(?:&\w+=[^\s&]*)*`),
	}

	boilerplatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bRSVP:`),
		regexp.MustCompile(`(?i)\bRead more:`),
		regexp.MustCompile(`(?i)\bClick here:`),
		regexp.MustCompile(`\[(?:…|\.\.\.|â€¦)\]`),
		regexp.MustCompile(`â€¦`),
	}
)

// Sanitizer cleans text and reports degraded passes to its logger.
type Sanitizer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Sanitizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sanitizer{log: log.Named("sanitize")}
}

var defaultSanitizer = New(nil)

// Clean sanitizes markup with a silent Sanitizer.
func Clean(markup string) string {
	return defaultSanitizer.Clean(markup)
}

// Clean strips tags, URLs, tracking parameters and boilerplate from markup.
func (s *Sanitizer) Clean(markup string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("markup parsing panicked, using degraded pass", zap.Any("panic", r))
			out = degraded(markup)
		}
	}()

	text, err := extract(markup)
	if err != nil {
		s.log.Warn("markup parsing failed, using degraded pass", zap.Error(err))
		return degraded(markup)
	}

	text = truncateAtPipe(text)
	text = removeAll(text, urlPatterns)
	text = removeAll(text, trackingPatterns)
	text = removeAll(text, boilerplatePatterns)
	text = collapseWhitespace(text)

	if utf8.RuneCountInString(text) < MinLength {
		return ""
	}
	return text
}

// blockElements end a run of prose. Their text is padded with spaces so
// adjacent blocks do not run together.
const blockElements = "p, div, li, ul, ol, br, h1, h2, h3, h4, h5, h6, blockquote, pre, " +
	"article, section, header, footer, aside, nav, table, tr, td, th, dd, dt, figcaption, hr"

var extract = extractText

func extractText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}

	doc.Find("script, style").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.PrependNodes(spaceNode())
		s.AppendNodes(spaceNode())
	})

	if body := doc.Find("body"); body.Length() > 0 {
		return body.Text(), nil
	}
	return doc.Text(), nil
}

func spaceNode() *html.Node {
	return &html.Node{Type: html.TextNode, Data: " "}
}

// degraded is the regex-only pass used when the markup parser is unusable.
func degraded(markup string) string {
	text := tagPattern.ReplaceAllString(markup, " ")
	text = truncateAtPipe(text)
	text = removeAll(text, urlPatterns)
	return collapseWhitespace(text)
}

// truncateAtPipe keeps the first segment of pipe-delimited content.
func truncateAtPipe(text string) string {
	if i := strings.IndexByte(text, '|'); i >= 0 {
		return text[:i]
	}
	return text
}

func removeAll(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

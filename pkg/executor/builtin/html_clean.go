package builtin

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/gridflow/gridflow/pkg/executor"
)

// htmlLikePattern matches the opening of a document that is actually HTML,
// as opposed to plain text, JSON, or markdown arriving on the same edge.
var htmlLikePattern = regexp.MustCompile(`(?i)^<(!doctype|html|head|body|div|p|span|article|section|main|table|ul|ol|h[1-6])\b`)

// HTMLCleanExecutor strips scripts, styles and chrome from HTML payloads and
// extracts the readable article content, falling back to passthrough for
// non-HTML input so it can sit on an edge without knowing what arrives.
type HTMLCleanExecutor struct {
	*executor.BaseExecutor
}

// NewHTMLCleanExecutor creates a new html_clean executor.
func NewHTMLCleanExecutor() *HTMLCleanExecutor {
	return &HTMLCleanExecutor{
		BaseExecutor: executor.NewBaseExecutor("html_clean"),
	}
}

// Execute cleans HTML input and extracts readable text/markup from it.
func (e *HTMLCleanExecutor) Execute(ctx context.Context, config map[string]any, input any) (any, error) {
	raw, err := e.extractInput(config, input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("html_clean: input is empty")
	}

	if !looksLikeHTML(raw) {
		return map[string]any{
			"text_content": raw,
			"html_content": "",
			"title":        "",
			"word_count":   countWords(raw),
			"passthrough":  true,
			"is_html":      false,
		}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("html_clean: failed to parse html: %w", err)
	}
	doc.Find("script, style, iframe, noscript").Remove()

	cleanedHTML, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("html_clean: failed to serialize cleaned html: %w", err)
	}

	var sourceURL *url.URL
	if raw := e.GetStringDefault(config, "source_url", ""); raw != "" {
		if parsed, parseErr := url.Parse(raw); parseErr == nil {
			sourceURL = parsed
		}
	}

	extractMetadata := e.GetBoolDefault(config, "extract_metadata", true)
	preserveLinks := e.GetBoolDefault(config, "preserve_links", false)
	outputFormat := e.GetStringDefault(config, "output_format", "both")
	maxLength := e.GetIntDefault(config, "max_length", 0)

	article, artErr := readability.FromReader(strings.NewReader(cleanedHTML), sourceURL)

	title := ""
	if extractMetadata {
		if artErr == nil && strings.TrimSpace(article.Title) != "" {
			title = article.Title
		} else {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}

	textContent := collapseWhitespace(strings.TrimSpace(doc.Find("body").Text()))
	if textContent == "" {
		textContent = collapseWhitespace(strings.TrimSpace(doc.Text()))
	}
	if !preserveLinks && artErr == nil && strings.TrimSpace(article.TextContent) != "" {
		textContent = collapseWhitespace(strings.TrimSpace(article.TextContent))
	}
	if preserveLinks {
		var links []string
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			if href, ok := s.Attr("href"); ok && href != "" {
				links = append(links, href)
			}
		})
		if len(links) > 0 {
			textContent = textContent + " " + strings.Join(links, " ")
		}
	}

	wordCount := countWords(textContent)

	if outputFormat == "text" {
		cleanedHTML = ""
	} else if outputFormat == "html" {
		textContent = ""
	}

	if maxLength > 0 {
		textContent = truncate(textContent, maxLength)
		cleanedHTML = truncate(cleanedHTML, maxLength)
	}

	return map[string]any{
		"text_content": textContent,
		"html_content": cleanedHTML,
		"title":        title,
		"word_count":   wordCount,
		"passthrough":  false,
		"is_html":      true,
	}, nil
}

// Validate validates the html_clean executor configuration.
func (e *HTMLCleanExecutor) Validate(config map[string]any) error {
	if raw, ok := config["output_format"]; ok {
		format := fmt.Sprintf("%v", raw)
		if format != "text" && format != "html" && format != "both" {
			return fmt.Errorf("invalid output_format %q: must be one of text, html, both", format)
		}
	}

	if _, ok := config["max_length"]; ok {
		if e.GetIntDefault(config, "max_length", 0) < 0 {
			return fmt.Errorf("max_length must be non-negative")
		}
	}

	return nil
}

func (e *HTMLCleanExecutor) extractInput(config map[string]any, input any) (string, error) {
	inputKey := e.GetStringDefault(config, "input_key", "")

	switch v := input.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case map[string]interface{}:
		if inputKey != "" {
			val, ok := v[inputKey]
			if !ok {
				return "", fmt.Errorf("html_clean: key '%s' not found in input map", inputKey)
			}
			return toHTMLString(val), nil
		}
		if val, ok := v["html"]; ok {
			return toHTMLString(val), nil
		}
		if val, ok := v["body"]; ok {
			return toHTMLString(val), nil
		}
		return "", fmt.Errorf("html_clean: no content found in input map, expected an 'html' or 'body' field")
	default:
		return "", fmt.Errorf("html_clean: unsupported input type %T", input)
	}
}

func toHTMLString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func looksLikeHTML(s string) bool {
	trimmed := strings.TrimSpace(s)
	return htmlLikePattern.MatchString(trimmed)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

var whitespaceRunPattern = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return whitespaceRunPattern.ReplaceAllString(s, " ")
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}

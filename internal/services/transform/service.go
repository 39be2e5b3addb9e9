// Package transform normalizes uploads into plain text before chunking.
// HTML is converted to markdown first, then markdown is flattened to
// text, so the indexed content carries no markup noise.
package transform

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Service implements TransformService
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) interfaces.TransformService {
	return &Service{logger: logger}
}

// Normalize converts content to plain text based on the filename
// extension. Unknown extensions pass through unchanged as plain text.
func (s *Service) Normalize(content, filename string) (*models.NormalizedContent, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return s.normalizeHTML(content)
	case ".md", ".markdown":
		plain, title := markdownToText(content)
		return &models.NormalizedContent{
			Text:     plain,
			FileType: models.FileTypeMarkdown,
			Title:    title,
		}, nil
	default:
		return &models.NormalizedContent{
			Text:     content,
			FileType: models.FileTypeText,
		}, nil
	}
}

func (s *Service) normalizeHTML(html string) (*models.NormalizedContent, error) {
	if strings.TrimSpace(html) == "" {
		return &models.NormalizedContent{FileType: models.FileTypeHTML}, nil
	}

	title := ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	} else {
		s.logger.Debug().Err(err).Msg("Failed to parse HTML for title extraction")
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		return &models.NormalizedContent{
			Text:     stripHTMLTags(html),
			FileType: models.FileTypeHTML,
			Title:    title,
		}, nil
	}

	if strings.TrimSpace(markdown) == "" {
		s.logger.Warn().
			Int("html_length", len(html)).
			Msg("HTML to markdown conversion produced empty output, applying fallback")
		return &models.NormalizedContent{
			Text:     stripHTMLTags(html),
			FileType: models.FileTypeHTML,
			Title:    title,
		}, nil
	}

	plain, mdTitle := markdownToText(markdown)
	if title == "" {
		title = mdTitle
	}
	return &models.NormalizedContent{
		Text:     plain,
		FileType: models.FileTypeHTML,
		Title:    title,
	}, nil
}

// markdownToText flattens markdown to plain text by walking the parsed
// AST and keeping block structure as blank lines. It also returns the
// first level-1 heading as the title, if any.
func markdownToText(markdown string) (string, string) {
	source := []byte(markdown)
	parser := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	)
	doc := parser.Parser().Parse(text.NewReader(source))

	var out strings.Builder
	var heading strings.Builder
	title := ""
	inHeading := false
	headingLevel := 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				inHeading = true
				headingLevel = node.Level
				heading.Reset()
			} else {
				inHeading = false
				if title == "" && headingLevel == 1 {
					title = strings.TrimSpace(heading.String())
				}
				out.WriteString("\n\n")
			}
		case *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			if !entering {
				out.WriteString("\n\n")
			}
		case *ast.Text:
			if entering {
				segment := node.Segment.Value(source)
				out.Write(segment)
				if inHeading {
					heading.Write(segment)
				}
				if node.SoftLineBreak() || node.HardLineBreak() {
					out.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				out.Write(node.Value)
				if inHeading {
					heading.Write(node.Value)
				}
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					line := lines.At(i)
					out.Write(line.Value(source))
				}
			} else {
				out.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	collapsed := collapseBlankLines(out.String())
	return strings.TrimSpace(collapsed), title
}

var blankLineRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return blankLineRe.ReplaceAllString(s, "\n\n")
}

// stripHTMLTags removes basic HTML tags for fallback cases
func stripHTMLTags(htmlStr string) string {
	re := regexp.MustCompile(`<[^>]*>`)
	stripped := re.ReplaceAllString(htmlStr, "")

	spaceRe := regexp.MustCompile(`\s+`)
	cleaned := spaceRe.ReplaceAllString(stripped, " ")

	// Decode HTML entities (basic set)
	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}

// ValidateHTML checks if the input looks like HTML at all
func (s *Service) ValidateHTML(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("empty content")
	}
	if !strings.Contains(trimmed, "<") {
		return fmt.Errorf("content does not appear to be HTML")
	}
	return nil
}

var _ interfaces.TransformService = (*Service)(nil)

package ingest

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const fetchTimeout = 30 * time.Second

// fetchLink downloads a web page and converts it to markdown. Returns
// the markdown body and the page title.
func fetchLink(url string) (string, string, error) {
	client := &http.Client{Timeout: fetchTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	html := string(body)

	title := ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		title = strings.TrimSpace(doc.Find("title").First().Text())
		// Drop non-content elements before conversion
		doc.Find("script, style, nav, footer, iframe").Remove()
		if cleaned, err := doc.Html(); err == nil {
			html = cleaned
		}
	}

	converter := md.NewConverter(url, true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", "", fmt.Errorf("failed to convert %s to markdown: %w", url, err)
	}

	return markdown, title, nil
}

// formatQA renders a question/answer pair as one retrievable text unit
func formatQA(question, answer string) string {
	return fmt.Sprintf("Q: %s\nA: %s", question, answer)
}

// markdownToText flattens markdown to plain text by walking the parsed
// AST and collecting text segments. Structure markers (headings, lists,
// tables) are dropped; block boundaries become newlines so the chunker
// still sees paragraph breaks.
func markdownToText(markdown string) string {
	source := []byte(markdown)
	parser := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	)
	doc := parser.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.HardLineBreak() || node.SoftLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.CodeBlock:
			writeLines(&sb, node, source)
		case *ast.FencedCodeBlock:
			writeLines(&sb, node, source)
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String())
}

func writeLines(sb *strings.Builder, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
}

package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// maxFetchSize caps the response body read from a URL.
const maxFetchSize = 20 * 1024 * 1024 // 20MB

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Fetcher retrieves web pages and reduces them to markdown documents.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads a page and returns it as a markdown document. Article
// extraction strips boilerplate first; if extraction finds nothing, the
// whole page body is converted instead.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}

	doc := &Document{ID: rawURL}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		doc.Title = article.Title
		markdown, convErr := convertHTML(article.Content)
		if convErr == nil {
			doc.Text = markdown
		}
	}

	if doc.Text == "" {
		f.logger.Debug("Article extraction found nothing, converting full page", "url", rawURL)
		title, markdown, convErr := htmlToMarkdown(body)
		if convErr != nil {
			return nil, fmt.Errorf("converting %s: %w", rawURL, convErr)
		}
		doc.Text = markdown
		if doc.Title == "" {
			doc.Title = title
		}
	}

	if doc.Title == "" {
		doc.Title = extractHTMLTitle(body)
	}
	if doc.Title == "" {
		doc.Title = parsed.Host + parsed.Path
	}

	return doc, nil
}

// newConverter builds the shared HTML to markdown converter.
func newConverter() *md.Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return conv
}

// convertHTML converts an HTML fragment to cleaned markdown.
func convertHTML(fragment string) (string, error) {
	markdown, err := newConverter().ConvertString(fragment)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(markdown), nil
}

// htmlToMarkdown converts a full HTML page, returning the page title and
// cleaned markdown body.
func htmlToMarkdown(page []byte) (title, markdown string, err error) {
	title = extractHTMLTitle(page)
	markdown, err = convertHTML(string(page))
	if err != nil {
		return "", "", err
	}
	if title == "" {
		title = markdownTitle(markdown)
	}
	return title, markdown, nil
}

// extractHTMLTitle pulls the <title> text out of an HTML page. The parser
// is forgiving, so malformed pages still yield whatever title exists.
func extractHTMLTitle(page []byte) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// cleanMarkdown collapses excessive blank lines and trims line endings.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

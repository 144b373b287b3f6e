package extraction

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
)

// Article holds what could be extracted from one article page. Empty fields
// mean the extraction failed for that field.
type Article struct {
	URL         string
	Title       string
	Authors     []string
	PublishedAt *time.Time
	Summary     string
	Content     string
	Tags        []string
}

// ExtractArticle parses an article page. The readable body, title and
// excerpt come from readability; authors, dates and tags come from the
// page's meta data.
func ExtractArticle(r io.Reader, pageURL *url.URL) (*Article, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	parsed, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}

	article := &Article{
		Title:   normalizeSpace(parsed.Title),
		Summary: normalizeSpace(parsed.Excerpt),
		Authors: metaAuthors(doc),
		Tags:    metaTags(doc),
	}
	if pageURL != nil {
		article.URL = pageURL.String()
	}

	if article.Title == "" {
		article.Title = normalizeSpace(firstMeta(doc, "og:title", "twitter:title"))
	}
	if article.Title == "" {
		article.Title = normalizeSpace(doc.Find("title").First().Text())
	}
	if article.Summary == "" {
		article.Summary = normalizeSpace(firstMeta(doc, "description", "og:description"))
	}

	if parsed.Content != "" {
		body, err := goquery.NewDocumentFromReader(strings.NewReader(parsed.Content))
		if err == nil {
			body.Find("script, style, figure, aside").Remove()
			article.Content = normalizeSpace(body.Text())
		}
	}

	article.PublishedAt = publishedAt(doc)
	return article, nil
}

// ParseAuthors splits a single author string into multiple authors if it
// contains common delimiters.
func ParseAuthors(authorText string) []string {
	authorText = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(authorText), "By "))
	if authorText == "" {
		return []string{}
	}

	for _, sep := range []string{", ", " and "} {
		if !strings.Contains(authorText, sep) {
			continue
		}

		authors := []string{}
		for part := range strings.SplitSeq(authorText, sep) {
			if part = strings.TrimSpace(part); part != "" {
				authors = append(authors, part)
			}
		}
		return authors
	}

	return []string{authorText}
}

func metaAuthors(doc *goquery.Document) []string {
	authors := []string{}
	seen := make(map[string]bool)

	add := func(text string) {
		for _, author := range ParseAuthors(normalizeSpace(text)) {
			if strings.HasPrefix(author, "http") || seen[author] {
				continue
			}
			seen[author] = true
			authors = append(authors, author)
		}
	}

	doc.Find(`meta[name="author"], meta[property="article:author"], meta[name="byl"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	if len(authors) == 0 {
		doc.Find(`[rel="author"], [itemprop="author"], .byline, .author`).Each(func(_ int, s *goquery.Selection) {
			add(s.Text())
		})
	}

	return authors
}

func metaTags(doc *goquery.Document) []string {
	tags := []string{}
	seen := make(map[string]bool)

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[strings.ToLower(tag)] {
			return
		}
		seen[strings.ToLower(tag)] = true
		tags = append(tags, tag)
	}

	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	doc.Find(`meta[name="keywords"], meta[name="news_keywords"]`).Each(func(_ int, s *goquery.Selection) {
		for tag := range strings.SplitSeq(s.AttrOr("content", ""), ",") {
			add(tag)
		}
	})

	return tags
}

// publishedAt reads the first parseable publication date from the usual
// meta tags, then from <time datetime>.
func publishedAt(doc *goquery.Document) *time.Time {
	candidates := []string{}
	doc.Find(`meta[property="article:published_time"], meta[name="pubdate"], meta[name="publishdate"], meta[name="date"], meta[itemprop="datePublished"], meta[name="dc.date"]`).Each(func(_ int, s *goquery.Selection) {
		candidates = append(candidates, s.AttrOr("content", ""))
	})
	doc.Find(`time[datetime]`).Each(func(_ int, s *goquery.Selection) {
		candidates = append(candidates, s.AttrOr("datetime", ""))
	})

	for _, value := range candidates {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if t, err := dateparse.ParseAny(value); err == nil {
			return &t
		}
	}
	return nil
}

func firstMeta(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		sel := fmt.Sprintf(`meta[name=%q], meta[property=%q]`, name, name)
		if content := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); content != "" {
			return content
		}
	}
	return ""
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

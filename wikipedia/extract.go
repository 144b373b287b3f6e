package wikipedia

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NotAvailable is written for sites whose official website could not be
// found.
const NotAvailable = "N/A"

// Link is a named page reference.
type Link struct {
	Name string
	URL  string
}

// CategoryLinks returns the members listed in the category groups of doc,
// resolved against base. Anchors pointing at the same page as the previous
// one are collapsed into a single member, and anchors without text are
// dropped.
func CategoryLinks(doc *goquery.Document, base *url.URL) []Link {
	var links []Link

	doc.Find("div.mw-category-group a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		link := Link{
			Name: strings.Join(strings.Fields(s.Text()), " "),
			URL:  base.ResolveReference(ref).String(),
		}

		if n := len(links); n > 0 && links[n-1].URL == link.URL {
			if links[n-1].Name == "" {
				links[n-1].Name = link.Name
			}
			return
		}
		links = append(links, link)
	})

	named := links[:0]
	for _, link := range links {
		if link.Name != "" {
			named = append(named, link)
		}
	}
	return named
}

// UniqueNames drops links whose name was already seen. The first one wins.
func UniqueNames(links []Link) []Link {
	seen := make(map[string]bool, len(links))
	unique := make([]Link, 0, len(links))
	for _, link := range links {
		if seen[link.Name] {
			continue
		}
		seen[link.Name] = true
		unique = append(unique, link)
	}
	return unique
}

// WebsiteLink finds the official website on an article page: the last
// external link in the infobox, else the first "Official website" anchor,
// else NotAvailable.
func WebsiteLink(doc *goquery.Document) string {
	website := ""
	doc.Find("td.infobox-data a[href]").Each(func(_ int, s *goquery.Selection) {
		if href := s.AttrOr("href", ""); strings.Contains(href, "http") {
			website = href
		}
	})
	if website != "" {
		return website
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.Text()), "official website") {
			website = s.AttrOr("href", "")
			return false
		}
		return true
	})
	if website != "" {
		return website
	}

	return NotAvailable
}

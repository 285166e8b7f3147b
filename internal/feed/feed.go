// Package feed renders the RSS feed, the sitemap and robots.txt.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/markdown"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/models"
)

const descriptionLength = 200

type Site struct {
	Title       string
	Description string
	BaseURL     string
}

func (s Site) url(path string) string {
	return strings.TrimSuffix(s.BaseURL, "/") + path
}

func (s Site) host() string {
	host := s.BaseURL
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	host, _, _ = strings.Cut(host, "/")
	host, _, _ = strings.Cut(host, ":")
	return host
}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Atom    string   `xml:"xmlns:atom,attr"`
	Channel channel  `xml:"channel"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type channel struct {
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language"`
	LastBuildDate string   `xml:"lastBuildDate"`
	AtomLink      atomLink `xml:"atom:link"`
	Items         []item   `xml:"item"`
}

type item struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	Author      string   `xml:"author"`
	Categories  []string `xml:"category,omitempty"`
}

// RSS renders an RSS 2.0 document for posts, which are expected newest first.
func RSS(site Site, posts []*models.Post, now time.Time) ([]byte, error) {
	doc := rss{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: channel{
			Title:         site.Title,
			Link:          site.url(""),
			Description:   site.Description,
			Language:      "en-US",
			LastBuildDate: now.UTC().Format(time.RFC1123Z),
			AtomLink: atomLink{
				Href: site.url("/rss.xml"),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: make([]item, 0, len(posts)),
		},
	}

	for _, post := range posts {
		link := site.url("/posts/" + post.Slug)
		it := item{
			Title:       post.Title,
			Link:        link,
			GUID:        link,
			Description: description(post),
			PubDate:     post.SortTime().UTC().Format(time.RFC1123Z),
			Author:      author(site, post.Author),
		}
		for _, c := range post.Categories {
			it.Categories = append(it.Categories, c.Name)
		}
		for _, t := range post.Tags {
			it.Categories = append(it.Categories, t.Name)
		}
		doc.Channel.Items = append(doc.Channel.Items, it)
	}

	return encode(doc)
}

func description(post *models.Post) string {
	if post.Excerpt != nil && strings.TrimSpace(*post.Excerpt) != "" {
		return *post.Excerpt
	}
	return stringutils.Truncate(markdown.PlainText(post.Content), descriptionLength) + "..."
}

func author(site Site, a *models.Author) string {
	email, name := "noreply@"+site.host(), "Anonymous"
	if a != nil {
		if a.Email != "" {
			email = a.Email
		}
		if a.Name != "" {
			name = a.Name
		}
	}
	return fmt.Sprintf("%s (%s)", email, name)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Location     string  `xml:"loc"`
	LastModified string  `xml:"lastmod,omitempty"`
	ChangeFreq   string  `xml:"changefreq,omitempty"`
	Priority     float32 `xml:"priority,omitempty"`
}

// Sitemap lists the static pages, every published post and every taxonomy page.
func Sitemap(site Site, posts []*models.Post, categories []*models.Category, tags []*models.Tag, now time.Time) ([]byte, error) {
	stamp := func(t time.Time) string { return t.UTC().Format(time.RFC3339) }

	set := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Location: site.url(""), LastModified: stamp(now), ChangeFreq: "daily", Priority: 1},
			{Location: site.url("/posts"), LastModified: stamp(now), ChangeFreq: "daily", Priority: 0.9},
			{Location: site.url("/search"), LastModified: stamp(now), ChangeFreq: "weekly", Priority: 0.8},
		},
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Location: site.url("/posts/" + p.Slug), LastModified: stamp(p.UpdatedAt), ChangeFreq: "weekly", Priority: 0.7,
		})
	}
	for _, c := range categories {
		set.URLs = append(set.URLs, sitemapURL{
			Location: site.url("/categories/" + c.Slug), LastModified: stamp(now), ChangeFreq: "weekly", Priority: 0.6,
		})
	}
	for _, t := range tags {
		set.URLs = append(set.URLs, sitemapURL{
			Location: site.url("/tags/" + t.Slug), LastModified: stamp(now), ChangeFreq: "weekly", Priority: 0.5,
		})
	}
	return encode(set)
}

// Robots keeps crawlers out of the API and the editor.
func Robots(site Site) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /create\n")
	b.WriteString("Disallow: /posts/*/edit\n")
	b.WriteString("\nSitemap: " + site.url("/sitemap.xml") + "\n")
	return b.String()
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, xerrors.Newf("encode xml: %w", err)
	}
	return buf.Bytes(), nil
}

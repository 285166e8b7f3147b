package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/feed"
	"github.com/siahsang/inkwell/internal/markdown"
	"github.com/siahsang/inkwell/models"
)

//go:embed templates static
var assets embed.FS

const layoutFile = "templates/base.layout.html"

// PageData is everything a page template can read.
type PageData struct {
	Site        feed.Site
	Title       string
	Path        string
	CurrentUser *models.User
	Flash       string
	FormError   string
	FormErrors  map[string]string
	Form        map[string]string

	Post       *models.Post
	Posts      []*models.Post
	Featured   []*models.Post
	Related    []*models.Post
	Drafts     []*models.Post
	Pagination *models.Pagination
	Comments   []*models.Comment
	Categories []*models.Category
	Tags       []*models.Tag
	Category   *models.Category
	Tag        *models.Tag
	Author     *models.Author
	Authors    []*models.Author
	Stats      *models.SiteStats
	Query      string
	RawQuery   string
	Status     string
	Heading    string
	StatusCode int
}

var functions = template.FuncMap{
	"markdown": func(source string) template.HTML {
		rendered, err := markdown.ToHTML(source)
		if err != nil {
			return template.HTML(template.HTMLEscapeString(source))
		}
		// ToHTML sanitises its output.
		return template.HTML(rendered)
	},
	"summary": func(p *models.Post) string {
		return markdown.Summary(p.Excerpt, p.Content, 160)
	},
	"formatDate": func(t any) string {
		switch v := t.(type) {
		case time.Time:
			if v.IsZero() {
				return ""
			}
			return v.Format("January 2, 2006")
		case *time.Time:
			if v == nil || v.IsZero() {
				return ""
			}
			return v.Format("January 2, 2006")
		}
		return ""
	},
	"rating": func(avg *float64) string {
		if avg == nil {
			return "not rated yet"
		}
		return strconv.FormatFloat(*avg, 'f', 1, 64)
	},
	"stars": func() []int { return []int{1, 2, 3, 4, 5} },
	"isRated": func(userRating *int, star int) bool {
		return userRating != nil && *userRating >= star
	},
	"pageURL": func(path string, query string, page int) string {
		values, _ := url.ParseQuery(query)
		values.Set("page", strconv.Itoa(page))
		return path + "?" + values.Encode()
	},
	"add": func(a, b int) int { return a + b },
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the layout, every page and the shared partials once.
func NewRenderer() (*Renderer, error) {
	pageFiles, err := fs.Glob(assets, "templates/*.page.html")
	if err != nil {
		return nil, xerrors.New(err)
	}
	partials, err := fs.Glob(assets, "templates/*.partial.html")
	if err != nil {
		return nil, xerrors.New(err)
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		files := append([]string{layoutFile, file}, partials...)
		ts, err := template.New("").Funcs(functions).ParseFS(assets, files...)
		if err != nil {
			return nil, xerrors.Newf("parse %s: %w", file, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".page.html")
		pages[name] = ts
	}
	return &Renderer{pages: pages}, nil
}

// Render executes page into a buffer first so a failing template never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data *PageData) error {
	ts, ok := r.pages[page]
	if !ok {
		return xerrors.Newf("page %q does not exist", page)
	}

	var buf bytes.Buffer
	if err := ts.ExecuteTemplate(&buf, "base", data); err != nil {
		return xerrors.Newf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet and scripts.
func Static() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static assets: %v", err))
	}
	return http.FS(sub)
}


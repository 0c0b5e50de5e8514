// Package sitemap renders the published content catalogue into a static
// sitemap.xml, regenerated on demand and served as a plain file.
package sitemap

import (
	"context"
	"database/sql"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/midnightspa/platform/internal/store"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type Generator struct {
	db      *sql.DB
	baseURL string
	path    string
}

func NewGenerator(db *sql.DB, baseURL, path string) *Generator {
	return &Generator{db: db, baseURL: baseURL, path: path}
}

func lastMod(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Build assembles the url set from every published entity plus the static
// pages. One entry per entity; unpublished rows never reach here because the
// store queries filter on published.
func (g *Generator) build(ctx context.Context) (*urlSet, error) {
	set := &urlSet{Xmlns: xmlns}

	now := time.Now()
	for _, page := range []struct {
		path     string
		priority string
		freq     string
	}{
		{"", "1.0", "daily"},
		{"/posts", "0.9", "daily"},
		{"/videos", "0.9", "daily"},
		{"/shop", "0.9", "daily"},
	} {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        g.baseURL + page.path,
			LastMod:    lastMod(now),
			ChangeFreq: page.freq,
			Priority:   page.priority,
		})
	}

	posts, err := store.ListPublishedPosts(ctx, g.db)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        g.baseURL + "/posts/" + p.Slug,
			LastMod:    lastMod(p.UpdatedAt),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	videos, err := store.ListPublishedVideos(ctx, g.db)
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        g.baseURL + "/videos/" + v.Slug,
			LastMod:    lastMod(v.UpdatedAt),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}

	products, err := store.ListPublishedProducts(ctx, g.db)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        g.baseURL + "/shop/" + p.Slug,
			LastMod:    lastMod(p.UpdatedAt),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	categories, err := store.ListPublishedCategories(ctx, g.db)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        g.baseURL + "/categories/" + c.Slug,
			LastMod:    lastMod(c.UpdatedAt),
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}

	subcategories, err := store.ListPublishedSubcategories(ctx, g.db)
	if err != nil {
		return nil, err
	}
	for _, s := range subcategories {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        g.baseURL + "/subcategories/" + s.Slug,
			LastMod:    lastMod(s.UpdatedAt),
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}

	return set, nil
}

// Generate writes the sitemap atomically and returns the entry count.
// Readers of the previous file never observe a partial write.
func (g *Generator) Generate(ctx context.Context) (int, error) {
	set, err := g.build(ctx)
	if err != nil {
		return 0, fmt.Errorf("build sitemap: %w", err)
	}

	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal sitemap: %w", err)
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create sitemap directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "sitemap-*.xml")
	if err != nil {
		return 0, fmt.Errorf("create temp sitemap: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(xml.Header); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write sitemap: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write sitemap: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp sitemap: %w", err)
	}

	if err := os.Rename(tmp.Name(), g.path); err != nil {
		return 0, fmt.Errorf("replace sitemap: %w", err)
	}

	return len(set.URLs), nil
}

// Path returns where Generate writes, for the file-serving handler.
func (g *Generator) Path() string {
	return g.path
}

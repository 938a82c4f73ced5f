// Package testutil serves a fake PARADISEC catalog for tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RootDoc lists a single sub-collection, SC1.
const RootDoc = `{"metadata": {"id": "PARADISEC", "name": "PARADISEC", "publisher": "PARADISEC",
	"contact": "admin@paradisec.org.au", "url": "https://catalog.paradisec.org.au"},
	"features": [{"properties": {"id": "SC1"}}]}`

// SC1Doc has one place, F1 "Site A", dated 2020-01-01 in epoch seconds.
const SC1Doc = `{"metadata": {"id": "SC1", "name": "Sub one", "publisher": "P", "contact": "c",
	"url": "https://catalog.paradisec.org.au/collections/SC1", "license": "CC BY", "rights": "Open"},
	"features": [{"properties": {"id": "F1", "name": "Site A", "url": "http://x", "udatestart": 1577836800},
	"geometry": {"type": "Point", "coordinates": [147.15, -9.47]}}]}`

// Catalog answers /collections.geo_json and /collections/{id}.geo_json from
// documents that tests may replace between runs. Unknown paths are 404.
type Catalog struct {
	URL string

	mu    sync.Mutex
	docs  map[string]string
	calls map[string]int
}

// NewCatalog starts a server holding RootDoc and SC1Doc.
func NewCatalog(t testing.TB) *Catalog {
	t.Helper()
	c := &Catalog{
		docs: map[string]string{
			"collections":     RootDoc,
			"collections/SC1": SC1Doc,
		},
		calls: make(map[string]int),
	}
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	c.URL = srv.URL
	return c
}

// BaseURL is the value for the feed client's base URL.
func (c *Catalog) BaseURL() string { return c.URL + "/collections" }

// Set replaces the document for name ("collections" or "collections/<id>").
func (c *Catalog) Set(name, doc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[name] = doc
}

// Calls reports how often name was requested.
func (c *Catalog) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *Catalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".geo_json")
	c.calls[name]++
	doc, ok := c.docs[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = io.WriteString(w, doc)
}

// WithSubCollections rewrites RootDoc to list the given ids.
func WithSubCollections(ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = `{"properties": {"id": "` + id + `"}}`
	}
	return strings.Replace(RootDoc, `[{"properties": {"id": "SC1"}}]`, "["+strings.Join(parts, ", ")+"]", 1)
}

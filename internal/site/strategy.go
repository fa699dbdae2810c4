package site

import (
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/boardaid/internal/model"
)

// ErrNoStrategy is returned when no registered strategy handles a URL.
var ErrNoStrategy = errors.New("no site strategy for url")

// Strategy parses one family of imageboard layouts.
type Strategy interface {
	// Name is the registry key of the strategy, e.g. "4chan".
	Name() string

	// ValidSiteStrategy reports whether the strategy handles the site.
	ValidSiteStrategy(siteURL string) bool

	// FindBoards maps board names to absolute board URLs.
	FindBoards(doc *goquery.Document) map[string]string

	// BoardPageCount returns the number of index pages of a board.
	BoardPageCount(doc *goquery.Document) int

	// ParsePage returns the thread links of one index page.
	ParsePage(doc *goquery.Document) []model.ThreadLink

	// ParseThread returns the posts of a thread in page order.
	ParseThread(doc *goquery.Document) []model.Post

	// ThreadNumber extracts the numeric thread id, 0 when absent.
	ThreadNumber(threadURL string) int

	// BoardShortcut extracts the board short code, "" when absent.
	BoardShortcut(boardURL string) string
}

// Registry resolves strategies by name or by site URL.
type Registry struct {
	strategies []Strategy
}

// NewRegistry creates a registry holding the given strategies.
// Lookups try them in order.
func NewRegistry(strategies ...Strategy) *Registry {
	return &Registry{strategies: strategies}
}

// DefaultRegistry returns a registry with every built-in strategy.
func DefaultRegistry() *Registry {
	return NewRegistry(NewFourChan())
}

// ForURL returns the first strategy that accepts siteURL.
func (r *Registry) ForURL(siteURL string) (Strategy, error) {
	for _, s := range r.strategies {
		if s.ValidSiteStrategy(siteURL) {
			return s, nil
		}
	}
	return nil, ErrNoStrategy
}

// ByName returns the strategy registered under name.
func (r *Registry) ByName(name string) (Strategy, error) {
	for _, s := range r.strategies {
		if strings.EqualFold(s.Name(), name) {
			return s, nil
		}
	}
	return nil, ErrNoStrategy
}

// Names lists the registered strategy names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name())
	}
	return names
}

// PageURLs builds the index page URLs of a board.
// Page 0 is the board URL itself, page i is the board URL followed by i.
func PageURLs(boardURL string, count int) []string {
	if count <= 0 {
		return nil
	}
	base := boardURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	urls := make([]string, 0, count)
	urls = append(urls, boardURL)
	for i := 1; i < count; i++ {
		urls = append(urls, base+strconv.Itoa(i))
	}
	return urls
}

// ParseDocument parses an HTML body and records pageURL as the document
// URL so that relative links can be resolved.
func ParseDocument(r io.Reader, pageURL string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	if u, err := url.Parse(pageURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// EmptyDocument returns a document without content. Crawls use it in
// place of pages that failed to load.
func EmptyDocument() *goquery.Document {
	return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
}

// resolve turns href into an absolute URL relative to the document.
func resolve(doc *goquery.Document, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	base := doc.Url
	if base == nil {
		if strings.HasPrefix(href, "//") {
			ref.Scheme = "http"
		}
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

package site

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/boardaid/internal/model"
)

// Selectors for the 4chan board layout.
const (
	fourChanBoardLink  = "a.boardlink"
	fourChanPageLinks  = "div.pages a, div.pages strong"
	fourChanReplyLink  = "a.replylink"
	fourChanPost       = "div.postContainer"
	fourChanComment    = "blockquote.postMessage"
	fourChanFileLink   = "div.fileText a"
	fourChanFileTitled = "div.fileText span[title]"
)

var (
	threadNumberPattern  = regexp.MustCompile(`/(?:res|thread)/(\d+)`)
	boardShortcutPattern = regexp.MustCompile(`^/([A-Za-z0-9]+)(?:/|$)`)
)

// FourChan parses 4chan and sites sharing its markup.
type FourChan struct{}

// NewFourChan creates the 4chan strategy.
func NewFourChan() *FourChan {
	return &FourChan{}
}

// Name implements Strategy.
func (f *FourChan) Name() string {
	return "4chan"
}

// ValidSiteStrategy implements Strategy.
func (f *FourChan) ValidSiteStrategy(siteURL string) bool {
	u, err := url.Parse(siteURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range []string{"4chan.org", "4channel.org"} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// FindBoards implements Strategy.
func (f *FourChan) FindBoards(doc *goquery.Document) map[string]string {
	boards := make(map[string]string)
	doc.Find(fourChanBoardLink).Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		href, ok := s.Attr("href")
		if name == "" || !ok {
			return
		}
		if abs := resolve(doc, href); abs != "" {
			boards[name] = abs
		}
	})
	return boards
}

// BoardPageCount implements Strategy. It counts the numbered entries of
// the page navigation, including the current page.
func (f *FourChan) BoardPageCount(doc *goquery.Document) int {
	seen := make(map[int]struct{})
	doc.Find(fourChanPageLinks).Each(func(_ int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(s.Text()), "[]"))
		if err != nil {
			return
		}
		seen[n] = struct{}{}
	})
	return len(seen)
}

// ParsePage implements Strategy. A thread linked twice on the same page
// is reported once.
func (f *FourChan) ParsePage(doc *goquery.Document) []model.ThreadLink {
	var links []model.ThreadLink
	seen := make(map[string]struct{})

	doc.Find(fourChanReplyLink).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs := resolve(doc, href)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, model.ThreadLink{URL: abs, Number: f.ThreadNumber(abs)})
	})
	return links
}

// ParseThread implements Strategy.
func (f *FourChan) ParseThread(doc *goquery.Document) []model.Post {
	var posts []model.Post

	doc.Find(fourChanPost).Each(func(_ int, s *goquery.Selection) {
		var post model.Post
		post.Comment = strings.TrimSpace(s.Find(fourChanComment).First().Text())

		link := s.Find(fourChanFileLink).First()
		if href, ok := link.Attr("href"); ok {
			post.ImageURL = resolve(doc, href)
			post.ImageName = strings.TrimSpace(link.Text())
			if title, ok := s.Find(fourChanFileTitled).First().Attr("title"); ok && strings.TrimSpace(title) != "" {
				post.ImageName = strings.TrimSpace(title)
			}
			if post.ImageName == "" {
				post.ImageName = lastSegment(post.ImageURL)
			}
		}
		posts = append(posts, post)
	})
	return posts
}

// ThreadNumber implements Strategy.
func (f *FourChan) ThreadNumber(threadURL string) int {
	u, err := url.Parse(threadURL)
	if err != nil {
		return 0
	}
	m := threadNumberPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// BoardShortcut implements Strategy.
func (f *FourChan) BoardShortcut(boardURL string) string {
	u, err := url.Parse(boardURL)
	if err != nil {
		return ""
	}
	m := boardShortcutPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[1]
}

func lastSegment(raw string) string {
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

package config

import (
	"net/url"
	"time"
)

// BoardEntry is one board to crawl.
type BoardEntry struct {
	// URL is the board index URL, e.g. https://boards.4chan.org/wg/.
	URL string `yaml:"url"`

	// Code overrides the board short code derived from the URL.
	Code string `yaml:"code,omitempty"`

	// Site names the site strategy. Empty selects it from the URL.
	Site string `yaml:"site,omitempty"`

	// Delay is the wait before the first crawl.
	Delay time.Duration `yaml:"delay,omitempty"`

	// Autostart starts the board with the session. Boards given on the
	// command line always start.
	Autostart bool `yaml:"autostart,omitempty"`
}

// Validate checks the board URL and delay.
func (b BoardEntry) Validate() error {
	u, err := url.Parse(b.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBoardURL
	}
	if b.Delay < 0 {
		return ErrInvalidBoardDelay
	}
	return nil
}

// Host returns the host of the board URL.
func (b BoardEntry) Host() string {
	u, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// SiteConfig holds request settings for one site host.
type SiteConfig struct {
	// Cookie is sent with every request to the site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// UserAgent overrides the global User-Agent for the site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

package config

import (
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "boardaid"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; boardaid/1.0; +https://github.com/nao1215/boardaid)"

	// DefaultWorkers is the number of concurrent image downloads.
	DefaultWorkers = 2

	// DefaultDownloadSleep is the pause each worker takes before a download.
	DefaultDownloadSleep = time.Second

	// DefaultMaxImageSize caps a single image download.
	DefaultMaxImageSize = 20 * 1024 * 1024

	// DefaultMaxPageSize caps a single HTML page.
	DefaultMaxPageSize = 5 * 1024 * 1024

	// DefaultRateLimit is the number of requests per second across all
	// boards and workers. Sites answer 503 and ban the address when
	// requests come in too fast.
	DefaultRateLimit = 2.0

	// DefaultRateBurst is the request burst allowed by the rate limit.
	DefaultRateBurst = 4

	// DefaultCrawlInterval is the time between two crawls of a board.
	DefaultCrawlInterval = time.Hour

	// DefaultCacheMaxAge is how long a downloaded image URL stays cached.
	DefaultCacheMaxAge = 3 * time.Hour

	// DefaultRefreshInterval is the period of the pending thread refresh.
	DefaultRefreshInterval = time.Minute

	// DefaultPoolSize bounds concurrent database connections.
	DefaultPoolSize = 4

	// DefaultAcquireTimeout bounds the wait for a database connection.
	DefaultAcquireTimeout = 5 * time.Second

	// DefaultAPIAddress is the listen address of the control API.
	DefaultAPIAddress = "127.0.0.1:8420"

	// FilterListFile is the file name of the persisted block lists.
	FilterListFile = "filterlist.yaml"
)

// Config holds every option of a boardaid session. It is filled from
// defaults, the configuration file and CLI flags, in that order.
type Config struct {
	// ConfigFilePath is the configuration file to load. When empty,
	// .boardaid.yaml is searched in the working and home directories.
	ConfigFilePath string

	// Boards are the boards to crawl.
	Boards []BoardEntry

	// Sites holds per-site request settings keyed by host.
	Sites map[string]SiteConfig

	// DataDir holds the database and the block list file.
	DataDir string

	// DownloadDir is the root of the local image store.
	DownloadDir string

	// FilterListPath is the YAML file the block lists are loaded from at
	// startup and saved to on shutdown.
	FilterListPath string

	// Workers is the number of concurrent image downloads.
	Workers int

	// DownloadSleep is the pause before each image download.
	DownloadSleep time.Duration

	// MaxImageSize caps a single image download in bytes.
	MaxImageSize int64

	// MaxPageSize caps a single HTML page in bytes.
	MaxPageSize int64

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// RateLimit is the global request rate in requests per second.
	// Zero disables the limit.
	RateLimit float64

	// RateBurst is the burst allowed by RateLimit.
	RateBurst int

	// CrawlInterval is the time between two crawls of a board.
	CrawlInterval time.Duration

	// CacheMaxAge is how long downloaded URLs stay cached.
	CacheMaxAge time.Duration

	// RefreshInterval is the period of the pending thread refresh.
	RefreshInterval time.Duration

	// PoolSize bounds concurrent database connections.
	PoolSize int

	// AcquireTimeout bounds the wait for a database connection.
	AcquireTimeout time.Duration

	// APIAddress is the listen address of the control API. Empty disables it.
	APIAddress string

	// S3 enables the S3 image store when S3.Bucket is set.
	S3 S3Config

	// Once runs every board a single time and exits when the downloads
	// are done.
	Once bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON.
	JSONLog bool
}

// S3Config describes an S3 compatible image store.
type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    bool   `yaml:"useSSL,omitempty"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Enabled reports whether images go to S3 instead of the local disk.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	dataDir := XDGDataDir()
	return &Config{
		Sites:           make(map[string]SiteConfig),
		DataDir:         dataDir,
		DownloadDir:     DefaultDownloadDir(),
		FilterListPath:  filepath.Join(dataDir, FilterListFile),
		Workers:         DefaultWorkers,
		DownloadSleep:   DefaultDownloadSleep,
		MaxImageSize:    DefaultMaxImageSize,
		MaxPageSize:     DefaultMaxPageSize,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		RateLimit:       DefaultRateLimit,
		RateBurst:       DefaultRateBurst,
		CrawlInterval:   DefaultCrawlInterval,
		CacheMaxAge:     DefaultCacheMaxAge,
		RefreshInterval: DefaultRefreshInterval,
		PoolSize:        DefaultPoolSize,
		AcquireTimeout:  DefaultAcquireTimeout,
		APIAddress:      DefaultAPIAddress,
	}
}

// XDGDataDir returns the XDG data directory for boardaid.
// On Linux: ~/.local/share/boardaid
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for boardaid.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultDownloadDir returns the picture directory of the user joined
// with the application name, e.g. ~/Pictures/boardaid.
func DefaultDownloadDir() string {
	return filepath.Join(xdg.UserDirs.Pictures, AppName)
}

// SetDataDir moves the data directory. A filter list kept in the previous
// data directory moves with it.
func (c *Config) SetDataDir(dir string) {
	if c.FilterListPath == filepath.Join(c.DataDir, FilterListFile) {
		c.FilterListPath = filepath.Join(dir, FilterListFile)
	}
	c.DataDir = dir
}

// SiteFor returns the request settings of host merged over the defaults
// of the configuration file.
func (c *Config) SiteFor(host string) SiteConfig {
	site := SiteConfig{UserAgent: c.UserAgent}
	if s, ok := c.Sites[host]; ok {
		if s.Cookie != "" {
			site.Cookie = s.Cookie
		}
		if s.UserAgent != "" {
			site.UserAgent = s.UserAgent
		}
	}
	return site
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Boards) == 0 {
		return ErrNoBoards
	}
	for _, b := range c.Boards {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.DownloadSleep < 0 {
		return ErrInvalidDownloadSleep
	}
	if c.MaxImageSize <= 0 || c.MaxPageSize <= 0 {
		return ErrInvalidMaxSize
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.CrawlInterval <= 0 || c.RefreshInterval <= 0 || c.CacheMaxAge <= 0 {
		return ErrInvalidInterval
	}
	if c.PoolSize <= 0 {
		return ErrInvalidPoolSize
	}
	if c.ProxyAddress != "" {
		if _, _, err := net.SplitHostPort(c.ProxyAddress); err != nil {
			return ErrInvalidProxyAddress
		}
	}
	if c.DataDir == "" || (c.DownloadDir == "" && !c.S3.Enabled()) {
		return ErrNoDirectory
	}
	return nil
}

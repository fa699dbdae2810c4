package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".boardaid.yaml"

// Settings are the global options of the configuration file. Zero values
// keep the current setting.
type Settings struct {
	DataDir         string        `yaml:"dataDir,omitempty"`
	DownloadDir     string        `yaml:"downloadDir,omitempty"`
	FilterList      string        `yaml:"filterList,omitempty"`
	Workers         int           `yaml:"workers,omitempty"`
	DownloadSleep   time.Duration `yaml:"downloadSleep,omitempty"`
	MaxImageSize    int64         `yaml:"maxImageSize,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	UserAgent       string        `yaml:"userAgent,omitempty"`
	Proxy           string        `yaml:"proxy,omitempty"`
	RateLimit       float64       `yaml:"rateLimit,omitempty"`
	RateBurst       int           `yaml:"rateBurst,omitempty"`
	CrawlInterval   time.Duration `yaml:"crawlInterval,omitempty"`
	CacheMaxAge     time.Duration `yaml:"cacheMaxAge,omitempty"`
	RefreshInterval time.Duration `yaml:"refreshInterval,omitempty"`
	API             string        `yaml:"api,omitempty"`
	DisableAPI      bool          `yaml:"disableAPI,omitempty"`
}

// File represents the structure of the .boardaid.yaml configuration file.
type File struct {
	// Boards are the boards to crawl.
	Boards []BoardEntry `yaml:"boards,omitempty"`

	// Sites maps hosts (e.g. "boards.4chan.org") to request settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Settings overrides the global defaults.
	Settings Settings `yaml:"settings,omitempty"`

	// S3 configures the optional S3 image store. Credentials come from
	// the environment only.
	S3 S3Config `yaml:"s3,omitempty"`
}

// LoadConfigFile loads a configuration file. If the file does not exist,
// it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .boardaid.yaml in the current directory
// 3. Look for .boardaid.yaml in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Apply merges the file into c. Boards are appended; settings override
// the current values when set.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	c.Boards = append(c.Boards, f.Boards...)
	if c.Sites == nil {
		c.Sites = make(map[string]SiteConfig)
	}
	for host, s := range f.Sites {
		c.Sites[host] = s
	}

	s := f.Settings
	if s.DataDir != "" {
		c.SetDataDir(s.DataDir)
	}
	setString(&c.DownloadDir, s.DownloadDir)
	setString(&c.FilterListPath, s.FilterList)
	setString(&c.UserAgent, s.UserAgent)
	setString(&c.ProxyAddress, s.Proxy)
	setString(&c.APIAddress, s.API)
	if s.DisableAPI {
		c.APIAddress = ""
	}
	if s.Workers != 0 {
		c.Workers = s.Workers
	}
	if s.RateBurst != 0 {
		c.RateBurst = s.RateBurst
	}
	if s.RateLimit != 0 {
		c.RateLimit = s.RateLimit
	}
	if s.MaxImageSize != 0 {
		c.MaxImageSize = s.MaxImageSize
	}
	setDuration(&c.DownloadSleep, s.DownloadSleep)
	setDuration(&c.Timeout, s.Timeout)
	setDuration(&c.CrawlInterval, s.CrawlInterval)
	setDuration(&c.CacheMaxAge, s.CacheMaxAge)
	setDuration(&c.RefreshInterval, s.RefreshInterval)

	c.S3.Endpoint = f.S3.Endpoint
	c.S3.Bucket = f.S3.Bucket
	c.S3.Region = f.S3.Region
	c.S3.Prefix = f.S3.Prefix
	c.S3.UseSSL = f.S3.UseSSL
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoBoards is returned when no board is configured.
	ErrNoBoards = errors.New("no boards configured: add boards to the configuration file or pass board URLs")

	// ErrInvalidBoardURL is returned for a board URL that is not absolute http(s).
	ErrInvalidBoardURL = errors.New("invalid board url: must be an absolute http or https url")

	// ErrInvalidBoardDelay is returned for a negative board start delay.
	ErrInvalidBoardDelay = errors.New("invalid board delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidDownloadSleep is returned for a negative download sleep.
	ErrInvalidDownloadSleep = errors.New("invalid download sleep: must be non-negative")

	// ErrInvalidMaxSize is returned when a size cap is not positive.
	ErrInvalidMaxSize = errors.New("invalid size limit: must be positive")

	// ErrInvalidRateLimit is returned for a negative rate limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidInterval is returned when a schedule interval is not positive.
	ErrInvalidInterval = errors.New("invalid interval: must be positive")

	// ErrInvalidPoolSize is returned when the database pool size is not positive.
	ErrInvalidPoolSize = errors.New("invalid pool size: must be positive")

	// ErrInvalidProxyAddress is returned when the proxy is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrNoDirectory is returned when a required directory is empty.
	ErrNoDirectory = errors.New("data and download directories must be set")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

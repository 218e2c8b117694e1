package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "citestrade"

	// DefaultURL is the CITES Trade Database bulk download endpoint.
	// The server renames the archive at response time, so the local file
	// name is learned from the Content-Disposition header.
	DefaultURL = "https://trade.cites.org/cites_trade/download_db"

	// DefaultFilename is used when the endpoint does not send a
	// Content-Disposition header.
	DefaultFilename = "trade_database.zip"

	// DefaultTimeout bounds a single HTTP request. The archive is several
	// hundred megabytes, so this is deliberately generous.
	DefaultTimeout = 30 * time.Minute

	// DefaultBlockSize is the size of each block written while streaming
	// the archive to disk.
	DefaultBlockSize = 1024

	// DefaultChunkBlocks is the number of hash blocks read per chunk when
	// computing a checksum.
	DefaultChunkBlocks = 128

	// DefaultReadConcurrency reads extracted CSV files one at a time.
	DefaultReadConcurrency = 1

	// DefaultUserAgent identifies citestrade in HTTP requests.
	DefaultUserAgent = "citestrade/1.0 (+https://github.com/nao1215/citestrade)"
)

// Config holds all configuration options for citestrade.
// It is populated from defaults, the optional configuration file and CLI
// flags, in that order, and passed down explicitly.
type Config struct {
	// URL is the remote endpoint serving the zip archive.
	URL string

	// DefaultFilename is the archive name used when the endpoint does not
	// advertise one.
	DefaultFilename string

	// CacheDir holds the downloaded archive and the extracted CSV files.
	CacheDir string

	// DataDir holds the combined dataset and the history database.
	DataDir string

	// DatasetVersion selects the checksum registry entry.
	// Empty means the registry's current version.
	DatasetVersion string

	// RegistryFile is an optional YAML checksum registry that replaces the
	// embedded one.
	RegistryFile string

	// ChunkBlocks is the number of hash blocks read per checksum chunk.
	ChunkBlocks int

	// Timeout is the HTTP client timeout. Zero disables it.
	Timeout time.Duration

	// BlockSize is the streaming block size for downloads.
	BlockSize int

	// ProxyAddress routes downloads through a SOCKS5 proxy ("host:port").
	// Empty means a direct connection.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ReadConcurrency is the number of CSV files parsed at once by the
	// combiner. Output order never depends on it.
	ReadConcurrency int

	// StrictSchema rejects extracted CSV files whose column sets differ.
	StrictSchema bool

	// ForceUpdate downloads the archive even if it already exists locally.
	ForceUpdate bool

	// Cleanup deletes the archive and the extracted CSV files once the
	// combined dataset has been produced.
	Cleanup bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .citestrade is searched in the current and home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		URL:             DefaultURL,
		DefaultFilename: DefaultFilename,
		CacheDir:        XDGCacheDir(),
		DataDir:         XDGDataDir(),
		ChunkBlocks:     DefaultChunkBlocks,
		Timeout:         DefaultTimeout,
		BlockSize:       DefaultBlockSize,
		UserAgent:       DefaultUserAgent,
		ReadConcurrency: DefaultReadConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for citestrade.
// On Linux: ~/.local/share/citestrade
// On macOS: ~/Library/Application Support/citestrade
// On Windows: %LOCALAPPDATA%\citestrade
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for citestrade.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for citestrade.
// On Linux: ~/.cache/citestrade
// On macOS: ~/Library/Caches/citestrade
// On Windows: %LOCALAPPDATA%\citestrade\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrEmptyURL
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	if c.DefaultFilename == "" {
		return ErrEmptyDefaultFilename
	}

	if c.CacheDir == "" {
		return ErrEmptyCacheDir
	}

	if c.DataDir == "" {
		return ErrEmptyDataDir
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}

	if c.ChunkBlocks <= 0 {
		return ErrInvalidChunkBlocks
	}

	if c.ReadConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	return nil
}

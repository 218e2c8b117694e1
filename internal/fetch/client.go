package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// Default client settings.
const (
	// DefaultBlockSize is the number of bytes written per streaming block.
	DefaultBlockSize = 1024

	// DefaultTimeout bounds a single request, including the body transfer.
	DefaultTimeout = 30 * time.Minute

	// DefaultFilename is used when the endpoint does not name the archive.
	DefaultFilename = "trade_database.zip"

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// Client downloads the trade database archive.
type Client struct {
	httpClient      *http.Client
	proxyAddress    string
	userAgent       string
	blockSize       int
	defaultFilename string
	progressOut     io.Writer
	logger          *slog.Logger
	timeout         time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithProxy routes all connections through the SOCKS5 proxy at
// address ("host:port"). An empty address means a direct connection.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithBlockSize sets the streaming block size in bytes.
func WithBlockSize(n int) Option {
	return func(c *Client) {
		c.blockSize = n
	}
}

// WithDefaultFilename sets the archive name used when the endpoint sends
// no Content-Disposition header.
func WithDefaultFilename(name string) Option {
	return func(c *Client) {
		c.defaultFilename = name
	}
}

// WithProgressOutput sets where download progress is drawn.
// A nil writer disables progress output.
func WithProgressOutput(w io.Writer) Option {
	return func(c *Client) {
		c.progressOut = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client. Proxy, timeout and
// User-Agent options are not applied to a replaced client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client. It validates the proxy address but does not
// contact the proxy.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		blockSize:       DefaultBlockSize,
		defaultFilename: DefaultFilename,
		timeout:         DefaultTimeout,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}

	if c.httpClient != nil {
		return c, nil
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		// Content-Length must describe the bytes on disk for the progress total.
		DisableCompression: true,
	}

	if c.proxyAddress != "" {
		if !isValidProxyAddress(c.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	var rt http.RoundTripper = transport
	if c.userAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: c.userAgent}
	}

	c.httpClient = &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c, nil
}

// dialContext adapts a proxy dialer to http.Transport. Dialers that
// support contexts use them; others are dialed in a goroutine so that a
// cancelled context still returns promptly.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// isValidProxyAddress checks for a "host:port" address with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// ProxyAddress returns the configured SOCKS5 proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// BlockSize returns the streaming block size.
func (c *Client) BlockSize() int {
	return c.blockSize
}

// userAgentTransport sets the User-Agent header on every request,
// including redirects.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// Package fetch talks to the remote trade database endpoint.
//
// It resolves the archive file name from the endpoint's Content-Disposition
// header and streams the archive to disk with a progress indicator. The
// HTTP client can route through a SOCKS5 proxy.
package fetch

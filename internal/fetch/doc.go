// Package fetch retrieves board pages and image payloads over HTTP.
//
// A Client can route through a SOCKS5 proxy and throttles all requests
// through a shared rate limiter. Non-200 responses are reported as
// *StatusError so callers can tell remote answers apart from transport
// failures.
package fetch

// Package fetch retrieves resources over HTTP for the crawler.
//
// HTTPFetcher sends GET requests with the configured User-Agent, headers and
// cookie, transparently decodes gzip, deflate and brotli bodies, caps the body
// size and optionally limits the overall request rate. The transport can be
// replaced, which is how traffic is routed through a SOCKS5 proxy or Tor.
//
// A Fetcher reports transport failures as errors. HTTP error statuses are not
// errors: the returned Page carries the status code and the caller decides.
package fetch

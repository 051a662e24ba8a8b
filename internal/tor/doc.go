// Package tor routes sitescan's traffic through a SOCKS5 proxy, usually Tor.
//
// Client wraps a SOCKS5 dialer: Transport plugs it into the fetcher and
// Probe lets the connectivity guard treat "the proxy answers SOCKS5" as
// "online". EmbeddedTor starts a private Tor daemon with tornago for
// --tor runs. ValidateOnionHost checks v3 onion seeds before a run starts.
package tor

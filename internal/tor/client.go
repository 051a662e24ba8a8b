package tor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkTimeout bounds one proxy check.
const checkTimeout = 2 * time.Second

// SOCKS5 wire constants used by CheckConnection.
const (
	socks5Version    = 0x05
	socks5AuthNone   = 0x00
	socks5CmdConnect = 0x01
	socks5AddrDomain = 0x03

	// probeHost is never resolved; only the proxy's reply to the CONNECT
	// request matters.
	probeHost = "sitescan-probe.invalid"
)

// Client dials through a SOCKS5 proxy.
type Client struct {
	proxyAddress string
	dialer       proxy.Dialer
	timeout      time.Duration
	insecureTLS  bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the dial and TLS handshake timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithInsecureSkipVerify disables certificate verification. Onion services
// commonly serve self-signed certificates; the onion address itself already
// authenticates the service.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *Client) {
		c.insecureTLS = skip
	}
}

// NewClient creates a Client for the proxy at "host:port". The proxy is not
// contacted; call CheckConnection or Probe for that.
func NewClient(proxyAddress string, opts ...ClientOption) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	c := &Client{
		proxyAddress: proxyAddress,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, &net.Dialer{Timeout: c.timeout})
	if err != nil {
		return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
	}
	c.dialer = dialer
	return c, nil
}

func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// DialContext connects to address through the proxy.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Transport returns an http.RoundTripper that dials through the proxy.
// Compression is left to the caller so fetch can decode brotli as well.
func (c *Client) Transport() http.RoundTripper {
	return &http.Transport{
		DialContext: c.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.insecureTLS, //nolint:gosec // opt-in for onion services
			MinVersion:         tls.VersionTLS12,
		},
		TLSHandshakeTimeout: c.timeout,
		// Each connection holds a circuit, so the pool stays small.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
}

// Probe reports whether the proxy is usable. It satisfies crawler.Probe.
func (c *Client) Probe(ctx context.Context) error {
	return c.CheckConnection(ctx).Err()
}

// CheckConnection performs a SOCKS5 greeting and a CONNECT request against
// the proxy. Any well-formed reply to the CONNECT, including a failure code,
// proves that the proxy is relaying.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return ProxyStatusCannotConnect
	}
	return handshake(conn)
}

func handshake(conn net.Conn) ProxyStatus {
	if _, err := conn.Write([]byte{socks5Version, 1, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}
	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailure(err)
	}
	if reply[0] != socks5Version || reply[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrDomain, byte(len(probeHost))}
	req = append(req, probeHost...)
	req = append(req, 0x00, 80)
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	head := make([]byte, 4)
	if _, err := io.ReadFull(conn, head); err != nil {
		return readFailure(err)
	}
	if head[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

func readFailure(err error) ProxyStatus {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

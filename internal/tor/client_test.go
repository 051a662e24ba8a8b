package tor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient("127.0.0.1:9050", WithTimeout(5*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "127.0.0.1:9050" {
			t.Errorf("ProxyAddress() = %q", client.ProxyAddress())
		}
		if client.timeout != 5*time.Second {
			t.Errorf("timeout = %v", client.timeout)
		}
	})

	t.Run("invalid addresses are rejected", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"", "localhost", ":9050", "localhost:", "a:b:c", "localhost:0", "localhost:65536", "localhost:port"} {
			if _, err := NewClient(addr); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("NewClient(%q): expected ErrInvalidProxyAddress, got %v", addr, err)
			}
		}
	})
}

func TestClient_Transport(t *testing.T) {
	t.Parallel()

	t.Run("verifies certificates by default", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient("127.0.0.1:9050")
		if err != nil {
			t.Fatal(err)
		}
		tr, ok := client.Transport().(*http.Transport)
		if !ok {
			t.Fatal("expected *http.Transport")
		}
		if tr.TLSClientConfig.InsecureSkipVerify {
			t.Error("expected certificate verification")
		}
		if tr.DialContext == nil {
			t.Error("expected a proxy dialer")
		}
	})

	t.Run("insecure option for onion services", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient("127.0.0.1:9050", WithInsecureSkipVerify(true))
		if err != nil {
			t.Fatal(err)
		}
		if tr := client.Transport().(*http.Transport); !tr.TLSClientConfig.InsecureSkipVerify {
			t.Error("expected verification to be skipped")
		}
	})
}

// serveOnce accepts one connection and hands it to handle.
func serveOnce(t *testing.T, handle func(net.Conn)) string {
	t.Helper()

	var lc net.ListenConfig
	listener, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()
	return listener.Addr().String()
}

func TestClient_CheckConnection(t *testing.T) {
	t.Parallel()

	t.Run("OK for a SOCKS5 proxy", func(t *testing.T) {
		t.Parallel()

		socks := func(conn net.Conn) {
			greeting := make([]byte, 3)
			_, _ = io.ReadFull(conn, greeting)
			_, _ = conn.Write([]byte{0x05, 0x00})
			req := make([]byte, 5+len(probeHost)+2)
			_, _ = io.ReadFull(conn, req)
			// Host unreachable is still a proper SOCKS5 reply.
			_, _ = conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		}

		client, err := NewClient(serveOnce(t, socks))
		if err != nil {
			t.Fatal(err)
		}
		if status := client.CheckConnection(t.Context()); status != ProxyStatusOK {
			t.Errorf("status = %v", status)
		}

		// Each check dials the proxy again, so Probe needs its own listener.
		probing, err := NewClient(serveOnce(t, socks))
		if err != nil {
			t.Fatal(err)
		}
		if err := probing.Probe(t.Context()); err != nil {
			t.Errorf("Probe: %v", err)
		}
	})

	t.Run("WrongType for an HTTP server", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		})

		client, err := NewClient(addr)
		if err != nil {
			t.Fatal(err)
		}
		if status := client.CheckConnection(t.Context()); status != ProxyStatusWrongType {
			t.Errorf("status = %v", status)
		}
	})

	t.Run("WrongType when authentication is required", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			_, _ = conn.Write([]byte{0x05, 0xFF})
		})

		client, err := NewClient(addr)
		if err != nil {
			t.Fatal(err)
		}
		if err := client.Probe(t.Context()); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("CannotConnect for a closed port", func(t *testing.T) {
		t.Parallel()

		var lc net.ListenConfig
		listener, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := listener.Addr().String()
		_ = listener.Close()

		client, err := NewClient(addr)
		if err != nil {
			t.Fatal(err)
		}
		if err := client.Probe(t.Context()); !errors.Is(err, ErrProxyCannotConnect) {
			t.Errorf("expected ErrProxyCannotConnect, got %v", err)
		}
	})

	t.Run("Timeout for a silent server", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			_, _ = io.Copy(io.Discard, conn)
		})

		client, err := NewClient(addr)
		if err != nil {
			t.Fatal(err)
		}
		if status := client.CheckConnection(t.Context()); status != ProxyStatusTimeout {
			t.Errorf("status = %v", status)
		}
	})
}

func TestClient_DialContext_Cancelled(t *testing.T) {
	t.Parallel()

	client, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := client.DialContext(ctx, "tcp", "example.com:80"); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestProxyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ProxyStatus
		str    string
		err    error
	}{
		{ProxyStatusOK, "OK", nil},
		{ProxyStatusWrongType, "wrong type (not SOCKS5)", ErrProxyNotSOCKS5},
		{ProxyStatusCannotConnect, "cannot connect", ErrProxyCannotConnect},
		{ProxyStatusTimeout, "timeout", ErrProxyTimeout},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.status.Err(); !errors.Is(got, tt.err) {
			t.Errorf("Err() = %v, want %v", got, tt.err)
		}
	}
	if ProxyStatus(99).String() != "unknown" || ProxyStatus(99).Err() == nil {
		t.Error("expected unknown status handling")
	}
}

package crawler

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Probe reports whether the network is reachable.
type Probe interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) error

// Probe implements Probe.
func (f ProbeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// DialProbe opens and closes a TCP connection to a well-known endpoint.
type DialProbe struct {
	// Address is the host:port to dial, e.g. "8.8.8.8:53".
	Address string

	// Timeout bounds a single attempt.
	Timeout time.Duration
}

// Probe implements Probe.
func (p DialProbe) Probe(ctx context.Context) error {
	dialer := net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// ConnectivityGuard suspends the caller while the network is unreachable.
//
// A nil guard, or one without a probe, always reports the network as online.
type ConnectivityGuard struct {
	probe    Probe
	interval time.Duration
	logger   *slog.Logger
}

// NewConnectivityGuard creates a guard that retries the probe every interval.
func NewConnectivityGuard(probe Probe, interval time.Duration, logger *slog.Logger) *ConnectivityGuard {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ConnectivityGuard{
		probe:    probe,
		interval: interval,
		logger:   logger,
	}
}

// EnsureOnline returns once the probe succeeds. It keeps polling without a
// retry limit and only gives up when ctx is cancelled.
func (g *ConnectivityGuard) EnsureOnline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g == nil || g.probe == nil {
		return nil
	}

	for {
		err := g.probe.Probe(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		g.logger.Warn("offline, waiting to reconnect", "error", err, "retry_in", g.interval)

		timer := time.NewTimer(g.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// internal/monitoring/checker.go - TCP reachability probe
package monitoring

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultPort is used when a target carries no explicit port.
	DefaultPort = 80

	// ProbeTimeout bounds a single connection attempt.
	ProbeTimeout = 5 * time.Second
)

// CheckResult is the outcome of a single reachability probe. LatencyMS is
// set only on success. Reason is set only for transport failures; a
// timeout yields a failure with no reason.
type CheckResult struct {
	TargetID  string
	Success   bool
	LatencyMS *float64
	Reason    string
	CheckedAt time.Time
}

// Prober performs one bounded reachability check against host:port.
type Prober interface {
	Probe(ctx context.Context, host string, port *int) CheckResult
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// TCPProber probes by opening a single outbound TCP connection. The dial
// and the timeout race through a one-shot result channel, so exactly one
// outcome resolves the check even when both fire close together.
type TCPProber struct {
	timeout time.Duration
	dial    dialFunc
}

func NewTCPProber(timeout time.Duration) *TCPProber {
	if timeout <= 0 {
		timeout = ProbeTimeout
	}
	d := &net.Dialer{}
	return &TCPProber{
		timeout: timeout,
		dial:    d.DialContext,
	}
}

type dialOutcome struct {
	conn net.Conn
	err  error
}

func (p *TCPProber) Probe(ctx context.Context, host string, port *int) CheckResult {
	addr := net.JoinHostPort(host, strconv.Itoa(portOrDefault(port)))

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	outcome := make(chan dialOutcome, 1)
	go func() {
		conn, err := p.dial(ctx, "tcp", addr)
		outcome <- dialOutcome{conn: conn, err: err}
	}()

	select {
	case o := <-outcome:
		if o.err != nil {
			result := CheckResult{Success: false, CheckedAt: time.Now()}
			if ctx.Err() == nil {
				// Transport failure: DNS, refused, unreachable.
				result.Reason = o.err.Error()
			}
			return result
		}
		o.conn.Close()
		latency := time.Since(start).Seconds() * 1000
		return CheckResult{
			Success:   true,
			LatencyMS: &latency,
			CheckedAt: time.Now(),
		}

	case <-ctx.Done():
		// Timeout wins the race. Tear down a dial that lands late.
		go func() {
			if o := <-outcome; o.conn != nil {
				o.conn.Close()
			}
		}()
		logrus.WithFields(logrus.Fields{
			"addr":    addr,
			"timeout": p.timeout,
		}).Debug("Probe timed out")
		return CheckResult{Success: false, CheckedAt: time.Now()}
	}
}

func portOrDefault(port *int) int {
	if port != nil {
		return *port
	}
	return DefaultPort
}

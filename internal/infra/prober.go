package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

const (
	// DefaultPayloadSize matches the pro-bing default echo payload.
	DefaultPayloadSize = 24
	// MinPayloadSize is the room pro-bing needs for its timestamp and tracker.
	MinPayloadSize = 24
)

type ProberOptions struct {
	Privileged bool
	Size       int
	// Network is "ip", "ip4" or "ip6".
	Network string
}

// Validate rejects options pro-bing would refuse on every attempt.
func (o ProberOptions) Validate() error {
	if o.Size < MinPayloadSize {
		return fmt.Errorf("payload size %d is below the minimum of %d bytes", o.Size, MinPayloadSize)
	}
	switch o.Network {
	case "", "ip", "ip4", "ip6":
	default:
		return fmt.Errorf("unknown network %q (ip|ip4|ip6)", o.Network)
	}
	return nil
}

func DefaultProberOptions() ProberOptions {
	return ProberOptions{
		Privileged: defaultPrivileged,
		Size:       DefaultPayloadSize,
		Network:    "ip",
	}
}

// ICMPProber sends one echo request per Probe call. The target is resolved on
// the first call and the address is reused afterwards. An instance belongs to
// a single run and must not be shared between concurrent runs.
type ICMPProber struct {
	opts ProberOptions

	mu       sync.Mutex
	target   string
	resolved *net.IPAddr
}

func NewICMPProber(opts ProberOptions) *ICMPProber {
	if opts.Size <= 0 {
		opts.Size = DefaultPayloadSize
	}
	if opts.Network == "" {
		opts.Network = "ip"
	}
	return &ICMPProber{opts: opts}
}

func (p *ICMPProber) Probe(ctx context.Context, target string, timeout time.Duration) (domain.ProbeOutcome, error) {
	if err := p.opts.Validate(); err != nil {
		return domain.ProbeOutcome{}, fmt.Errorf("probe %s: %w", target, err)
	}

	addr, err := p.resolve(target)
	if err != nil {
		return domain.ProbeOutcome{}, err
	}

	pinger := probing.New(target)
	pinger.SetNetwork(p.opts.Network)
	pinger.SetIPAddr(addr)
	pinger.SetPrivileged(p.opts.Privileged)
	pinger.Count = 1
	pinger.Size = p.opts.Size
	pinger.Timeout = timeout
	pinger.RecordRtts = false

	var reply *probing.Packet
	pinger.OnRecv = func(pkt *probing.Packet) {
		if reply == nil {
			reply = pkt
		}
	}

	runErr := pinger.RunWithContext(ctx)
	if reply != nil {
		return domain.ProbeOutcome{
			Succeeded:         true,
			RoundTripMillis:   reply.Rtt.Milliseconds(),
			RespondingAddress: reply.IPAddr.IP,
			Bytes:             reply.Nbytes,
		}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.ProbeOutcome{}, ctxErr
	}

	status, err := classifyRunError(runErr)
	if err != nil {
		return domain.ProbeOutcome{}, fmt.Errorf("probe %s: %w", target, err)
	}
	return domain.ProbeOutcome{FailureStatus: status}, nil
}

// ResolvedAddr returns the address resolved by the first probe, if any.
func (p *ICMPProber) ResolvedAddr() net.IP {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved == nil {
		return nil
	}
	return p.resolved.IP
}

func (p *ICMPProber) resolve(target string) (*net.IPAddr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil && p.target == target {
		return p.resolved, nil
	}

	pinger := probing.New(target)
	pinger.SetNetwork(p.opts.Network)
	if err := pinger.Resolve(); err != nil {
		return nil, &domain.UnresolvableTargetError{Target: target, Err: err}
	}

	p.target = target
	p.resolved = pinger.IPAddr()
	return p.resolved, nil
}

// classifyRunError maps a transport error onto a per-attempt status. Errors
// that are not about the network path, like a socket we may not open, are
// returned as hard failures.
func classifyRunError(err error) (domain.FailureStatus, error) {
	switch {
	case err == nil:
		return domain.StatusTimedOut, nil
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return domain.StatusDestinationUnreachable, nil
	case errors.Is(err, syscall.EPERM), errors.Is(err, syscall.EACCES):
		return "", err
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return domain.StatusTimedOut, nil
		}
		return domain.StatusUnknown, nil
	}
}

package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyRunError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    domain.FailureStatus
		wantErr bool
	}{
		{name: "no reply", err: nil, want: domain.StatusTimedOut},
		{name: "network unreachable", err: &net.OpError{Op: "write", Err: os.NewSyscallError("sendto", syscall.ENETUNREACH)}, want: domain.StatusDestinationUnreachable},
		{name: "host unreachable", err: fmt.Errorf("send: %w", syscall.EHOSTUNREACH), want: domain.StatusDestinationUnreachable},
		{name: "read timeout", err: &net.OpError{Op: "read", Err: timeoutError{}}, want: domain.StatusTimedOut},
		{name: "socket not permitted", err: &net.OpError{Op: "listen", Err: os.NewSyscallError("socket", syscall.EPERM)}, wantErr: true},
		{name: "access denied", err: syscall.EACCES, wantErr: true},
		{name: "anything else", err: errors.New("checksum mismatch"), want: domain.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := classifyRunError(tt.err)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected a hard error, got status %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveLiteralAddress(t *testing.T) {
	p := NewICMPProber(DefaultProberOptions())
	if p.ResolvedAddr() != nil {
		t.Fatalf("nothing resolved yet")
	}

	addr, err := p.resolve("127.0.0.1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !addr.IP.Equal(net.ParseIP("127.0.0.1")) {
		t.Fatalf("unexpected address %v", addr.IP)
	}
	if !p.ResolvedAddr().Equal(net.ParseIP("127.0.0.1")) {
		t.Fatalf("resolved address must be cached, got %v", p.ResolvedAddr())
	}

	again, err := p.resolve("127.0.0.1")
	if err != nil || again != addr {
		t.Fatalf("expected cached address, got %v, %v", again, err)
	}
}

func TestProbeUnresolvableTarget(t *testing.T) {
	p := NewICMPProber(DefaultProberOptions())

	_, err := p.Probe(context.Background(), "no-such-host.invalid", time.Second)

	var target *domain.UnresolvableTargetError
	if !errors.As(err, &target) {
		t.Fatalf("expected UnresolvableTargetError, got %v", err)
	}
	if target.Target != "no-such-host.invalid" {
		t.Fatalf("unexpected target %q", target.Target)
	}
}

func TestProberOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    ProberOptions
		wantErr bool
	}{
		{name: "defaults", opts: DefaultProberOptions()},
		{name: "large payload", opts: ProberOptions{Size: 1400, Network: "ip4"}},
		{name: "payload below minimum", opts: ProberOptions{Size: MinPayloadSize - 1, Network: "ip"}, wantErr: true},
		{name: "unknown network", opts: ProberOptions{Size: DefaultPayloadSize, Network: "tcp"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProbeRejectsSmallPayload(t *testing.T) {
	p := NewICMPProber(ProberOptions{Size: 10, Privileged: true})

	outcome, err := p.Probe(context.Background(), "127.0.0.1", time.Second)
	if err == nil {
		t.Fatalf("expected a configuration error, got outcome %+v", outcome)
	}
	var target *domain.UnresolvableTargetError
	if errors.As(err, &target) {
		t.Fatalf("payload size is not a resolution problem: %v", err)
	}
	if outcome.FailureStatus != "" {
		t.Fatalf("configuration errors must not become a failure status, got %s", outcome.FailureStatus)
	}
}

func TestDefaultProberOptions(t *testing.T) {
	opts := DefaultProberOptions()
	if opts.Size != DefaultPayloadSize {
		t.Fatalf("expected payload size %d, got %d", DefaultPayloadSize, opts.Size)
	}
	if opts.Privileged != defaultPrivileged {
		t.Fatalf("unexpected privileged default %v", opts.Privileged)
	}
}

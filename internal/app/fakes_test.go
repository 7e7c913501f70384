package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type step struct {
	outcome domain.ProbeOutcome
	took    time.Duration
	err     error
}

func reply(rtt int64) step {
	return step{
		outcome: domain.ProbeOutcome{
			Succeeded:         true,
			RoundTripMillis:   rtt,
			RespondingAddress: net.ParseIP("192.0.2.10"),
			Bytes:             24,
		},
		took: time.Duration(rtt) * time.Millisecond,
	}
}

func timeout(took time.Duration) step {
	return step{
		outcome: domain.ProbeOutcome{FailureStatus: domain.StatusTimedOut},
		took:    took,
	}
}

// scriptedProber replays steps in order, repeating the last one.
type scriptedProber struct {
	clock  *fakeClock
	steps  []step
	calls  int
	onCall func(call int)
}

func (p *scriptedProber) Probe(ctx context.Context, target string, timeout time.Duration) (domain.ProbeOutcome, error) {
	p.calls++
	if p.onCall != nil {
		p.onCall(p.calls)
	}
	s := p.steps[min(p.calls, len(p.steps))-1]
	p.clock.Advance(s.took)
	return s.outcome, s.err
}

type fakeSleeper struct {
	clock *fakeClock
	waits []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.waits = append(s.waits, d)
	s.clock.Advance(d)
	return nil
}

type countingSounder struct {
	mu    sync.Mutex
	beeps int
}

func (s *countingSounder) Beep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beeps++
	return nil
}

type fakeResolver struct {
	name string
	err  error
	got  net.IP
}

func (r *fakeResolver) LookupName(ctx context.Context, ip net.IP) (string, error) {
	r.got = ip
	return r.name, r.err
}

type recordingHandler struct {
	mu        sync.Mutex
	starts    map[string][]int
	completes map[string][]domain.Attempt
	reports   []domain.RunReport
	finished  int
	announce  bytes.Buffer
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		starts:    make(map[string][]int),
		completes: make(map[string][]domain.Attempt),
	}
}

func (h *recordingHandler) OnStart(target string, seq int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts[target] = append(h.starts[target], seq)
}

func (h *recordingHandler) OnComplete(target string, attempt domain.Attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completes[target] = append(h.completes[target], attempt)
}

func (h *recordingHandler) OnReport(report domain.RunReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, report)
}

func (h *recordingHandler) OnFinish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished++
}

func (h *recordingHandler) AnnounceWriter(target string) io.Writer {
	return h
}

func (h *recordingHandler) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.announce.Write(p)
}

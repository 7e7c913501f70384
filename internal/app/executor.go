package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
	"github.com/FriedrichWeinmann/sendping/internal/logging"
	"github.com/FriedrichWeinmann/sendping/internal/stats"
)

const reverseLookupTimeout = 5 * time.Second

type ResultHandler interface {
	OnStart(target string, seq int)
	OnComplete(target string, attempt domain.Attempt)
	OnReport(report domain.RunReport)
	OnFinish()
	AnnounceWriter(target string) io.Writer
}

type Prober interface {
	Probe(ctx context.Context, target string, timeout time.Duration) (domain.ProbeOutcome, error)
}

type NameResolver interface {
	LookupName(ctx context.Context, ip net.IP) (string, error)
}

// addrResolver is implemented by probers that know the resolved target address.
type addrResolver interface {
	ResolvedAddr() net.IP
}

type ExecutorOption func(*SequentialExecutor)

func WithNow(now func() time.Time) ExecutorOption {
	return func(e *SequentialExecutor) { e.now = now }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *SequentialExecutor) { e.sleep = sleep }
}

func WithNameResolver(r NameResolver) ExecutorOption {
	return func(e *SequentialExecutor) { e.resolver = r }
}

func WithSounder(s Sounder) ExecutorOption {
	return func(e *SequentialExecutor) { e.sounder = s }
}

// SequentialExecutor drives one run: probes are issued one at a time and the
// next probe never starts before the previous outcome is known.
type SequentialExecutor struct {
	prober    Prober
	resolver  NameResolver
	sounder   Sounder
	validator *domain.ConfigValidator
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	newID     func() string
}

func NewSequentialExecutor(prober Prober, opts ...ExecutorOption) *SequentialExecutor {
	e := &SequentialExecutor{
		prober:    prober,
		sounder:   silentSounder{},
		validator: domain.NewConfigValidator(),
		now:       time.Now,
		sleep:     sleepContext,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runningAggregate is owned by a single Execute call.
type runningAggregate struct {
	successCount       int
	failureCount       int
	roundTrips         []int64
	failureStatuses    []domain.FailureStatus
	lastSuccessAddress net.IP
}

func (a *runningAggregate) record(o domain.ProbeOutcome) {
	if o.Succeeded {
		a.successCount++
		a.roundTrips = append(a.roundTrips, o.RoundTripMillis)
		a.lastSuccessAddress = o.RespondingAddress
		return
	}
	a.failureCount++
	a.failureStatuses = append(a.failureStatuses, o.FailureStatus)
}

// Execute runs opts to completion or cancellation. Only an unresolvable
// target or a transport setup failure produces an error, and then no report.
func (e *SequentialExecutor) Execute(ctx context.Context, opts domain.RunOptions, handler ResultHandler) (domain.RunReport, error) {
	if err := e.validator.Validate(opts); err != nil {
		return domain.RunReport{}, err
	}
	if handler == nil {
		handler = discardHandler{}
	}

	logger := logging.GetLogger().WithField("target", opts.Target)
	notifier := NewNotifier(opts.SoundPolicy, opts.SoundThreshold)
	agg := &runningAggregate{}
	startedAt := e.now()
	cancelled := false

	for seq := 1; opts.Unbounded() || seq <= opts.Count; seq++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		handler.OnStart(opts.Target, seq)

		attemptStart := e.now()
		outcome, err := e.prober.Probe(ctx, opts.Target, opts.Timeout)
		attemptEnd := e.now()
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				logger.WithField("seq", seq).Debug("probe abandoned by cancellation")
				cancelled = true
				break
			}
			return domain.RunReport{}, err
		}

		agg.record(outcome)

		attempt := domain.Attempt{
			Seq:        seq,
			Outcome:    outcome,
			Timeout:    opts.Timeout,
			StartedAt:  attemptStart,
			FinishedAt: attemptEnd,
			Notified:   notifier.Observe(outcome.Succeeded),
		}
		if attempt.Notified {
			if err := e.sounder.Beep(); err != nil {
				logger.WithError(err).Debug("sound notification failed")
			}
		}
		if opts.Announce {
			if w := handler.AnnounceWriter(opts.Target); w != nil {
				fmt.Fprintln(w, FormatAnnouncement(opts.Target, attempt))
			}
		}
		handler.OnComplete(opts.Target, attempt)

		logger.WithFields(logrus.Fields{
			"seq":     seq,
			"success": outcome.Succeeded,
			"rtt_ms":  outcome.RoundTripMillis,
			"status":  outcome.FailureStatus,
		}).Debug("probe finished")

		if !opts.Unbounded() && seq == opts.Count {
			break
		}

		if wait := opts.Delay - attemptEnd.Sub(attemptStart); wait > 0 {
			if err := e.sleep(ctx, wait); err != nil {
				cancelled = true
				break
			}
		}
	}

	report := e.finalize(ctx, opts, agg)
	report.Cancelled = cancelled
	report.StartedAt = startedAt
	report.FinishedAt = e.now()
	return report, nil
}

func (e *SequentialExecutor) finalize(ctx context.Context, opts domain.RunOptions, agg *runningAggregate) domain.RunReport {
	attempts := agg.successCount + agg.failureCount
	report := domain.RunReport{
		ID:              e.newID(),
		Target:          opts.Target,
		ResolvedAddress: agg.lastSuccessAddress,
		AttemptsTotal:   attempts,
		SuccessCount:    agg.successCount,
		FailureCount:    agg.failureCount,
		SuccessPercent:  stats.SuccessPercent(agg.successCount, attempts),
		FailureStatuses: append([]domain.FailureStatus{}, agg.failureStatuses...),
		Statistics:      stats.Summarize(agg.roundTrips),
		Options:         opts,
	}

	if report.ResolvedAddress == nil {
		if ar, ok := e.prober.(addrResolver); ok {
			report.ResolvedAddress = ar.ResolvedAddr()
		}
	}

	if opts.ResolveName && agg.successCount > 0 {
		name := domain.UnresolvedName
		if e.resolver != nil {
			// a cancelled run still gets its name looked up
			lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reverseLookupTimeout)
			resolved, err := e.resolver.LookupName(lookupCtx, agg.lastSuccessAddress)
			cancel()
			if err != nil {
				logging.GetLogger().WithField("target", opts.Target).WithError(err).Debug("reverse lookup failed")
			} else {
				name = resolved
			}
		}
		report.ResolvedName = &name
	}

	return report
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type discardHandler struct{}

func (discardHandler) OnStart(string, int) {}
func (discardHandler) OnComplete(string, domain.Attempt) {}
func (discardHandler) OnReport(domain.RunReport) {}
func (discardHandler) OnFinish() {}
func (discardHandler) AnnounceWriter(string) io.Writer { return io.Discard }

package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
	"github.com/FriedrichWeinmann/sendping/internal/infra"
	"github.com/FriedrichWeinmann/sendping/internal/logging"
	"github.com/FriedrichWeinmann/sendping/internal/ui"
)

const exportTimeout = 30 * time.Second

// ReportSink receives the reports of a finished invocation.
type ReportSink interface {
	WriteReports(ctx context.Context, reports []domain.RunReport) error
}

type Orchestrator struct {
	validator    *domain.ConfigValidator
	newProber    func() Prober
	resolver     NameResolver
	sounder      Sounder
	sink         ReportSink
	newHandler   func(cfg *domain.RunConfig) ResultHandler
	executorOpts []ExecutorOption
}

type OrchestratorOption func(*Orchestrator)

// WithProberFactory sets how each run obtains its own prober.
func WithProberFactory(f func() Prober) OrchestratorOption {
	return func(o *Orchestrator) { o.newProber = f }
}

func WithReportSink(s ReportSink) OrchestratorOption {
	return func(o *Orchestrator) { o.sink = s }
}

func WithRunSounder(s Sounder) OrchestratorOption {
	return func(o *Orchestrator) { o.sounder = s }
}

func WithRunResolver(r NameResolver) OrchestratorOption {
	return func(o *Orchestrator) { o.resolver = r }
}

func WithHandler(f func(cfg *domain.RunConfig) ResultHandler) OrchestratorOption {
	return func(o *Orchestrator) { o.newHandler = f }
}

func WithExecutorOptions(opts ...ExecutorOption) OrchestratorOption {
	return func(o *Orchestrator) { o.executorOpts = append(o.executorOpts, opts...) }
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		validator: domain.NewConfigValidator(),
		newProber: func() Prober {
			return infra.NewICMPProber(infra.DefaultProberOptions())
		},
		resolver:   infra.NewReverseResolver(),
		sounder:    NewTerminalBell(os.Stderr),
		newHandler: getFormatter,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs every request of cfg and returns the reports in request order.
func (o *Orchestrator) Execute(ctx context.Context, cfg *domain.RunConfig) ([]domain.RunReport, error) {
	if len(cfg.Requests) == 0 {
		return nil, fmt.Errorf("nothing to run")
	}
	for _, req := range cfg.Requests {
		if err := o.validator.Validate(req); err != nil {
			return nil, err
		}
	}

	handler := o.newHandler(cfg)

	var (
		reports []domain.RunReport
		err     error
	)
	if tui, ok := handler.(*ui.TUIFormatter); ok && cfg.Format == domain.FormatTUI {
		reports, err = o.executeTUI(ctx, cfg, tui)
		if err == nil {
			ui.WriteSummaries(os.Stdout, reports)
		}
	} else {
		reports, err = o.runAll(ctx, cfg, handler)
	}
	if err != nil {
		return nil, err
	}

	if o.sink != nil {
		exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
		defer cancel()
		if err := o.sink.WriteReports(exportCtx, reports); err != nil {
			return reports, fmt.Errorf("export reports: %w", err)
		}
		logging.GetLogger().WithField("reports", len(reports)).Info("reports exported")
	}

	return reports, nil
}

func (o *Orchestrator) runAll(ctx context.Context, cfg *domain.RunConfig, handler ResultHandler) ([]domain.RunReport, error) {
	reports := make([]domain.RunReport, len(cfg.Requests))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Parallel > 0 {
		g.SetLimit(cfg.Parallel)
	}

	for i, req := range cfg.Requests {
		i, req := i, req
		g.Go(func() error {
			logging.GetLogger().WithFields(logrus.Fields{
				"target":  req.Target,
				"count":   req.Count,
				"timeout": req.Timeout,
				"wait":    req.Delay,
			}).Debug("starting run")

			report, err := o.newExecutor().Execute(gctx, req, handler)
			if err != nil {
				return err
			}
			reports[i] = report
			handler.OnReport(report)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	handler.OnFinish()
	return reports, nil
}

func (o *Orchestrator) newExecutor() *SequentialExecutor {
	opts := []ExecutorOption{WithSounder(o.sounder)}
	if o.resolver != nil {
		opts = append(opts, WithNameResolver(o.resolver))
	}
	opts = append(opts, o.executorOpts...)
	return NewSequentialExecutor(o.newProber(), opts...)
}

func (o *Orchestrator) executeTUI(ctx context.Context, cfg *domain.RunConfig, tui *ui.TUIFormatter) ([]domain.RunReport, error) {
	ctxRun, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctxRun)

	// Quitting the TUI cancels the runs, which then finalize their reports.
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx)
	})

	if err := tui.WaitReady(gctx); err != nil {
		return nil, err
	}

	var reports []domain.RunReport
	g.Go(func() error {
		var err error
		reports, err = o.runAll(gctx, cfg, tui)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func getFormatter(cfg *domain.RunConfig) ResultHandler {
	switch cfg.Format {
	case domain.FormatJSON:
		return ui.NewJSONFormatter(cfg, os.Stdout, os.Stderr)
	case domain.FormatTUI:
		return ui.NewTUIFormatter(cfg)
	default:
		return ui.NewRawFormatter(os.Stdout)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FriedrichWeinmann/sendping/internal/app"
	"github.com/FriedrichWeinmann/sendping/internal/config"
	"github.com/FriedrichWeinmann/sendping/internal/domain"
	"github.com/FriedrichWeinmann/sendping/internal/export"
	"github.com/FriedrichWeinmann/sendping/internal/infra"
	"github.com/FriedrichWeinmann/sendping/internal/logging"
)

const version = "0.1.0"

var errNoReplies = errors.New("no replies received")

type options struct {
	count          int
	continuous     bool
	timeout        int
	wait           int
	unit           string
	resolve        bool
	announce       bool
	sound          string
	soundThreshold int
	json           bool
	raw            bool
	tui            bool
	parallel       int
	privileged     bool
	size           int
	configPath     string
	envFile        string
	influx         export.InfluxConfig
	verbosity      string
	logLevel       string
}

type settings struct {
	run    *domain.RunConfig
	prober infra.ProberOptions
	influx export.InfluxConfig
}

func unitDuration(unit string) (time.Duration, error) {
	switch unit {
	case "ms", "":
		return time.Millisecond, nil
	case "s":
		return time.Second, nil
	default:
		return 0, fmt.Errorf("unknown unit %q (ms|s)", unit)
	}
}

// buildSettings merges flags over the config file. changed reports whether a
// flag was set on the command line.
func buildSettings(targets []string, opts *options, changed func(string) bool, file config.Config) (*settings, error) {
	unit, err := unitDuration(opts.unit)
	if err != nil {
		return nil, err
	}

	req := domain.Request{
		Targets:     targets,
		Count:       opts.count,
		Continuous:  opts.continuous,
		ResolveName: opts.resolve,
		Announce:    opts.announce,
		SoundPolicy: domain.SoundPolicy(opts.sound),
	}
	if !changed("count") && file.Count != 0 {
		req.Count = file.Count
	}
	// an unset timeout stays 0 so normalization applies the millisecond default
	if changed("timeout") {
		req.Timeout = time.Duration(opts.timeout) * unit
	} else if file.TimeoutMs != 0 {
		req.Timeout = time.Duration(file.TimeoutMs) * time.Millisecond
	}
	if changed("wait") {
		d := time.Duration(opts.wait) * unit
		req.Delay = &d
	} else if file.WaitMs != nil {
		d := time.Duration(*file.WaitMs) * time.Millisecond
		req.Delay = &d
	}
	if !changed("sound") && file.Sound != "" {
		req.SoundPolicy = domain.SoundPolicy(file.Sound)
	}
	if changed("sound-threshold") {
		req.SoundThreshold = &opts.soundThreshold
	} else if file.SoundThreshold != nil {
		req.SoundThreshold = file.SoundThreshold
	}

	requests, err := domain.NewConfigValidator().Normalize(req)
	if err != nil {
		return nil, err
	}

	var format string
	switch {
	case opts.json:
		format = "json"
	case opts.raw:
		format = "raw"
	case opts.tui:
		format = "tui"
	case file.Format != "":
		format = file.Format
	default:
		format = "raw"
	}

	if !slices.Contains(domain.OutputFormats, domain.OutputFormat(format)) {
		return nil, fmt.Errorf("unknown format %q (raw|json|tui)", format)
	}

	verbosity := opts.verbosity
	if !changed("verbosity") && file.Verbosity != "" {
		verbosity = file.Verbosity
	}
	if !slices.Contains(domain.VerbosityLevels, domain.VerbosityLevel(verbosity)) {
		return nil, fmt.Errorf("unknown verbosity %q (silent|normal|verbose)", verbosity)
	}

	parallel := opts.parallel
	if !changed("parallel") && file.Parallel != 0 {
		parallel = file.Parallel
	}

	prober := infra.DefaultProberOptions()
	prober.Size = opts.size
	if !changed("size") && file.Size != 0 {
		prober.Size = file.Size
	}
	if changed("privileged") {
		prober.Privileged = opts.privileged
	} else if file.Privileged != nil {
		prober.Privileged = *file.Privileged
	}
	if err := prober.Validate(); err != nil {
		return nil, err
	}

	influx := file.Influx
	if changed("influx-url") {
		influx.URL = opts.influx.URL
	}
	if changed("influx-token") {
		influx.Token = opts.influx.Token
	}
	if changed("influx-org") {
		influx.Org = opts.influx.Org
	}
	if changed("influx-bucket") {
		influx.Bucket = opts.influx.Bucket
	}

	return &settings{
		run: &domain.RunConfig{
			Requests:  requests,
			Parallel:  parallel,
			Verbosity: domain.VerbosityLevel(verbosity),
			Format:    domain.OutputFormat(format),
		},
		prober: prober,
		influx: influx,
	}, nil
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	logging.SetVerbosity(domain.VerbosityLevel(opts.verbosity))

	if err := config.LoadEnvironment(opts.envFile); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	file, err := config.LoadDefault(ctx, opts.configPath)
	if err != nil {
		return err
	}
	file.ApplyEnv()

	s, err := buildSettings(args, opts, cmd.Flags().Changed, file)
	if err != nil {
		return err
	}
	logging.SetVerbosity(s.run.Verbosity)
	if opts.logLevel != "" {
		if err := logging.SetLogLevel(opts.logLevel); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	if s.run.Format == domain.FormatTUI {
		// the TUI owns the terminal
		logging.SetOutput(io.Discard)
	}

	orchestratorOpts := []app.OrchestratorOption{
		app.WithProberFactory(func() app.Prober {
			return infra.NewICMPProber(s.prober)
		}),
	}
	if s.influx.Enabled() {
		sink, err := export.NewInfluxSink(s.influx)
		if err != nil {
			return err
		}
		defer sink.Close()
		orchestratorOpts = append(orchestratorOpts, app.WithReportSink(sink))
	}

	reports, err := app.NewOrchestrator(orchestratorOpts...).Execute(ctx, s.run)
	if err != nil {
		return err
	}

	for _, r := range reports {
		if r.SuccessCount > 0 || r.Cancelled {
			return nil
		}
	}
	return errNoReplies
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sendping [flags] <target>...",
		Short: "Ping targets and report round-trip statistics",
		Long: "sendping - send ICMP echo requests and evaluate the round trips\n\n" +
			"Sound policies: silent, until-first-success, until-first-failure,\n" +
			"success-threshold, failure-threshold, on-success, on-failure, always",
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.count, "count", "n", 1, "Number of echo requests per target")
	f.BoolVarP(&opts.continuous, "continuous", "t", false, "Ping until interrupted (implies --announce, default wait 1000ms)")
	f.IntVar(&opts.timeout, "timeout", 3000, "Per-attempt timeout")
	f.IntVarP(&opts.wait, "wait", "w", 0, "Delay between attempts, reduced by the time the attempt took")
	f.StringVar(&opts.unit, "unit", "ms", "Unit of --timeout and --wait (ms|s)")
	f.BoolVarP(&opts.resolve, "resolve", "a", false, "Resolve the name of the responding address")
	f.BoolVar(&opts.announce, "announce", false, "Print one line per attempt")
	f.StringVar(&opts.sound, "sound", string(domain.SoundSilent), "Sound policy")
	f.IntVar(&opts.soundThreshold, "sound-threshold", domain.DefaultSoundThreshold, "Notifications for the threshold sound policies (negative = unlimited)")
	f.BoolVar(&opts.json, "json", false, "Output in JSON format")
	f.BoolVar(&opts.raw, "raw", false, "Output in raw format (default)")
	f.BoolVar(&opts.tui, "tui", false, "Output in TUI format")
	f.IntVar(&opts.parallel, "parallel", 0, "Maximum targets pinged at once (0 = all)")
	f.BoolVar(&opts.privileged, "privileged", false, "Use raw ICMP sockets")
	f.IntVar(&opts.size, "size", infra.DefaultPayloadSize, "Echo payload size in bytes")
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML defaults file")
	f.StringVar(&opts.envFile, "env-file", "", "Path to a .env file (default ./.env if present)")
	f.StringVar(&opts.influx.URL, "influx-url", "", "InfluxDB URL to export reports to")
	f.StringVar(&opts.influx.Token, "influx-token", "", "InfluxDB token")
	f.StringVar(&opts.influx.Org, "influx-org", "", "InfluxDB organization")
	f.StringVar(&opts.influx.Bucket, "influx-bucket", "", "InfluxDB bucket")
	f.StringVarP(&opts.verbosity, "verbosity", "v", "normal", "Verbosity level (silent|normal|verbose)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level, overrides --verbosity (panic|fatal|error|warn|info|debug|trace)")
	cmd.Version = version

	return cmd
}

func main() {
	opts := &options{}
	rootCmd := newRootCmd(opts)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package domain

import (
	"net"
	"time"
)

type VerbosityLevel string
type OutputFormat string
type SoundPolicy string
type FailureStatus string

const (
	VerbositySilent  VerbosityLevel = "silent"
	VerbosityNormal  VerbosityLevel = "normal"
	VerbosityVerbose VerbosityLevel = "verbose"
)

var VerbosityLevels = []VerbosityLevel{VerbositySilent, VerbosityNormal, VerbosityVerbose}

const (
	FormatTUI  OutputFormat = "tui"
	FormatJSON OutputFormat = "json"
	FormatRaw  OutputFormat = "raw"
)

var OutputFormats = []OutputFormat{FormatTUI, FormatJSON, FormatRaw}

const (
	SoundSilent                          SoundPolicy = "silent"
	SoundUntilFirstSuccess               SoundPolicy = "until-first-success"
	SoundUntilFirstFailure               SoundPolicy = "until-first-failure"
	SoundAfterEverySuccessAfterThreshold SoundPolicy = "success-threshold"
	SoundAfterEveryFailureAfterThreshold SoundPolicy = "failure-threshold"
	SoundAlwaysOnSuccess                 SoundPolicy = "on-success"
	SoundAlwaysOnFailure                 SoundPolicy = "on-failure"
	SoundAlways                          SoundPolicy = "always"
)

var SoundPolicies = []SoundPolicy{
	SoundSilent,
	SoundUntilFirstSuccess,
	SoundUntilFirstFailure,
	SoundAfterEverySuccessAfterThreshold,
	SoundAfterEveryFailureAfterThreshold,
	SoundAlwaysOnSuccess,
	SoundAlwaysOnFailure,
	SoundAlways,
}

const (
	StatusTimedOut               FailureStatus = "TimedOut"
	StatusDestinationUnreachable FailureStatus = "DestinationUnreachable"
	StatusTtlExpired             FailureStatus = "TtlExpired"
	StatusUnknown                FailureStatus = "Unknown"
)

// Unbounded is the Count sentinel for a run that continues until cancelled.
const Unbounded = -1

const (
	DefaultTimeout           = 3000 * time.Millisecond
	DefaultContinuousDelay   = 1000 * time.Millisecond
	DefaultSoundThreshold    = 5
	UnresolvedName           = "could not resolve"
	SuccessPercentDecimals   = 0
	StatisticDecimals        = 4
	StatisticPercentDecimals = 1
)

// Request is the caller-facing input before defaults are applied.
// Nil pointers mean "not specified".
type Request struct {
	Targets        []string
	Count          int
	Continuous     bool
	Timeout        time.Duration
	Delay          *time.Duration
	ResolveName    bool
	Announce       bool
	SoundPolicy    SoundPolicy
	SoundThreshold *int
}

// RunOptions is the fully resolved configuration of a single run.
type RunOptions struct {
	Target         string
	Count          int
	Timeout        time.Duration
	Delay          time.Duration
	ResolveName    bool
	Announce       bool
	SoundPolicy    SoundPolicy
	SoundThreshold int
}

func (o RunOptions) Unbounded() bool {
	return o.Count == Unbounded
}

type RunConfig struct {
	Requests  []RunOptions
	Parallel  int
	Verbosity VerbosityLevel
	Format    OutputFormat
}

type ProbeOutcome struct {
	Succeeded         bool
	RoundTripMillis   int64
	RespondingAddress net.IP
	Bytes             int
	FailureStatus     FailureStatus
}

// Attempt is one classified probe as seen by result handlers.
type Attempt struct {
	Seq        int
	Outcome    ProbeOutcome
	Timeout    time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
	Notified   bool
}

func (a Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

type StatisticsSummary struct {
	Average                      *float64
	Min                          *float64
	Max                          *float64
	Variance                     *float64
	StandardDeviation            *float64
	StandardDeviationPercent     *float64
	MeanAbsoluteDeviation        *float64
	MeanAbsoluteDeviationPercent *float64
}

// Applicable reports whether the summary was computed from at least one sample.
func (s StatisticsSummary) Applicable() bool {
	return s.Average != nil
}

type RunReport struct {
	ID              string
	Target          string
	ResolvedAddress net.IP
	ResolvedName    *string
	AttemptsTotal   int
	SuccessCount    int
	FailureCount    int
	SuccessPercent  float64
	FailureStatuses []FailureStatus
	Statistics      StatisticsSummary
	Options         RunOptions
	Cancelled       bool
	StartedAt       time.Time
	FinishedAt      time.Time
}

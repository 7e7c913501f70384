package ui

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
	"github.com/FriedrichWeinmann/sendping/internal/logging"
)

// Statistic fields are null when no probe succeeded.
type StatisticsJSON struct {
	Average                      *float64 `json:"average_ms"`
	Min                          *float64 `json:"min_ms"`
	Max                          *float64 `json:"max_ms"`
	Variance                     *float64 `json:"variance"`
	StandardDeviation            *float64 `json:"std_dev_ms"`
	StandardDeviationPercent     *float64 `json:"std_dev_percent"`
	MeanAbsoluteDeviation        *float64 `json:"mean_abs_dev_ms"`
	MeanAbsoluteDeviationPercent *float64 `json:"mean_abs_dev_percent"`
}

type OptionsJSON struct {
	Count          int    `json:"count"`
	Continuous     bool   `json:"continuous"`
	TimeoutMs      int64  `json:"timeout_ms"`
	WaitMs         int64  `json:"wait_ms"`
	ResolveName    bool   `json:"resolve_name"`
	Announce       bool   `json:"announce"`
	SoundPolicy    string `json:"sound_policy"`
	SoundThreshold int    `json:"sound_threshold"`
}

type ReportJSON struct {
	ID              string         `json:"id"`
	Target          string         `json:"target"`
	ResolvedAddress string         `json:"resolved_address,omitempty"`
	ResolvedName    *string        `json:"resolved_name,omitempty"`
	AttemptsTotal   int            `json:"attempts_total"`
	SuccessCount    int            `json:"success_count"`
	FailureCount    int            `json:"failure_count"`
	SuccessPercent  float64        `json:"success_percent"`
	FailureStatuses []string       `json:"failure_statuses"`
	Statistics      StatisticsJSON `json:"statistics"`
	Options         OptionsJSON    `json:"options"`
	Cancelled       bool           `json:"cancelled"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

type JSONFormatter struct {
	out     io.Writer
	errOut  io.Writer
	order   map[string]int
	reports []domain.RunReport
	mu      sync.Mutex
}

// NewJSONFormatter prints the reports to out once all runs finished.
// Announcements go to errOut so out stays valid JSON.
func NewJSONFormatter(cfg *domain.RunConfig, out, errOut io.Writer) *JSONFormatter {
	order := make(map[string]int, len(cfg.Requests))
	for i, req := range cfg.Requests {
		if _, ok := order[req.Target]; !ok {
			order[req.Target] = i
		}
	}
	return &JSONFormatter{
		out:     out,
		errOut:  errOut,
		order:   order,
		reports: make([]domain.RunReport, 0, len(cfg.Requests)),
	}
}

func (f *JSONFormatter) AnnounceWriter(target string) io.Writer {
	return &lockedWriter{mu: &f.mu, w: f.errOut}
}

func (f *JSONFormatter) OnStart(target string, seq int) {
	// JSON formatter doesn't output progress
}

func (f *JSONFormatter) OnComplete(target string, attempt domain.Attempt) {
	// Attempts are summarized in the report
}

func (f *JSONFormatter) OnReport(report domain.RunReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
}

func (f *JSONFormatter) OnFinish() {
	f.mu.Lock()
	defer f.mu.Unlock()

	sort.SliceStable(f.reports, func(i, j int) bool {
		return f.order[f.reports[i].Target] < f.order[f.reports[j].Target]
	})

	reports := make([]ReportJSON, 0, len(f.reports))
	for _, r := range f.reports {
		reports = append(reports, NewReportJSON(r))
	}

	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string][]ReportJSON{"reports": reports}); err != nil {
		logging.GetLogger().WithError(err).Error("encoding JSON output")
	}
}

func NewReportJSON(r domain.RunReport) ReportJSON {
	statuses := make([]string, len(r.FailureStatuses))
	for i, st := range r.FailureStatuses {
		statuses[i] = string(st)
	}

	out := ReportJSON{
		ID:              r.ID,
		Target:          r.Target,
		ResolvedName:    r.ResolvedName,
		AttemptsTotal:   r.AttemptsTotal,
		SuccessCount:    r.SuccessCount,
		FailureCount:    r.FailureCount,
		SuccessPercent:  r.SuccessPercent,
		FailureStatuses: statuses,
		Statistics: StatisticsJSON{
			Average:                      r.Statistics.Average,
			Min:                          r.Statistics.Min,
			Max:                          r.Statistics.Max,
			Variance:                     r.Statistics.Variance,
			StandardDeviation:            r.Statistics.StandardDeviation,
			StandardDeviationPercent:     r.Statistics.StandardDeviationPercent,
			MeanAbsoluteDeviation:        r.Statistics.MeanAbsoluteDeviation,
			MeanAbsoluteDeviationPercent: r.Statistics.MeanAbsoluteDeviationPercent,
		},
		Options: OptionsJSON{
			Count:          r.Options.Count,
			Continuous:     r.Options.Unbounded(),
			TimeoutMs:      r.Options.Timeout.Milliseconds(),
			WaitMs:         r.Options.Delay.Milliseconds(),
			ResolveName:    r.Options.ResolveName,
			Announce:       r.Options.Announce,
			SoundPolicy:    string(r.Options.SoundPolicy),
			SoundThreshold: r.Options.SoundThreshold,
		},
		Cancelled:  r.Cancelled,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.ResolvedAddress != nil {
		out.ResolvedAddress = r.ResolvedAddress.String()
	}
	return out
}

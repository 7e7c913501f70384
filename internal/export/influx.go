package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
	"github.com/FriedrichWeinmann/sendping/internal/logging"
)

const (
	measurementReport  = "ping_report"
	measurementFailure = "ping_failure"
)

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

func (c InfluxConfig) Validate() error {
	var missing []string
	if c.Org == "" {
		missing = append(missing, "org")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if len(missing) > 0 {
		return fmt.Errorf("influx export to %s is missing %v", c.URL, missing)
	}
	return nil
}

// InfluxSink writes run reports as InfluxDB points.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	logging.GetLogger().WithFields(logrus.Fields{
		"host":   cfg.URL,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Debug("InfluxDB export configured")

	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

func (s *InfluxSink) WriteReports(ctx context.Context, reports []domain.RunReport) error {
	points := ReportPoints(reports)
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write %d points to bucket %s: %w", len(points), s.bucket, err)
	}
	return nil
}

func (s *InfluxSink) Close() {
	s.client.Close()
}

// ReportPoints converts reports into one summary point per report and one
// count point per distinct failure status. Not applicable statistics are omitted.
func ReportPoints(reports []domain.RunReport) []*write.Point {
	var points []*write.Point
	for _, r := range reports {
		tags := map[string]string{
			"target":    r.Target,
			"run_id":    r.ID,
			"cancelled": strconv.FormatBool(r.Cancelled),
		}
		if r.ResolvedAddress != nil {
			tags["address"] = r.ResolvedAddress.String()
		}

		fields := map[string]interface{}{
			"attempts":        r.AttemptsTotal,
			"successes":       r.SuccessCount,
			"failures":        r.FailureCount,
			"success_percent": r.SuccessPercent,
			"timeout_ms":      r.Options.Timeout.Milliseconds(),
			"duration_ms":     r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
		}
		addStat(fields, "avg_ms", r.Statistics.Average)
		addStat(fields, "min_ms", r.Statistics.Min)
		addStat(fields, "max_ms", r.Statistics.Max)
		addStat(fields, "variance", r.Statistics.Variance)
		addStat(fields, "std_dev_ms", r.Statistics.StandardDeviation)
		addStat(fields, "std_dev_percent", r.Statistics.StandardDeviationPercent)
		addStat(fields, "mean_abs_dev_ms", r.Statistics.MeanAbsoluteDeviation)
		addStat(fields, "mean_abs_dev_percent", r.Statistics.MeanAbsoluteDeviationPercent)

		ts := r.FinishedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		points = append(points, write.NewPoint(measurementReport, tags, fields, ts))

		counts := make(map[domain.FailureStatus]int)
		for _, st := range r.FailureStatuses {
			counts[st]++
		}
		for st, n := range counts {
			points = append(points, write.NewPoint(measurementFailure,
				map[string]string{"target": r.Target, "run_id": r.ID, "status": string(st)},
				map[string]interface{}{"count": n},
				ts))
		}
	}
	return points
}

func addStat(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}

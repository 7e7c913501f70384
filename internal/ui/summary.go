package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

const notApplicable = "n/a"

func WriteSummaries(w io.Writer, reports []domain.RunReport) {
	for _, r := range reports {
		WriteSummary(w, r)
	}
}

// WriteSummary prints the human readable block for one report.
func WriteSummary(w io.Writer, r domain.RunReport) {
	var sb strings.Builder

	addr := ""
	if r.ResolvedAddress != nil {
		addr = " (" + r.ResolvedAddress.String() + ")"
	}
	fmt.Fprintf(&sb, "\n--- %s%s ping statistics ---\n", r.Target, addr)
	if r.ResolvedName != nil {
		fmt.Fprintf(&sb, "name: %s\n", *r.ResolvedName)
	}
	fmt.Fprintf(&sb, "%d attempts, %d succeeded, %d failed, %s%% success\n",
		r.AttemptsTotal, r.SuccessCount, r.FailureCount, formatFloat(r.SuccessPercent))

	s := r.Statistics
	fmt.Fprintf(&sb, "round-trip min/avg/max = %s/%s/%s ms\n",
		formatStat(s.Min), formatStat(s.Average), formatStat(s.Max))
	fmt.Fprintf(&sb, "variance %s, std dev %s ms (%s%%), mean abs dev %s ms (%s%%)\n",
		formatStat(s.Variance),
		formatStat(s.StandardDeviation), formatStat(s.StandardDeviationPercent),
		formatStat(s.MeanAbsoluteDeviation), formatStat(s.MeanAbsoluteDeviationPercent))

	if len(r.FailureStatuses) > 0 {
		statuses := make([]string, len(r.FailureStatuses))
		for i, st := range r.FailureStatuses {
			statuses[i] = string(st)
		}
		fmt.Fprintf(&sb, "failures: %s\n", strings.Join(statuses, ", "))
	}
	if r.Cancelled {
		sb.WriteString("run stopped by cancellation\n")
	}

	io.WriteString(w, sb.String())
}

func formatStat(v *float64) string {
	if v == nil {
		return notApplicable
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

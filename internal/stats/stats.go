// Package stats derives round-trip statistics from a run's samples.
//
// Every reported value is truncated toward zero, never rounded.
package stats

import (
	"math"
	"strconv"
	"strings"

	mstats "github.com/montanaflynn/stats"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

// Truncate cuts x to the given number of decimals without rounding.
// It works on the shortest decimal representation of x so values such as
// 0.29 are not pulled down by binary floating point error.
func Truncate(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	if decimals < 0 {
		decimals = 0
	}

	s := strconv.FormatFloat(x, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return x
	}
	end := dot + 1 + decimals
	if decimals == 0 {
		end = dot
	}
	if end >= len(s) {
		return x
	}

	out, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return math.Trunc(x)
	}
	if out == 0 {
		// avoid "-0" for small negative inputs
		return 0
	}
	return out
}

// SuccessPercent returns the truncated share of successful attempts.
func SuccessPercent(successes, attempts int) float64 {
	if attempts <= 0 {
		return 0
	}
	return Truncate(float64(successes)/float64(attempts)*100, domain.SuccessPercentDecimals)
}

// Summarize computes the statistics of the round-trip samples in milliseconds.
// With no samples every field is left nil. Variance and standard deviation are
// the sample (n-1) forms and are 0 for a single sample.
func Summarize(roundTrips []int64) domain.StatisticsSummary {
	n := len(roundTrips)
	if n == 0 {
		return domain.StatisticsSummary{}
	}

	data := make(mstats.Float64Data, n)
	for i, rt := range roundTrips {
		data[i] = float64(rt)
	}

	// the only error these return is for empty input, handled above
	mean, _ := mstats.Mean(data)
	lo, _ := mstats.Min(data)
	hi, _ := mstats.Max(data)

	variance, stdDev := 0.0, 0.0
	if n > 1 {
		variance, _ = mstats.SampleVariance(data)
		stdDev, _ = mstats.StandardDeviationSample(data)
	}
	mad := meanAbsoluteDeviation(data, mean)

	return domain.StatisticsSummary{
		Average:                      ptr(Truncate(mean, domain.StatisticDecimals)),
		Min:                          ptr(lo),
		Max:                          ptr(hi),
		Variance:                     ptr(Truncate(variance, domain.StatisticDecimals)),
		StandardDeviation:            ptr(Truncate(stdDev, domain.StatisticDecimals)),
		StandardDeviationPercent:     ptr(Truncate(percentOf(stdDev, mean), domain.StatisticPercentDecimals)),
		MeanAbsoluteDeviation:        ptr(Truncate(mad, domain.StatisticDecimals)),
		MeanAbsoluteDeviationPercent: ptr(Truncate(percentOf(mad, mean), domain.StatisticPercentDecimals)),
	}
}

// meanAbsoluteDeviation is the average distance from the mean.
// mstats.MedianAbsoluteDeviation measures around the median instead.
func meanAbsoluteDeviation(data mstats.Float64Data, mean float64) float64 {
	var sum float64
	for _, v := range data {
		sum += math.Abs(v - mean)
	}
	return sum / float64(len(data))
}

func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func ptr(v float64) *float64 {
	return &v
}

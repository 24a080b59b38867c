package core

import (
	"fmt"
	"time"
)

// VarianceStatsResult partitions count actions into variance buckets.
// TotalVariance is the signed arithmetic sum and may be negative.
type VarianceStatsResult struct {
	TotalActions       int    `json:"totalActions"`
	PositiveCount      int    `json:"positiveCount"`
	NegativeCount      int    `json:"negativeCount"`
	ZeroCount          int    `json:"zeroCount"`
	VarianceCount      int    `json:"varianceCount"` // PositiveCount + NegativeCount
	TotalVariance      int    `json:"totalVariance"`
	AccuracyPercentage string `json:"accuracyPercentage"` // zero/total * 100, two decimals
}

// VarianceStats aggregates actions into variance statistics. It returns an
// EmptyInput error for zero actions rather than dividing by zero.
func VarianceStats(actions []CountAction) (VarianceStatsResult, error) {
	if len(actions) == 0 {
		return VarianceStatsResult{}, Errf(KindEmptyInput, "variance stats over zero actions")
	}

	res := VarianceStatsResult{TotalActions: len(actions)}
	for _, a := range actions {
		res.TotalVariance += a.Variance
		switch {
		case a.Variance > 0:
			res.PositiveCount++
		case a.Variance < 0:
			res.NegativeCount++
		default:
			res.ZeroCount++
		}
	}
	res.VarianceCount = res.PositiveCount + res.NegativeCount
	res.AccuracyPercentage = percent(res.ZeroCount, res.TotalActions)

	return res, nil
}

// SessionMetricsResult carries progress and duration figures for one session.
type SessionMetricsResult struct {
	DurationSeconds      int    `json:"durationSeconds"`
	DurationFormatted    string `json:"durationFormatted"`
	CompletionPercentage string `json:"completionPercentage"`
	FlaggedCount         int    `json:"flaggedCount"`
}

// SessionMetrics derives progress metrics from a session and its effective
// actions. Duration runs from start to end time, or to now while the session
// is still in progress, floored to whole seconds.
func SessionMetrics(sess *CountSession, actions []CountAction, now time.Time) SessionMetricsResult {
	end := now
	if sess.EndTime != nil {
		end = *sess.EndTime
	}
	seconds := int(end.Sub(sess.StartTime).Seconds())
	if seconds < 0 {
		seconds = 0
	}

	completion := "0.00"
	if sess.TotalPallets > 0 {
		completion = percent(len(actions), sess.TotalPallets)
	}

	flagged := 0
	for _, a := range actions {
		if a.Flagged {
			flagged++
		}
	}

	return SessionMetricsResult{
		DurationSeconds:      seconds,
		DurationFormatted:    FormatDuration(seconds),
		CompletionPercentage: completion,
		FlaggedCount:         flagged,
	}
}

// FormatDuration renders whole seconds as "<h>h <m>m <s>s", omitting leading
// zero-valued units: 45 -> "45s", 125 -> "2m 5s", 3665 -> "1h 1m 5s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// percent renders part/whole as a percentage with exactly two decimals.
func percent(part, whole int) string {
	return fmt.Sprintf("%.2f", float64(part)/float64(whole)*100)
}

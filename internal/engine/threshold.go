package engine

import (
	"math"

	"github.com/pulse-classroom/backend/internal/models"
)

// ComputeThreshold returns population mean and standard deviation of bin
// click counts and the flagging cutoff mean + multiplier*stddev. The
// multiplier is the sensitivity knob (config.DefaultThresholdMultiplier);
// raising it flags fewer, sharper spikes. Zero bins yield all-zero stats.
func ComputeThreshold(bins []models.Bin, multiplier float64) models.ThresholdStats {
	if len(bins) == 0 {
		return models.ThresholdStats{}
	}

	var sum float64
	for _, b := range bins {
		sum += float64(b.ClickCount)
	}
	mean := sum / float64(len(bins))

	var sq float64
	for _, b := range bins {
		d := float64(b.ClickCount) - mean
		sq += d * d
	}
	stdDev := math.Sqrt(sq / float64(len(bins)))

	return models.ThresholdStats{
		Mean:      mean,
		StdDev:    stdDev,
		Threshold: mean + multiplier*stdDev,
	}
}

// FlagPeaks returns the bins whose click count is at or above the threshold
// (inclusive). Zero-count bins are never flagged, so a session with uniformly
// zero clicks (threshold 0) flags nothing.
func FlagPeaks(bins []models.Bin, threshold float64) []models.Bin {
	peaks := make([]models.Bin, 0)
	for _, b := range bins {
		if b.ClickCount > 0 && float64(b.ClickCount) >= threshold {
			peaks = append(peaks, b)
		}
	}
	return peaks
}

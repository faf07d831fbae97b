package engine

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-classroom/backend/internal/models"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func binsWithCounts(counts ...int) []models.Bin {
	bins := make([]models.Bin, len(counts))
	for i, c := range counts {
		bins[i] = models.Bin{Index: i, StartMinute: i, EndMinute: i + 1, ClickCount: c}
	}
	return bins
}

func TestComputeThreshold(t *testing.T) {
	t.Run("zero bins yield zero stats", func(t *testing.T) {
		stats := ComputeThreshold(nil, 1.2)
		if stats.Mean != 0 || stats.StdDev != 0 || stats.Threshold != 0 {
			t.Fatalf("got %+v, want all zeros", stats)
		}
	})

	t.Run("uniform counts collapse threshold onto mean", func(t *testing.T) {
		stats := ComputeThreshold(binsWithCounts(4, 4, 4, 4), 1.2)
		if !almostEqual(stats.Mean, 4) || !almostEqual(stats.StdDev, 0) || !almostEqual(stats.Threshold, 4) {
			t.Fatalf("got %+v, want mean=stddev-free threshold=4", stats)
		}
	})

	t.Run("population statistics", func(t *testing.T) {
		// counts 2 and 4: population variance ((2-3)^2+(4-3)^2)/2 = 1
		stats := ComputeThreshold(binsWithCounts(2, 4), 1.2)
		if !almostEqual(stats.Mean, 3) {
			t.Fatalf("mean = %v, want 3", stats.Mean)
		}
		if !almostEqual(stats.StdDev, 1) {
			t.Fatalf("stddev = %v, want 1 (population, not sample)", stats.StdDev)
		}
		if !almostEqual(stats.Threshold, 3+1.2) {
			t.Fatalf("threshold = %v, want 4.2", stats.Threshold)
		}
	})

	t.Run("multiplier is the sensitivity knob", func(t *testing.T) {
		bins := binsWithCounts(2, 4)
		low := ComputeThreshold(bins, 0.5)
		high := ComputeThreshold(bins, 2.0)
		if !almostEqual(low.Threshold, 3.5) || !almostEqual(high.Threshold, 5) {
			t.Fatalf("thresholds = %v / %v, want 3.5 / 5", low.Threshold, high.Threshold)
		}
	})
}

func TestComputeThreshold_MonotoneInBinCount(t *testing.T) {
	base := binsWithCounts(0, 3, 1, 0, 0, 1)
	baseStats := ComputeThreshold(base, 1.2)

	// raising a single flagged bin must not unflag it
	bumped := binsWithCounts(0, 4, 1, 0, 0, 1)
	bumpedStats := ComputeThreshold(bumped, 1.2)

	basePeaks := FlagPeaks(base, baseStats.Threshold)
	bumpedPeaks := FlagPeaks(bumped, bumpedStats.Threshold)

	flagged := func(peaks []models.Bin, idx int) bool {
		for _, p := range peaks {
			if p.Index == idx {
				return true
			}
		}
		return false
	}
	if !flagged(basePeaks, 1) {
		t.Fatal("bin 1 should be flagged in the base distribution")
	}
	if !flagged(bumpedPeaks, 1) {
		t.Fatal("raising bin 1's count removed it from the flagged set")
	}
}

func TestFlagPeaks(t *testing.T) {
	t.Run("inclusive comparison", func(t *testing.T) {
		bins := binsWithCounts(1, 2, 3)
		peaks := FlagPeaks(bins, 2)
		if len(peaks) != 2 || peaks[0].Index != 1 || peaks[1].Index != 2 {
			t.Fatalf("peaks = %+v, want bins 1 and 2 (bin exactly at threshold is flagged)", peaks)
		}
	})

	t.Run("uniformly zero session flags nothing", func(t *testing.T) {
		bins := binsWithCounts(0, 0, 0, 0)
		stats := ComputeThreshold(bins, 1.2)
		if peaks := FlagPeaks(bins, stats.Threshold); len(peaks) != 0 {
			t.Fatalf("flagged %d bins of an all-zero session", len(peaks))
		}
	})
}

// The worked example: 60-minute session, 1-minute bins, three attendees.
// A clicks at minutes 5, 5, 6; B at 5; C at 40.
func TestConfusionScenario_SixtyMinuteSession(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	attA, attB, attC := uuid.New(), uuid.New(), uuid.New()

	clicks := []models.Event{
		clickAt(attA, start, 5*time.Minute),
		clickAt(attA, start, 5*time.Minute+20*time.Second),
		clickAt(attB, start, 5*time.Minute+40*time.Second),
		clickAt(attA, start, 6*time.Minute),
		clickAt(attC, start, 40*time.Minute),
	}

	bins := ComputeBins(start, 60, 1, clicks, 3)
	if len(bins) != 60 {
		t.Fatalf("got %d bins, want 60", len(bins))
	}
	if bins[5].ClickCount != 3 || bins[5].UniqueAttendees != 2 {
		t.Fatalf("bin 5 = %d clicks / %d unique, want 3 / 2", bins[5].ClickCount, bins[5].UniqueAttendees)
	}
	if bins[6].ClickCount != 1 || bins[40].ClickCount != 1 {
		t.Fatalf("bins 6/40 = %d/%d clicks, want 1/1", bins[6].ClickCount, bins[40].ClickCount)
	}
	for i, b := range bins {
		if i == 5 || i == 6 || i == 40 {
			continue
		}
		if b.ClickCount != 0 {
			t.Fatalf("bin %d has %d clicks, want 0", i, b.ClickCount)
		}
	}

	stats := ComputeThreshold(bins, 1.2)

	// mean = 5/60; squared deviations: 57 zero bins, one count-3 bin, two count-1 bins
	wantMean := 5.0 / 60.0
	var sq float64
	sq += 57 * wantMean * wantMean
	sq += (3 - wantMean) * (3 - wantMean)
	sq += 2 * (1 - wantMean) * (1 - wantMean)
	wantStdDev := math.Sqrt(sq / 60.0)
	wantThreshold := wantMean + 1.2*wantStdDev

	if !almostEqual(stats.Mean, wantMean) {
		t.Fatalf("mean = %v, want %v", stats.Mean, wantMean)
	}
	if !almostEqual(stats.StdDev, wantStdDev) {
		t.Fatalf("stddev = %v, want %v", stats.StdDev, wantStdDev)
	}
	if !almostEqual(stats.Threshold, wantThreshold) {
		t.Fatalf("threshold = %v, want %v", stats.Threshold, wantThreshold)
	}

	// threshold lands just under 0.59, so every nonzero bin is a peak here
	peaks := FlagPeaks(bins, stats.Threshold)
	if len(peaks) != 3 {
		t.Fatalf("flagged %d bins, want 3 (minutes 5, 6, 40)", len(peaks))
	}
	for i, wantIdx := range []int{5, 6, 40} {
		if peaks[i].Index != wantIdx {
			t.Fatalf("peak %d is bin %d, want %d", i, peaks[i].Index, wantIdx)
		}
	}
}

package timeseries

import (
	"slices"
	"time"
)

// DefaultInterval is the grid spacing used when GridOptions.Interval is not set.
const DefaultInterval = 10 * time.Second

// GridOptions controls how samples are aligned.
type GridOptions struct {
	// Interval is the grid spacing. Defaults to DefaultInterval.
	Interval time.Duration
	// Total is the length of a fixed grid ending at the last sample.
	// Zero or negative spans the first to the last sample instead.
	Total time.Duration
	// Tolerance is the half width of the open matching window. Defaults to Interval.
	Tolerance time.Duration
}

func (o GridOptions) withDefaults() GridOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Tolerance <= 0 {
		o.Tolerance = o.Interval
	}
	return o
}

// Normalize aligns samples to a regular grid of opts.Interval.
//
// Each grid point takes at most one sample: the first unconsumed sample
// less than Tolerance away. Points without a sample get a null template built from
// the most recent sample. Every output sample carries its grid time.
// The input is not modified and output samples share no maps with it.
func Normalize(samples []Sample, opts GridOptions) []Sample {
	if len(samples) == 0 {
		return nil
	}
	opts = opts.withDefaults()

	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b Sample) int {
		return a.Time.Compare(b.Time)
	})

	first := sorted[0].Time
	last := sorted[len(sorted)-1].Time
	start := first
	if opts.Total > 0 {
		start = last.Add(-opts.Total + opts.Interval)
	}
	grid := GridPoints(start, last, opts.Interval)

	template := nullTemplate(sorted[len(sorted)-1])
	out := make([]Sample, 0, len(grid))

	cursor := 0
	for _, point := range grid {
		windowStart := point.Add(-opts.Tolerance)
		for cursor < len(sorted) && !sorted[cursor].Time.After(windowStart) {
			cursor++
		}
		if cursor < len(sorted) && within(sorted[cursor].Time, point, opts.Tolerance) {
			matched := sorted[cursor].Clone()
			matched.Time = point
			out = append(out, matched)
			cursor++
			continue
		}
		filler := template.Clone()
		filler.Time = point
		out = append(out, filler)
	}
	return out
}

// GridPoints returns the times from start to end inclusive, interval apart.
// It returns nil if start is after end or interval is not positive.
func GridPoints(start, end time.Time, interval time.Duration) []time.Time {
	if interval <= 0 || start.After(end) {
		return nil
	}
	points := make([]time.Time, 0, end.Sub(start)/interval+1)
	for t := start; !t.After(end); t = t.Add(interval) {
		points = append(points, t)
	}
	return points
}

// GridSize returns how many points a fixed grid of total length would hold.
// Callers use it to bound requests before normalizing.
func GridSize(total, interval time.Duration) int {
	if interval <= 0 || total < interval {
		return 0
	}
	return int(total / interval)
}

func within(t, point time.Time, tolerance time.Duration) bool {
	d := t.Sub(point)
	if d < 0 {
		d = -d
	}
	return d < tolerance
}

// nullTemplate keeps labels and flags of s and nulls every value.
func nullTemplate(s Sample) Sample {
	t := s.Clone()
	for k := range t.Values {
		t.Values[k] = nil
	}
	t.Time = time.Time{}
	return t
}

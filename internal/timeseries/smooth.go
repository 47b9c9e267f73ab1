package timeseries

import "math"

// SmoothOptions controls spike detection and EWMA smoothing.
type SmoothOptions struct {
	// Alpha is the EWMA weight of the newest value.
	Alpha float64
	// WindowSize is the neighborhood used for spike detection.
	// WindowSize/2 neighbors are read on each side.
	WindowSize int
	// SpikeThreshold is the relative deviation from the neighbor mean
	// above which a value is treated as a spike.
	SpikeThreshold float64
	// ZeroBaselineLimit nulls values above this magnitude when the
	// neighbor mean is zero. Heuristic, not derived from the data.
	ZeroBaselineLimit float64
}

// DefaultSmoothOptions returns the options used for dashboard charts.
func DefaultSmoothOptions() SmoothOptions {
	return SmoothOptions{
		Alpha:             0.1,
		WindowSize:        15,
		SpikeThreshold:    0.3,
		ZeroBaselineLimit: 10,
	}
}

func (o SmoothOptions) withDefaults() SmoothOptions {
	d := DefaultSmoothOptions()
	if o.Alpha <= 0 || o.Alpha > 1 {
		o.Alpha = d.Alpha
	}
	if o.WindowSize <= 0 {
		o.WindowSize = d.WindowSize
	}
	if o.SpikeThreshold <= 0 {
		o.SpikeThreshold = d.SpikeThreshold
	}
	if o.ZeroBaselineLimit <= 0 {
		o.ZeroBaselineLimit = d.ZeroBaselineLimit
	}
	return o
}

// Smooth removes spikes from each key in keys and smooths what is left with
// an exponentially weighted moving average.
//
// Spikes are nulled first, then a single forward pass writes the running
// EWMA into every point once it has been seeded, so nulls after the first
// valid value are filled with the trend. The result lags real changes.
// data is not modified.
func Smooth(data []Sample, keys []string, opts SmoothOptions) []Sample {
	if len(data) == 0 {
		return nil
	}
	opts = opts.withDefaults()

	out := make([]Sample, len(data))
	for i := range data {
		out[i] = data[i].Clone()
	}
	for _, key := range keys {
		series := make([]*float64, len(out))
		for i := range out {
			series[i] = out[i].Values[key]
		}
		removeSpikes(series, opts)
		fillEWMA(series, opts.Alpha)
		for i, p := range series {
			if _, exists := out[i].Values[key]; p == nil && !exists {
				continue
			}
			if out[i].Values == nil {
				out[i].Values = make(map[string]*float64)
			}
			out[i].Values[key] = p
		}
	}
	return out
}

// removeSpikes nulls entries of series that stand out from their neighbors.
// Neighbors are read from the series as it was before any nulling.
func removeSpikes(series []*float64, opts SmoothOptions) {
	raw := make([]*float64, len(series))
	copy(raw, series)
	half := opts.WindowSize / 2

	for i, p := range raw {
		if p == nil {
			continue
		}
		value := *p
		var sum float64
		var count int
		for j := max(0, i-half); j <= min(len(raw)-1, i+half); j++ {
			if j == i || raw[j] == nil {
				continue
			}
			sum += *raw[j]
			count++
		}
		if count < 2 {
			continue
		}
		mean := sum / float64(count)
		if mean != 0 {
			if math.Abs(value-mean)/math.Abs(mean) > opts.SpikeThreshold {
				series[i] = nil
			}
		} else if math.Abs(value) > opts.ZeroBaselineLimit {
			series[i] = nil
		}
	}
}

// fillEWMA replaces series in place with its running EWMA.
// Entries before the first valid value stay nil.
func fillEWMA(series []*float64, alpha float64) {
	var ewma float64
	seeded := false
	for i, p := range series {
		if p != nil {
			if !seeded {
				ewma = *p
				seeded = true
			} else {
				ewma = alpha*(*p) + (1-alpha)*ewma
			}
			series[i] = Float(ewma)
			continue
		}
		if seeded {
			series[i] = Float(ewma)
		}
	}
}

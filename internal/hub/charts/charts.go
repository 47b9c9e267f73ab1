// Package charts serves stored stats as chart series aligned to a regular grid.
package charts

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/henrygd/beszel/internal/hub/expirymap"
	"github.com/henrygd/beszel/internal/records"
	"github.com/henrygd/beszel/internal/timeseries"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"
)

const (
	defaultCacheTTL  = 10 * time.Second
	defaultMaxPoints = 5000
)

var (
	ErrUnknownChart  = errors.New("unknown chart type")
	ErrUnknownKind   = errors.New("unknown series kind")
	ErrTooManyPoints = errors.New("chart has too many points")
)

// Kind selects the record family a series is built from.
type Kind string

const (
	KindStats Kind = "stats"
	KindPing  Kind = "ping"
)

// Request describes one chart series.
type Request struct {
	System string
	Chart  string
	Kind   Kind
	// Keys limits the returned values. Empty returns every key.
	Keys   []string
	Smooth bool
}

func (r Request) cacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%t", r.System, r.Chart, r.Kind, strings.Join(r.Keys, ","), r.Smooth)
}

// Response is a normalized chart series.
type Response struct {
	Chart    string                         `json:"chart"`
	Interval float64                        `json:"interval"` // seconds
	Points   []timeseries.Sample            `json:"points"`
	Coverage map[string]timeseries.Coverage `json:"coverage,omitempty"`
}

// Manager builds chart series from a Source and caches them briefly.
type Manager struct {
	src       Source
	cache     *expirymap.ExpiryMap[Response]
	cacheTTL  time.Duration
	maxPoints int
	smoothing timeseries.SmoothOptions
	now       func() time.Time
}

// NewManager creates a chart manager. getEnv supplies CHART_CACHE_TTL (seconds)
// and CHART_MAX_POINTS overrides.
func NewManager(app core.App, src Source, getEnv func(string) (string, bool)) *Manager {
	m := &Manager{
		src:       src,
		cacheTTL:  defaultCacheTTL,
		maxPoints: defaultMaxPoints,
		smoothing: timeseries.DefaultSmoothOptions(),
		now:       time.Now,
	}
	if v, ok := getEnv("CHART_CACHE_TTL"); ok {
		if ttl, err := cast.ToIntE(v); err == nil && ttl >= 0 {
			m.cacheTTL = time.Duration(ttl) * time.Second
		} else {
			app.Logger().Warn("Invalid CHART_CACHE_TTL", "value", v)
		}
	}
	if v, ok := getEnv("CHART_MAX_POINTS"); ok {
		if n, err := cast.ToIntE(v); err == nil && n > 0 {
			m.maxPoints = n
		} else {
			app.Logger().Warn("Invalid CHART_MAX_POINTS", "value", v)
		}
	}
	m.cache = expirymap.New[Response](time.Minute)
	return m
}

// Series loads, aligns and optionally smooths the series described by req.
func (m *Manager) Series(req Request) (Response, error) {
	if req.Kind == "" {
		req.Kind = KindStats
	}
	res, ok := records.ResolutionForChart(req.Chart)
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownChart, req.Chart)
	}
	if n := timeseries.GridSize(res.Retention, res.Interval); n > m.maxPoints {
		return Response{}, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, n, m.maxPoints)
	}

	req.Keys = uniqueKeys(req.Keys)
	key := req.cacheKey()
	if m.cacheTTL > 0 {
		if cached, ok := m.cache.GetOk(key); ok {
			return cached, nil
		}
	}

	since := m.now().Add(-res.Retention)
	var samples []timeseries.Sample
	var err error
	switch req.Kind {
	case KindStats:
		samples, err = m.src.SystemStats(req.System, res.RecordType, since)
	case KindPing:
		samples, err = m.src.PingStats(req.System, res.RecordType, since)
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	if err != nil {
		return Response{}, err
	}

	points := timeseries.Normalize(samples, timeseries.GridOptions{
		Interval: res.Interval,
		Total:    res.Retention,
	})
	keys := req.Keys
	if len(keys) == 0 {
		keys = valueKeys(points)
	} else {
		points = onlyKeys(points, keys)
	}
	if req.Smooth {
		points = timeseries.Smooth(points, keys, m.smoothing)
	}

	resp := Response{
		Chart:    req.Chart,
		Interval: res.Interval.Seconds(),
		Points:   points,
	}
	if len(points) > 0 {
		resp.Coverage = make(map[string]timeseries.Coverage, len(keys))
		for _, k := range keys {
			resp.Coverage[k] = timeseries.CoverageOf(points, k)
		}
	}
	if resp.Points == nil {
		resp.Points = []timeseries.Sample{}
	}
	if m.cacheTTL > 0 {
		m.cache.Set(key, resp, m.cacheTTL)
	}
	return resp, nil
}

// Invalidate drops cached series of a system
func (m *Manager) Invalidate(systemId string) {
	m.cache.RemovePrefix(systemId + "|")
}

// Close stops the cache cleaner
func (m *Manager) Close() {
	m.cache.Close()
}

// uniqueKeys drops repeated keys, keeping first occurrences in order.
// Smooth runs once per listed key, so a repeated key would be smoothed twice.
func uniqueKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// valueKeys returns the sorted value keys found in any point.
func valueKeys(points []timeseries.Sample) []string {
	var keys []string
	for i := range points {
		for k := range points[i].Values {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}

// onlyKeys drops values not in keys. points must be owned by the caller.
func onlyKeys(points []timeseries.Sample, keys []string) []timeseries.Sample {
	for i := range points {
		for k := range points[i].Values {
			if !slices.Contains(keys, k) {
				delete(points[i].Values, k)
			}
		}
	}
	return points
}

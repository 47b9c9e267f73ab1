// Package timeseries prepares irregular stats samples for charting.
//
// Normalize aligns samples to a regular time grid and materializes gaps as
// explicit nulls. Smooth is an optional second pass that nulls outlier spikes
// and rebuilds the series with an exponentially weighted moving average.
package timeseries

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// Reserved timestamp keys. Exactly one of them is populated per input record.
const (
	TimeKey      = "time"
	UpdatedAtKey = "updated_at"
)

// ISOLayout is the timestamp layout used for the time field of encoded samples.
const ISOLayout = "2006-01-02T15:04:05.000Z"

var (
	ErrMissingTimestamp   = errors.New("sample has no time or updated_at field")
	ErrAmbiguousTimestamp = errors.New("sample has both time and updated_at fields")
	ErrInvalidTimestamp   = errors.New("sample timestamp is not a valid date")
)

// Sample is one timestamped record of chart data.
//
// A nil entry in Values is an explicit null (no measurement). A key that is
// absent from Values is missing. Both count as gaps; zero does not.
type Sample struct {
	Time   time.Time
	Values map[string]*float64
	Labels map[string]string
	Flags  map[string]bool
}

// NewSample returns an empty sample at t.
func NewSample(t time.Time) Sample {
	return Sample{
		Time:   t,
		Values: make(map[string]*float64),
	}
}

// Float returns a pointer to v for use as a sample value.
func Float(v float64) *float64 {
	return &v
}

// Set stores a numeric value.
func (s *Sample) Set(key string, v float64) {
	if s.Values == nil {
		s.Values = make(map[string]*float64)
	}
	s.Values[key] = &v
}

// SetNull stores an explicit null for key.
func (s *Sample) SetNull(key string) {
	if s.Values == nil {
		s.Values = make(map[string]*float64)
	}
	s.Values[key] = nil
}

// Value returns the numeric value for key. ok is false for nulls and missing keys.
func (s Sample) Value(key string) (v float64, ok bool) {
	p := s.Values[key]
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Clone returns a copy of s that shares no maps with it.
// Value pointers are copied too, so writes through a clone never reach s.
func (s Sample) Clone() Sample {
	c := Sample{Time: s.Time}
	if s.Values != nil {
		c.Values = make(map[string]*float64, len(s.Values))
		for k, p := range s.Values {
			if p != nil {
				c.Values[k] = Float(*p)
			} else {
				c.Values[k] = nil
			}
		}
	}
	if s.Labels != nil {
		c.Labels = maps.Clone(s.Labels)
	}
	if s.Flags != nil {
		c.Flags = maps.Clone(s.Flags)
	}
	return c
}

// flat returns the sample as a single-level map with an ISO time field.
func (s Sample) flat() map[string]any {
	out := make(map[string]any, len(s.Values)+len(s.Labels)+len(s.Flags)+1)
	for k, v := range s.Labels {
		out[k] = v
	}
	for k, v := range s.Flags {
		out[k] = v
	}
	for k, p := range s.Values {
		if p == nil {
			out[k] = nil
		} else {
			out[k] = *p
		}
	}
	out[TimeKey] = s.Time.UTC().Format(ISOLayout)
	return out
}

// MarshalJSON encodes the sample as a flat object with an ISO time field.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.flat())
}

// MarshalCBOR encodes the sample as a flat CBOR map, same shape as MarshalJSON.
func (s Sample) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(s.flat())
}

// UnmarshalJSON decodes a flat or nested record. See ParseSample.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSample(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSample converts a decoded record into a Sample.
//
// The timestamp comes from whichever of time / updated_at is set and may be an
// ISO-8601 string or epoch seconds / milliseconds (number or numeric string).
// Numbers become values, nulls become explicit nulls, strings become labels
// (numeric-looking strings are not coerced) and booleans become flags. Nested
// objects and arrays are flattened with dot separated keys.
func ParseSample(raw map[string]any) (Sample, error) {
	var s Sample
	tv, hasTime := raw[TimeKey]
	uv, hasUpdated := raw[UpdatedAtKey]
	hasTime = hasTime && tv != nil
	hasUpdated = hasUpdated && uv != nil
	switch {
	case hasTime && hasUpdated:
		return s, ErrAmbiguousTimestamp
	case hasTime:
		t, err := ParseTimestamp(tv)
		if err != nil {
			return s, err
		}
		s.Time = t
	case hasUpdated:
		t, err := ParseTimestamp(uv)
		if err != nil {
			return s, err
		}
		s.Time = t
	default:
		return s, ErrMissingTimestamp
	}
	s.Values = make(map[string]*float64)
	for k, v := range raw {
		if k == TimeKey || k == UpdatedAtKey {
			continue
		}
		s.addField(k, v)
	}
	return s, nil
}

func (s *Sample) addField(key string, v any) {
	switch val := v.(type) {
	case nil:
		s.Values[key] = nil
	case float64:
		s.Values[key] = Float(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			s.Values[key] = Float(f)
		} else {
			s.setLabel(key, val.String())
		}
	case string:
		s.setLabel(key, val)
	case bool:
		if s.Flags == nil {
			s.Flags = make(map[string]bool)
		}
		s.Flags[key] = val
	case map[string]any:
		for k, nested := range val {
			s.addField(key+"."+k, nested)
		}
	case []any:
		for i, nested := range val {
			s.addField(key+"."+strconv.Itoa(i), nested)
		}
	default:
		if f, err := cast.ToFloat64E(val); err == nil {
			s.Values[key] = Float(f)
		}
	}
}

func (s *Sample) setLabel(key, v string) {
	if s.Labels == nil {
		s.Labels = make(map[string]string)
	}
	s.Labels[key] = v
}

// epoch values above this are taken as milliseconds
const epochMillisCutoff = 1e11

// maxEpochMillis keeps epochs within the range of UnixNano (year 2262).
const maxEpochMillis = math.MaxInt64 / 1e6

// ParseTimestamp converts an ISO-8601 string or epoch number into a UTC time.
func ParseTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case bool:
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, val)
	case string:
		if strings.TrimSpace(val) == "" {
			return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidTimestamp)
		}
		if f, err := cast.ToFloat64E(val); err == nil {
			return epochTime(f)
		}
		t, err := cast.ToTimeE(val)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, val)
		}
		return t.UTC(), nil
	default:
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, v)
		}
		return epochTime(f)
	}
}

func epochTime(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxEpochMillis {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, f)
	}
	if f >= epochMillisCutoff {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

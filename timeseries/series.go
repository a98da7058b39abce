// Package timeseries provides the daily series type and the fund-flow loaders.
package timeseries

import (
	"errors"
	"math"
	"time"
)

// Series is an ordered sequence of daily observations.
// Timestamps is either empty or the same length as Values.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates an undated series from values.
func New(values []float64) *Series {
	return &Series{Values: values}
}

// NewWithTimestamps creates a dated series. Dates must be strictly increasing.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, errors.New("timestamps must be strictly increasing")
		}
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Dated reports whether every value carries a timestamp.
func (s *Series) Dated() bool {
	return len(s.Values) > 0 && len(s.Timestamps) == len(s.Values)
}

// First returns the first timestamp, or the zero time for undated series.
func (s *Series) First() time.Time {
	if !s.Dated() {
		return time.Time{}
	}
	return s.Timestamps[0]
}

// Last returns the last timestamp, or the zero time for undated series.
func (s *Series) Last() time.Time {
	if !s.Dated() {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	return Mean(s.Values)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	return Variance(s.Values)
}

// Std calculates the sample standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	lo, _ := Bounds(s.Values)
	return lo
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	_, hi := Bounds(s.Values)
	return hi
}

// Sum returns the total of all values.
func (s *Series) Sum() float64 {
	total := 0.0
	for _, v := range s.Values {
		total += v
	}
	return total
}

// Diff calculates the first difference of the series (d=1).
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN applies first differencing n times.
func (s *Series) DiffN(n int) *Series {
	out := s
	for i := 0; i < n; i++ {
		if out.Len() < 2 {
			return &Series{Values: []float64{}, Name: s.Name}
		}
		values := make([]float64, out.Len()-1)
		for j := 1; j < out.Len(); j++ {
			values[j-1] = out.Values[j] - out.Values[j-1]
		}
		var timestamps []time.Time
		if out.Dated() {
			timestamps = append([]time.Time(nil), out.Timestamps[1:]...)
		}
		out = &Series{Timestamps: timestamps, Values: values, Name: out.Name}
	}
	if n > 0 {
		out.Name = s.Name + "_diff"
	}
	return out
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Name: s.Name}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	var timestamps []time.Time
	if s.Dated() {
		timestamps = make([]time.Time, len(values))
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Window returns the observations dated within [from, to], both inclusive.
// Undated series yield an empty window.
func (s *Series) Window(from, to time.Time) *Series {
	if !s.Dated() {
		return &Series{Values: []float64{}, Name: s.Name}
	}
	start, end := -1, -1
	for i, ts := range s.Timestamps {
		if ts.Before(from) || ts.After(to) {
			continue
		}
		if start == -1 {
			start = i
		}
		end = i + 1
	}
	if start == -1 {
		return &Series{Values: []float64{}, Name: s.Name}
	}
	return s.Slice(start, end)
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	var timestamps []time.Time
	if len(s.Timestamps) > 0 {
		timestamps = make([]time.Time, len(s.Timestamps))
		copy(timestamps, s.Timestamps)
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// MovingAverage calculates a trailing simple moving average with window size.
// The result is dated by the last observation of each window.
func (s *Series) MovingAverage(window int) *Series {
	if window <= 0 || window > len(s.Values) {
		return &Series{Values: []float64{}, Name: s.Name + "_ma"}
	}

	result := make([]float64, len(s.Values)-window+1)
	sum := 0.0

	for i := 0; i < window; i++ {
		sum += s.Values[i]
	}
	result[0] = sum / float64(window)

	for i := window; i < len(s.Values); i++ {
		sum = sum - s.Values[i-window] + s.Values[i]
		result[i-window+1] = sum / float64(window)
	}

	var timestamps []time.Time
	if s.Dated() {
		timestamps = make([]time.Time, len(result))
		copy(timestamps, s.Timestamps[window-1:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_ma",
	}
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the sample variance of values.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(values)-1)
}

// Bounds returns the minimum and maximum of values, NaN for an empty slice.
func Bounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

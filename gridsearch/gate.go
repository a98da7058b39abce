package gridsearch

import (
	"fmt"
	"math"
)

// Gate rejects fits whose short forecast is nearly constant.
type Gate struct {
	Steps    int     // forecast horizon checked
	MinCV    float64 // reject when std/|mean| is below this
	MinRange float64 // reject when max-min is below this, in series units
}

// DefaultGate returns a 10-step gate with CV floor 0.001 and range floor 1000.
func DefaultGate() *Gate {
	return &Gate{Steps: 10, MinCV: 0.001, MinRange: 1000}
}

// Verdict is the outcome of a gate check.
type Verdict struct {
	Rejected bool
	CV       float64
	Range    float64
}

func (v Verdict) String() string {
	if v.Rejected {
		return fmt.Sprintf("degenerate forecast (cv=%.6f, range=%.2f)", v.CV, v.Range)
	}
	return fmt.Sprintf("ok (cv=%.6f, range=%.2f)", v.CV, v.Range)
}

// Check evaluates a forecast. An empty forecast is rejected.
func (g *Gate) Check(forecast []float64) Verdict {
	if len(forecast) == 0 {
		return Verdict{Rejected: true}
	}

	mean := 0.0
	lo, hi := forecast[0], forecast[0]
	for _, v := range forecast {
		mean += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean /= float64(len(forecast))

	ss := 0.0
	for _, v := range forecast {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(forecast)))

	var cv float64
	switch {
	case mean != 0:
		cv = std / math.Abs(mean)
	case std > 0:
		cv = math.Inf(1)
	}

	v := Verdict{CV: cv, Range: hi - lo}
	v.Rejected = math.IsNaN(cv) || cv < g.MinCV || v.Range < g.MinRange
	return v
}

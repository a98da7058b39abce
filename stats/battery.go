package stats

import (
	"math"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

// Verdict summarises how many tests found the series stationary.
type Verdict string

const (
	VerdictStationary    Verdict = "stationary"
	VerdictUncertain     Verdict = "uncertain"
	VerdictNonStationary Verdict = "non-stationary"
)

// Report is the combined outcome of the ADF, KPSS and Phillips-Perron tests.
type Report struct {
	Tests           []*TestResult
	StationaryRatio float64
	Verdict         Verdict
	SuggestedD      int
	Mean            float64
	Std             float64
	CV              float64
}

// Stationary reports whether at least half of the tests that ran agreed.
func (r *Report) Stationary() bool {
	return len(r.Tests) > 0 && r.StationaryRatio >= 0.5
}

// Analyze runs the full test battery on series. Tests that cannot run on a
// series this short are left out of the ratio.
func Analyze(series *timeseries.Series) *Report {
	report := &Report{
		Mean: series.Mean(),
		Std:  series.Std(),
	}
	if report.Mean != 0 {
		report.CV = report.Std / math.Abs(report.Mean)
	}

	for _, res := range []*TestResult{
		ADF(series, 0),
		KPSS(series, "c", 0),
		PhillipsPerron(series, 0),
	} {
		if res != nil {
			report.Tests = append(report.Tests, res)
		}
	}

	passed := 0
	for _, res := range report.Tests {
		if res.Stationary {
			passed++
		}
	}
	if len(report.Tests) > 0 {
		report.StationaryRatio = float64(passed) / float64(len(report.Tests))
	}

	switch {
	case len(report.Tests) > 0 && report.StationaryRatio >= 0.67:
		report.Verdict = VerdictStationary
		report.SuggestedD = 0
	case report.StationaryRatio >= 0.33:
		report.Verdict = VerdictUncertain
		report.SuggestedD = 1
	default:
		report.Verdict = VerdictNonStationary
		report.SuggestedD = 1
	}
	return report
}

// DiffStep is the battery outcome after d differences.
type DiffStep struct {
	D      int
	Length int
	Report *Report
}

// DiffValidation lists every differencing step tried and the recommended d.
type DiffValidation struct {
	Steps     []DiffStep
	OptimalD  int
	Satisfied bool // some step was stationary
}

// ValidateDifferencing differences series up to maxD times, running the
// battery at every order. It stops early once a difference leaves fewer than
// 10 observations. OptimalD is the first stationary order, or the longest
// tested series when none is stationary.
func ValidateDifferencing(series *timeseries.Series, maxD int) *DiffValidation {
	if maxD < 0 {
		maxD = 0
	}

	out := &DiffValidation{OptimalD: -1}
	current := series
	for d := 0; d <= maxD; d++ {
		step := DiffStep{D: d, Length: current.Len(), Report: Analyze(current)}
		out.Steps = append(out.Steps, step)

		if out.OptimalD == -1 && step.Report.Stationary() {
			out.OptimalD = d
			out.Satisfied = true
		}

		if d == maxD {
			break
		}
		current = current.Diff()
		if current.Len() < minObservations {
			break
		}
	}

	if out.OptimalD == -1 {
		out.OptimalD = 0
		longest := -1
		for _, step := range out.Steps {
			if step.Length > longest {
				longest = step.Length
				out.OptimalD = step.D
			}
		}
	}
	return out
}

package stats

import (
	"math"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

const (
	gammaMaxIter = 300
	gammaEps     = 1e-12
	gammaTiny    = 1e-300
)

// LjungBoxResult is the portmanteau statistic for one set of residuals.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// WhiteNoise reports whether the residuals show no autocorrelation at the
// 5% level.
func (r *LjungBoxResult) WhiteNoise() bool {
	return r != nil && r.PValue >= Significance
}

// LjungBox computes Q = n(n+2) * sum r_k^2/(n-k) over lags 1..lags of the
// residual autocorrelation. fitdf is p+q and comes off the degrees of
// freedom. Nil means the residuals are too short or constant.
func LjungBox(residuals *timeseries.Series, lags, fitdf int) *LjungBoxResult {
	n := residuals.Len()
	if n < 10 || lags < 1 {
		return nil
	}
	lags = min(lags, n-1)

	acf := ACF(residuals, lags)
	if acf == nil {
		return nil
	}

	sum := 0.0
	for lag := 1; lag < len(acf); lag++ {
		sum += acf[lag] * acf[lag] / float64(n-lag)
	}
	q := float64(n) * float64(n+2) * sum
	dof := max(lags-fitdf, 1)

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chiSquaredSurvival(q, dof),
		Lags:      len(acf) - 1,
		DOF:       dof,
	}
}

// chiSquaredSurvival returns P(X > x) for X ~ chi2(k).
func chiSquaredSurvival(x float64, k int) float64 {
	if x <= 0 {
		return 1
	}
	return upperGammaQ(float64(k)/2, x/2)
}

// upperGammaQ is the regularized upper incomplete gamma Q(a, x). Below
// x = a+1 it sums the series for P and complements it; above, it evaluates
// the continued fraction for Q with the modified Lentz method.
func upperGammaQ(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	front := math.Exp(a*math.Log(x) - x - lg)

	if x < a+1 {
		term := 1 / a
		sum := term
		for i := 1; i < gammaMaxIter; i++ {
			term *= x / (a + float64(i))
			sum += term
			if math.Abs(term) < math.Abs(sum)*gammaEps {
				break
			}
		}
		return clamp01(1 - front*sum)
	}

	b := x + 1 - a
	c := 1 / gammaTiny
	d := 1 / b
	h := d
	for i := 1; i < gammaMaxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < gammaTiny {
			d = gammaTiny
		}
		c = b + an/c
		if math.Abs(c) < gammaTiny {
			c = gammaTiny
		}
		d = 1 / d
		step := d * c
		h *= step
		if math.Abs(step-1) < gammaEps {
			break
		}
	}
	return clamp01(front * h)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

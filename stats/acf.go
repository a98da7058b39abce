package stats

import (
	"math"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

// ACF calculates the sample autocorrelation for lags 0 to maxLag.
// It returns nil for constant series.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := series.Mean()
	denom := 0.0
	for _, v := range series.Values {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (series.Values[i] - mean) * (series.Values[i-k] - mean)
		}
		acf[k] = sum / denom
	}
	return acf
}

// PACF calculates the partial autocorrelation for lags 0 to maxLag with the
// Durbin-Levinson recursion. Index 0 is always 1.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	acf := ACF(series, maxLag)
	if len(acf) < 2 {
		return nil
	}
	maxLag = len(acf) - 1

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1

	prev := []float64{acf[1]}
	pacf[1] = acf[1]
	for k := 2; k <= maxLag; k++ {
		num, den := acf[k], 1.0
		for j := 1; j < k; j++ {
			num -= prev[j-1] * acf[k-j]
			den -= prev[j-1] * acf[j]
		}
		if den == 0 {
			break
		}
		phikk := num / den
		pacf[k] = phikk

		next := make([]float64, k)
		for j := 1; j < k; j++ {
			next[j-1] = prev[j-1] - phikk*prev[k-j-1]
		}
		next[k-1] = phikk
		prev = next
	}
	return pacf
}

// ConfidenceBound returns the approximate 95% band +/-1.96/sqrt(n).
func ConfidenceBound(n int) float64 {
	if n <= 0 {
		return math.Inf(1)
	}
	return 1.96 / math.Sqrt(float64(n))
}

// SignificantLags returns the lags >= 1 whose magnitude exceeds bound.
func SignificantLags(values []float64, bound float64) []int {
	var lags []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > bound {
			lags = append(lags, i)
		}
	}
	return lags
}

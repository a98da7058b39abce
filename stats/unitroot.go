package stats

import (
	"math"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

// Test names reported in TestResult.Name.
const (
	NameADF  = "ADF"
	NameKPSS = "KPSS"
	NamePP   = "PP"
)

// Significance is the level at which every test decides.
const Significance = 0.05

// minObservations is the shortest series any test accepts.
const minObservations = 10

// TestResult is the outcome of one stationarity test.
type TestResult struct {
	Name           string
	Statistic      float64
	PValue         float64
	Lags           int
	NObs           int
	CriticalValues map[string]float64 // keyed by "1%", "5%", "10%"
	Stationary     bool
}

var dickeyFullerCritical = map[string]float64{
	"1%":  -3.43,
	"5%":  -2.86,
	"10%": -2.57,
}

// ADF performs the Augmented Dickey-Fuller test with a constant.
// H0: the series has a unit root. maxLag <= 0 selects floor((n-1)^(1/3)).
func ADF(series *timeseries.Series, maxLag int) *TestResult {
	n := series.Len()
	if n < minObservations {
		return nil
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	nObs := n - maxLag - 1
	if nObs < minObservations {
		return nil
	}

	diff := series.Diff().Values

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i})
	y := make([]float64, nObs)
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y[i] = diff[t]

		row := make([]float64, 2+maxLag)
		row[0] = 1
		row[1] = series.Values[t]
		for j := 1; j <= maxLag; j++ {
			row[1+j] = diff[t-j]
		}
		x[i] = row
	}

	fit := ols(x, y)
	if fit == nil || fit.stdErrors == nil {
		return nil
	}

	stat := fit.coeffs[1] / fit.stdErrors[1]
	p := mackinnonPValue(stat)

	return &TestResult{
		Name:           NameADF,
		Statistic:      stat,
		PValue:         p,
		Lags:           maxLag,
		NObs:           nObs,
		CriticalValues: copyCritical(dickeyFullerCritical),
		Stationary:     p < Significance,
	}
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test.
// H0: the series is level ("c") or trend ("ct") stationary.
// nlags <= 0 selects ceil(12*(n/100)^(1/4)).
func KPSS(series *timeseries.Series, regression string, nlags int) *TestResult {
	n := series.Len()
	if n < minObservations {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if nlags >= n {
		nlags = n - 1
	}

	var residuals []float64
	if regression == "ct" {
		residuals = detrend(series.Values)
	} else {
		mean := series.Mean()
		residuals = make([]float64, n)
		for i, v := range series.Values {
			residuals[i] = v - mean
		}
	}

	s2 := longRunVariance(residuals, nlags)
	if s2 <= 0 {
		s2 = 1e-10
	}

	partial, eta := 0.0, 0.0
	for _, r := range residuals {
		partial += r
		eta += partial * partial
	}
	stat := eta / (float64(n) * float64(n) * s2)

	critical := map[string]float64{"10%": 0.347, "5%": 0.463, "1%": 0.739}
	if regression == "ct" {
		critical = map[string]float64{"10%": 0.119, "5%": 0.146, "1%": 0.216}
	}
	p := kpssPValue(stat, critical)

	return &TestResult{
		Name:           NameKPSS,
		Statistic:      stat,
		PValue:         p,
		Lags:           nlags,
		NObs:           n,
		CriticalValues: critical,
		Stationary:     p >= Significance,
	}
}

// PhillipsPerron performs the Phillips-Perron unit root test with a constant.
// H0: the series has a unit root. nlags <= 0 selects floor(4*(n/100)^(1/4)).
func PhillipsPerron(series *timeseries.Series, nlags int) *TestResult {
	n := series.Len()
	if n < minObservations {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Floor(4 * math.Pow(float64(n)/100, 0.25)))
	}

	// delta_y_t = alpha + beta*y_{t-1}
	nObs := n - 1
	y := series.Diff().Values
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		x[i] = []float64{1, series.Values[i]}
	}

	fit := ols(x, y)
	if fit == nil || fit.stdErrors == nil {
		return nil
	}

	residuals := make([]float64, nObs)
	for i := 0; i < nObs; i++ {
		residuals[i] = y[i] - fit.coeffs[0] - fit.coeffs[1]*x[i][1]
	}

	gamma0 := 0.0
	for _, r := range residuals {
		gamma0 += r * r
	}
	gamma0 /= float64(nObs)
	lambda2 := longRunVariance(residuals, nlags)

	lagged := make([]float64, nObs)
	for i := range lagged {
		lagged[i] = x[i][1]
	}
	mean := timeseries.Mean(lagged)
	sxx := 0.0
	for _, v := range lagged {
		sxx += (v - mean) * (v - mean)
	}

	tStat := fit.coeffs[1] / fit.stdErrors[1]
	stat := tStat
	if lambda2 > 0 && sxx > 0 {
		correction := (lambda2 - gamma0) * math.Sqrt(float64(nObs)) / (2 * math.Sqrt(lambda2) * math.Sqrt(sxx))
		stat = math.Sqrt(gamma0/lambda2)*tStat - correction
	}
	p := mackinnonPValue(stat)

	return &TestResult{
		Name:           NamePP,
		Statistic:      stat,
		PValue:         p,
		Lags:           nlags,
		NObs:           nObs,
		CriticalValues: copyCritical(dickeyFullerCritical),
		Stationary:     p < Significance,
	}
}

// longRunVariance is the Newey-West estimator with Bartlett weights.
func longRunVariance(residuals []float64, lags int) float64 {
	n := len(residuals)
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)

	for l := 1; l <= lags && l < n; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1 - float64(l)/float64(lags+1)) * cov
	}
	return s2
}

// detrend removes a least-squares line a + b*t.
func detrend(values []float64) []float64 {
	n := float64(len(values))
	var sumT, sumY, sumTY, sumT2 float64
	for i, v := range values {
		t := float64(i)
		sumT += t
		sumY += v
		sumTY += t * v
		sumT2 += t * t
	}
	b := (n*sumTY - sumT*sumY) / (n*sumT2 - sumT*sumT)
	a := (sumY - b*sumT) / n

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - a - b*float64(i)
	}
	return out
}

type olsFit struct {
	coeffs    []float64
	stdErrors []float64
}

// ols fits y = X*beta by least squares. stdErrors is nil when there are no
// residual degrees of freedom.
func ols(x [][]float64, y []float64) *olsFit {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil
	}
	k := len(x[0])

	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			xty[j] += x[i][j] * y[i]
			for l := 0; l < k; l++ {
				xtx[j][l] += x[i][j] * x[i][l]
			}
		}
	}

	inv := invert(xtx)
	if inv == nil {
		return nil
	}

	fit := &olsFit{coeffs: make([]float64, k)}
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			fit.coeffs[i] += inv[i][j] * xty[j]
		}
	}
	if n <= k {
		return fit
	}

	sse := 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += fit.coeffs[j] * x[i][j]
		}
		sse += (y[i] - pred) * (y[i] - pred)
	}
	s2 := sse / float64(n-k)
	fit.stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		fit.stdErrors[i] = math.Sqrt(s2 * inv[i][i])
	}
	return fit
}

// invert uses Gauss-Jordan elimination with partial pivoting. It returns nil
// for singular matrices.
func invert(m [][]float64) [][]float64 {
	n := len(m)
	if n == 0 {
		return nil
	}

	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i][:n], m[i])
		aug[i][n+i] = 1
	}

	for i := 0; i < n; i++ {
		pivot := i
		for k := i + 1; k < n; k++ {
			if math.Abs(aug[k][i]) > math.Abs(aug[pivot][i]) {
				pivot = k
			}
		}
		aug[i], aug[pivot] = aug[pivot], aug[i]

		if math.Abs(aug[i][i]) < 1e-12*maxAbs(aug[i][:n]) || aug[i][i] == 0 {
			return nil
		}

		p := aug[i][i]
		for j := range aug[i] {
			aug[i][j] /= p
		}
		for k := 0; k < n; k++ {
			if k == i {
				continue
			}
			f := aug[k][i]
			for j := range aug[k] {
				aug[k][j] -= f * aug[i][j]
			}
		}
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = append([]float64(nil), aug[i][n:]...)
	}
	return out
}

func maxAbs(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// dfTable pairs asymptotic constant-only Dickey-Fuller quantiles with their
// tail probabilities, ordered by statistic.
var dfTable = [][2]float64{
	{-3.96, 0.001},
	{-3.43, 0.01},
	{-2.86, 0.05},
	{-2.57, 0.10},
	{-1.94, 0.25},
	{-1.62, 0.50},
}

// mackinnonPValue maps a Dickey-Fuller statistic onto a p-value by linear
// interpolation between the asymptotic quantiles.
func mackinnonPValue(stat float64) float64 {
	if stat < dfTable[0][0] {
		return dfTable[0][1]
	}
	for i := 1; i < len(dfTable); i++ {
		lo, hi := dfTable[i-1], dfTable[i]
		if stat < hi[0] {
			return lo[1] + (stat-lo[0])/(hi[0]-lo[0])*(hi[1]-lo[1])
		}
	}
	return math.Min(0.5+(stat+1.62)*0.25, 0.99)
}

// kpssPValue interpolates a KPSS p-value from the critical value table.
func kpssPValue(stat float64, critical map[string]float64) float64 {
	c10, c5, c1 := critical["10%"], critical["5%"], critical["1%"]
	switch {
	case stat > c1:
		return 0.01
	case stat > c5:
		return 0.05 - 0.04*(stat-c5)/(c1-c5)
	case stat > c10:
		return 0.10 - 0.05*(stat-c10)/(c5-c10)
	default:
		return math.Min(0.10+(c10-stat)*0.5, 0.99)
	}
}

func copyCritical(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

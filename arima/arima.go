// Package arima implements ARIMA(p,d,q) models fitted by conditional sum of squares.
package arima

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/stats"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

var (
	// ErrInsufficientData is returned when the series is too short for the order.
	ErrInsufficientData = errors.New("insufficient data points for the specified order")
	// ErrEmptyDifference is returned when differencing consumes the whole series.
	ErrEmptyDifference = errors.New("differencing resulted in empty series")
	// ErrNotFitted is returned by methods that need a fitted model.
	ErrNotFitted = errors.New("model must be fitted before prediction")
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int // AR order
	D int // Differencing order
	Q int // MA order
}

// TotalParams counts AR and MA terms plus the intercept.
func (o Order) TotalParams() int {
	return o.P + o.Q + 1
}

// Valid reports whether every component is non-negative.
func (o Order) Valid() bool {
	return o.P >= 0 && o.D >= 0 && o.Q >= 0
}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// MarshalJSON encodes the order as a [p, d, q] triple.
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{o.P, o.D, o.Q})
}

// UnmarshalJSON accepts either a [p, d, q] triple or an object with p, d
// and q fields.
func (o *Order) UnmarshalJSON(data []byte) error {
	var triple []int
	if err := json.Unmarshal(data, &triple); err == nil {
		if len(triple) != 3 {
			return fmt.Errorf("order needs 3 values, got %d", len(triple))
		}
		*o = Order{P: triple[0], D: triple[1], Q: triple[2]}
		return nil
	}
	var obj struct {
		P int `json:"p"`
		D int `json:"d"`
		Q int `json:"q"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode order: %w", err)
	}
	*o = Order{P: obj.P, D: obj.D, Q: obj.Q}
	return nil
}

// MinObservations is the shortest series Fit accepts for this order.
func (o Order) MinObservations() int {
	return o.P + o.Q + o.D + 10
}

// Model represents an ARIMA model.
type Model struct {
	Order      Order
	ARCoeffs   []float64 // AR coefficients (phi)
	MACoeffs   []float64 // MA coefficients (theta)
	Intercept  float64
	Variance   float64 // Residual variance
	AIC        float64
	AICc       float64
	BIC        float64
	LogLik     float64
	fitted     bool
	data       []float64
	diffData   []float64
	residuals  []float64
	fittedVals []float64
}

// New creates a new ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return &Model{
		Order:    Order{P: p, D: d, Q: q},
		ARCoeffs: make([]float64, p),
		MACoeffs: make([]float64, q),
	}
}

// Fit fits the ARIMA model to the given time series data.
func (m *Model) Fit(series *timeseries.Series) error {
	if series.Len() < m.Order.MinObservations() {
		return ErrInsufficientData
	}

	diffed := series.DiffN(m.Order.D)
	if diffed.Len() == 0 {
		return ErrEmptyDifference
	}

	m.data = append([]float64(nil), series.Values...)
	m.diffData = diffed.Values

	m.fitCSS()
	m.calculateIC()

	m.fitted = true
	return nil
}

// fitCSS fits the model using Conditional Sum of Squares estimation.
func (m *Model) fitCSS() {
	y := m.diffData
	p, q := m.Order.P, m.Order.Q

	m.Intercept = timeseries.Mean(y)

	if p > 0 {
		if acf := stats.ACF(timeseries.New(y), p); acf != nil {
			if phi := yuleWalker(acf, p); phi != nil {
				copy(m.ARCoeffs, phi)
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}

	if p > 0 || q > 0 {
		sd := math.Sqrt(timeseries.Variance(y))
		if sd > 0 {
			z := make([]float64, len(y))
			for i, v := range y {
				z[i] = (v - m.Intercept) / sd
			}
			m.optimizeCSS(z)
		}
	}

	m.residuals, m.fittedVals = m.filter(y)

	start := max(p, q)
	sse := 0.0
	count := 0
	for t := start; t < len(y); t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	switch {
	case count > p+q+1:
		m.Variance = sse / float64(count-p-q-1)
	case count > 0:
		m.Variance = sse / float64(count)
	}
}

// filter runs the ARMA recursion over y and returns residuals and fitted values.
// Observations before max(p, q) are fitted by the intercept.
func (m *Model) filter(y []float64) (residuals, fitted []float64) {
	n := len(y)
	p, q := m.Order.P, m.Order.Q
	residuals = make([]float64, n)
	fitted = make([]float64, n)

	start := max(p, q)
	for t := 0; t < n; t++ {
		pred := m.Intercept
		if t >= start {
			for i := 0; i < p; i++ {
				pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < q; i++ {
				pred += m.MACoeffs[i] * residuals[t-i-1]
			}
		}
		fitted[t] = pred
		residuals[t] = y[t] - pred
	}
	return residuals, fitted
}

// optimizeCSS refines the coefficients by clamped gradient descent on the
// standardised differenced series z (mean 0, unit variance).
func (m *Model) optimizeCSS(z []float64) {
	n := len(z)
	p, q := m.Order.P, m.Order.Q
	start := max(p, q)

	const (
		maxIter      = 100
		tolerance    = 1e-6
		learningRate = 0.01
	)

	sse := func(residuals []float64) float64 {
		total := 0.0
		for t := start; t < n; t++ {
			total += residuals[t] * residuals[t]
		}
		return total
	}

	residuals := make([]float64, n)
	arGrad := make([]float64, p)
	maGrad := make([]float64, q)

	for iter := 0; iter < maxIter; iter++ {
		for t := start; t < n; t++ {
			pred := 0.0
			for i := 0; i < p; i++ {
				pred += m.ARCoeffs[i] * z[t-i-1]
			}
			for i := 0; i < q; i++ {
				pred += m.MACoeffs[i] * residuals[t-i-1]
			}
			residuals[t] = z[t] - pred
		}
		prevSSE := sse(residuals)

		clear(arGrad)
		clear(maGrad)
		for t := start; t < n; t++ {
			for i := 0; i < p; i++ {
				arGrad[i] -= 2 * residuals[t] * z[t-i-1]
			}
			for i := 0; i < q; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
		}

		// Bounds keep the AR part stationary and the MA part invertible.
		for i := 0; i < p; i++ {
			m.ARCoeffs[i] -= learningRate * arGrad[i] / float64(n)
			m.ARCoeffs[i] = math.Max(-0.99, math.Min(0.99, m.ARCoeffs[i]))
		}
		for i := 0; i < q; i++ {
			m.MACoeffs[i] -= learningRate * maGrad[i] / float64(n)
			m.MACoeffs[i] = math.Max(-0.99, math.Min(0.99, m.MACoeffs[i]))
		}

		for t := start; t < n; t++ {
			pred := 0.0
			for i := 0; i < p; i++ {
				pred += m.ARCoeffs[i] * z[t-i-1]
			}
			for i := 0; i < q; i++ {
				pred += m.MACoeffs[i] * residuals[t-i-1]
			}
			residuals[t] = z[t] - pred
		}

		if math.Abs(prevSSE-sse(residuals)) < tolerance {
			break
		}
	}
}

// calculateIC calculates AIC, AICc, and BIC from a Gaussian log-likelihood.
func (m *Model) calculateIC() {
	n := float64(len(m.residuals))
	k := float64(m.Order.TotalParams())

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.Variance > 0 {
		m.LogLik = -n/2*math.Log(2*math.Pi) - n/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(-1)
	}

	m.AIC = -2*m.LogLik + 2*k
	if n-k-1 > 0 {
		m.AICc = m.AIC + 2*k*(k+1)/(n-k-1)
	} else {
		m.AICc = math.Inf(1)
	}
	m.BIC = -2*m.LogLik + k*math.Log(n)
}

// Criterion returns the AIC used to rank candidate orders.
func (m *Model) Criterion() float64 {
	return m.AIC
}

// Forecast is Predict under the name the grid search expects.
func (m *Model) Forecast(steps int) ([]float64, error) {
	return m.Predict(steps)
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	p, q := m.Order.P, m.Order.Q
	y := m.diffData
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		// Future shocks have expectation zero.
		for i := 0; i < q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MACoeffs[i] * extResiduals[t-i-1]
		}
		extY[t] = pred
	}

	forecasts := append([]float64(nil), extY[n:]...)
	if m.Order.D > 0 {
		forecasts = m.integrate(forecasts)
	}
	return forecasts, nil
}

// integrate undoes d rounds of differencing. The anchor for round i is the
// last value of the series differenced d-1-i times.
func (m *Model) integrate(forecasts []float64) []float64 {
	d := m.Order.D

	levels := make([][]float64, d)
	current := m.data
	for i := 0; i < d; i++ {
		levels[i] = current
		next := make([]float64, len(current)-1)
		for j := 1; j < len(current); j++ {
			next[j-1] = current[j] - current[j-1]
		}
		current = next
	}

	result := append([]float64(nil), forecasts...)
	for i := d - 1; i >= 0; i-- {
		anchor := levels[i][len(levels[i])-1]
		for j := range result {
			if j == 0 {
				result[j] += anchor
			} else {
				result[j] += result[j-1]
			}
		}
	}
	return result
}

// Residuals returns the model residuals on the differenced scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// FittedValues returns the in-sample fitted values on the differenced scale.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.fittedVals...)
}

// Summary describes a fitted model.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	RSquared  float64 // in-sample fit of the differenced series
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model, including a Ljung-Box test
// on the residuals at lag 10.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  append([]float64(nil), m.ARCoeffs...),
		MACoeffs:  append([]float64(nil), m.MACoeffs...),
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      len(m.data),
		RSquared:  rSquared(m.FittedValues(), m.Residuals()),
		LjungBox:  stats.LjungBox(timeseries.New(m.Residuals()), 10, m.Order.P+m.Order.Q),
	}
}

// rSquared is 1 - SSres/SStot where each observation is fitted + residual.
func rSquared(fitted, residuals []float64) float64 {
	if len(fitted) == 0 || len(fitted) != len(residuals) {
		return math.NaN()
	}
	actual := make([]float64, len(fitted))
	for i := range fitted {
		actual[i] = fitted[i] + residuals[i]
	}
	mean := timeseries.Mean(actual)
	ssRes, ssTot := 0.0, 0.0
	for i, v := range actual {
		ssRes += residuals[i] * residuals[i]
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		return math.NaN()
	}
	return 1 - ssRes/ssTot
}

// yuleWalker solves the Yule-Walker equations by Levinson-Durbin recursion.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := []float64{acf[1]}
	v := 1 - acf[1]*acf[1]
	for k := 1; k < order; k++ {
		if v <= 0 {
			break
		}
		lambda := acf[k+1]
		for j := 0; j < k; j++ {
			lambda -= phi[j] * acf[k-j]
		}
		lambda /= v

		next := make([]float64, k+1)
		for j := 0; j < k; j++ {
			next[j] = phi[j] - lambda*phi[k-1-j]
		}
		next[k] = lambda
		phi = next
		v *= 1 - lambda*lambda
	}

	out := make([]float64, order)
	copy(out, phi)
	return out
}

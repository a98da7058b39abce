package gridsearch

import (
	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
)

// Handle is a fitted model as seen by the engine.
type Handle interface {
	Criterion() float64
	Forecast(steps int) ([]float64, error)
}

// FitResult is either a Handle or a Failure.
type FitResult struct {
	Handle  Handle
	Failure *arima.FitError
}

// Fitter fits one candidate order.
type Fitter interface {
	Fit(series []float64, order arima.Order) FitResult
}

// FitterFunc adapts a function to Fitter.
type FitterFunc func(series []float64, order arima.Order) FitResult

func (f FitterFunc) Fit(series []float64, order arima.Order) FitResult {
	return f(series, order)
}

// ARIMAFitter fits candidates with arima.FitOrder.
type ARIMAFitter struct{}

func (ARIMAFitter) Fit(series []float64, order arima.Order) FitResult {
	out := arima.FitOrder(series, order)
	if !out.OK() {
		return FitResult{Failure: out.Failure}
	}
	return FitResult{Handle: out.Model}
}

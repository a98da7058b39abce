// Package arima implements ARIMA(p,d,q) models fitted by conditional sum of
// squares.
//
// An ARIMA(p,d,q) model combines:
//   - AR(p): p autoregressive lags
//   - I(d): d rounds of first differencing
//   - MA(q): q moving-average lags
//
// # Basic Usage
//
//	model := arima.New(2, 1, 3)
//	if err := model.Fit(series); err != nil {
//	    log.Fatal(err)
//	}
//	forecasts, _ := model.Predict(122)
//
// AR coefficients start from Yule-Walker estimates and MA coefficients from
// 0.1. Both are refined by gradient steps on the standardised differenced
// series and clamped to (-0.99, 0.99). AIC, AICc and BIC use a Gaussian
// log-likelihood with p+q+1 parameters.
//
// # Explicit Outcomes
//
// FitOrder wraps Fit for callers that try many orders. It returns an Outcome
// carrying either the fitted model or a FitError with a Reason, and never
// panics:
//
//	out := arima.FitOrder(values, arima.Order{P: 2, D: 1, Q: 3})
//	if !out.OK() {
//	    fmt.Println(out.Failure.Reason)
//	}
//
// # Diagnostics
//
// Summary includes a Ljung-Box test on the residuals at lag 10.
package arima

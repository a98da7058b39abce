/*
Package gridsearch selects ARIMA orders by exhaustive search.

The engine walks p, d and q ranges in that nesting order, skips orders
whose p+q+1 exceeds the parameter budget, fits the rest and keeps the
candidate with the strictly lowest AIC. A fit that fails is logged and
recorded as an Attempt; it never stops the search.

An optional Gate forecasts a few steps from each fit and drops models
whose forecast is almost flat, since those tend to win on AIC while
predicting nothing useful.

	engine := gridsearch.New(gridsearch.WithLogger(log))
	space := gridsearch.DefaultSpace(gridsearch.Budget(len(values), 10, 0.05))
	res, err := engine.Search(values, space)
	if err != nil {
		return err // empty series or zero budget
	}
	if !res.Found() {
		// fall back to a default order
	}
*/
package gridsearch

// Package fundflow forecasts daily fund purchase and redeem totals with
// ARIMA models.
//
// The interesting part is choosing the model order. An exhaustive grid
// search fits every ARIMA(p,d,q) within a parameter budget and keeps the
// lowest AIC, skipping fits whose short-term forecast is flat. The winner is
// cached in a JSON file keyed by a fingerprint of the data file, so reruns
// on unchanged data skip the search entirely.
//
// # Quick Start
//
// Search, cache and reuse an order:
//
//	store, _ := cache.Open("cache/arima_cache.json")
//	engine := gridsearch.New()
//	searcher := pipeline.New(store, engine, pipeline.DefaultSearchConfig(), log)
//	order, ok := searcher.GetOrSearch(train.Values, "data/user_balance_table.csv", cache.Purchase)
//
// Forecast with it:
//
//	h, _ := forecast.NewHorizon(train.Last(), from, to)
//	fc, _ := forecast.Predict(train, order, h)
//
// # Packages
//
//   - timeseries: Series type and the user balance table loader
//   - arima: CSS-estimated ARIMA models and the per-order fitter
//   - gridsearch: Exhaustive order search with the degeneracy gate
//   - fingerprint: Content-derived cache keys
//   - cache: Fingerprint-keyed JSON store for orders and artifacts
//   - pipeline: Cache-or-search orchestration
//   - forecast: Horizons, dated predictions and CSV export
//   - stats: ADF, KPSS and Phillips-Perron tests, ACF and Ljung-Box
//
// The fundflow command in cmd/fundflow wires these together behind a cobra
// command tree and an interactive menu.
package fundflow

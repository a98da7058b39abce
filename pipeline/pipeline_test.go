package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/cache"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/gridsearch"
)

type handle struct{ aic float64 }

func (h handle) Criterion() float64 { return h.aic }

func (h handle) Forecast(steps int) ([]float64, error) {
	out := make([]float64, steps)
	for i := range out {
		out[i] = float64(i) * 1e5
	}
	return out, nil
}

// countingFitter prefers ARIMA(1,1,1) and counts calls.
type countingFitter struct{ calls int }

func (f *countingFitter) Fit(_ []float64, order arima.Order) gridsearch.FitResult {
	f.calls++
	aic := float64(100 + order.P + order.D + order.Q)
	if order == (arima.Order{P: 1, D: 1, Q: 1}) {
		aic = 1
	}
	return gridsearch.FitResult{Handle: handle{aic: aic}}
}

type fixture struct {
	searcher *Searcher
	fitter   *countingFitter
	dataFile string
	series   []float64
}

func setup(t *testing.T, fitter gridsearch.Fitter) fixture {
	t.Helper()
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "user_balance_table.csv")
	require.NoError(t, os.WriteFile(dataFile, []byte("report_date,total_purchase_amt\n20140301,1\n"), 0o644))

	store, res := cache.Open(filepath.Join(dir, "cache", "arima_cache.json"))
	require.True(t, res.OK())

	cfg := DefaultSearchConfig()
	cfg.P = gridsearch.Range{From: 0, To: 3}
	cfg.Q = gridsearch.Range{From: 0, To: 3}

	engine := gridsearch.New(gridsearch.WithFitter(fitter))
	series := make([]float64, 184)
	for i := range series {
		series[i] = float64(i)
	}

	f := fixture{
		searcher: New(store, engine, cfg, zerolog.Nop()),
		dataFile: dataFile,
		series:   series,
	}
	if cf, ok := fitter.(*countingFitter); ok {
		f.fitter = cf
	}
	return f
}

func TestGetOrSearchUsesCacheOnSecondCall(t *testing.T) {
	fitter := &countingFitter{}
	f := setup(t, fitter)

	order, ok := f.searcher.GetOrSearch(f.series, f.dataFile, cache.Purchase)
	require.True(t, ok)
	assert.Equal(t, arima.Order{P: 1, D: 1, Q: 1}, order)
	searched := fitter.calls
	require.Positive(t, searched)

	order, ok = f.searcher.GetOrSearch(f.series, f.dataFile, cache.Purchase)
	require.True(t, ok)
	assert.Equal(t, arima.Order{P: 1, D: 1, Q: 1}, order)
	assert.Equal(t, searched, fitter.calls, "second call must not fit")

	r := f.searcher.Resolve(f.series, f.dataFile, cache.Purchase)
	assert.True(t, r.FromCache)
	assert.Equal(t, 3, r.Params.TotalParams)
}

func TestGetOrSearchSeparatesSeries(t *testing.T) {
	fitter := &countingFitter{}
	f := setup(t, fitter)

	_, ok := f.searcher.GetOrSearch(f.series, f.dataFile, cache.Purchase)
	require.True(t, ok)
	before := fitter.calls

	_, ok = f.searcher.GetOrSearch(f.series, f.dataFile, cache.Redeem)
	require.True(t, ok)
	assert.Greater(t, fitter.calls, before, "redeem has its own cache entry")
}

func TestChangedFileForcesSearch(t *testing.T) {
	fitter := &countingFitter{}
	f := setup(t, fitter)

	_, ok := f.searcher.GetOrSearch(f.series, f.dataFile, cache.Purchase)
	require.True(t, ok)
	before := fitter.calls

	require.NoError(t, os.WriteFile(f.dataFile, []byte("report_date,total_purchase_amt\n20140301,2\n"), 0o644))

	r := f.searcher.Resolve(f.series, f.dataFile, cache.Purchase)
	require.True(t, r.Found)
	assert.False(t, r.FromCache)
	assert.Greater(t, fitter.calls, before)
}

func TestBudgetFollowsLength(t *testing.T) {
	fitter := &countingFitter{}
	f := setup(t, fitter)

	r := f.searcher.Resolve(f.series, f.dataFile, cache.Purchase)
	require.NotNil(t, r.Search)
	// 184 * 0.05 = 9.2, so the budget is 9.
	for _, a := range r.Search.Attempts {
		if a.Outcome != gridsearch.OutcomeSkipped {
			assert.LessOrEqual(t, a.Order.TotalParams(), 9)
		}
	}

	p, res := f.searcher.Store.GetParams(f.dataFile, cache.Purchase)
	require.True(t, res.OK())
	assert.Equal(t, 184, p.DataLength)
	assert.Equal(t, 3, p.TotalParams)
	assert.Equal(t, 1.63, p.ParamRatio)
}

func TestShortSeriesYieldsNothing(t *testing.T) {
	fitter := &countingFitter{}
	f := setup(t, fitter)

	order, ok := f.searcher.GetOrSearch(f.series[:15], f.dataFile, cache.Purchase)
	assert.False(t, ok)
	assert.Equal(t, arima.Order{}, order)
	assert.Zero(t, fitter.calls)
}

func TestExhaustedSearchIsNotCached(t *testing.T) {
	failing := gridsearch.FitterFunc(func(_ []float64, order arima.Order) gridsearch.FitResult {
		return gridsearch.FitResult{Failure: &arima.FitError{Order: order, Reason: arima.ReasonNumerical, Err: errors.New("singular")}}
	})
	f := setup(t, failing)

	_, ok := f.searcher.GetOrSearch(f.series, f.dataFile, cache.Purchase)
	assert.False(t, ok)
	assert.False(t, f.searcher.Store.IsValid(f.dataFile))
}

func TestMissingDataFileStillSearches(t *testing.T) {
	fitter := &countingFitter{}
	f := setup(t, fitter)

	r := f.searcher.Resolve(f.series, filepath.Join(t.TempDir(), "gone.csv"), cache.Purchase)
	assert.True(t, r.Found)
	assert.Equal(t, cache.StatusKeyUnavailable, r.Saved.Status)
}

func TestSummary(t *testing.T) {
	fitter := &countingFitter{}
	f := setup(t, fitter)

	_, ok := f.searcher.Summary(f.dataFile)
	assert.False(t, ok)

	res := f.searcher.SaveResult(f.dataFile, cache.Purchase, arima.Order{P: 2, D: 1, Q: 3}, 1234.56, 6, 184)
	require.True(t, res.OK())

	s, ok := f.searcher.Summary(f.dataFile)
	require.True(t, ok)
	assert.Equal(t, "ARIMA(2,1,3) (AIC:1234.6, params:6, 3.26%)", s)

	_, ok = f.searcher.SummaryFor(f.dataFile, cache.Redeem)
	assert.False(t, ok)
}

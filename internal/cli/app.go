package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/cache"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/forecast"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/gridsearch"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/config"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/pipeline"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/stats"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

const (
	predictionFile = "prediction.csv"
	trendFile      = "trend_ma7.csv"
	trendWindow    = 7

	correlogramLags = 20
)

// App holds everything a command needs. It is built once per process.
type App struct {
	cfg      *config.Config
	log      zerolog.Logger
	out      io.Writer
	store    *cache.Store
	searcher *pipeline.Searcher
}

// NewApp opens the cache and wires the search pipeline from cfg.
func NewApp(cfg *config.Config, log zerolog.Logger, out io.Writer) *App {
	store, res := cache.Open(cfg.Cache.File, cache.WithLogger(log), cache.WithEnabled(cfg.Cache.Enabled))
	if res.Status == cache.StatusCorrupt {
		fmt.Fprintf(out, "! cache file %s was unreadable and has been reset\n", cfg.Cache.File)
	}

	var gate *gridsearch.Gate
	if cfg.Gate.Enabled {
		gate = &gridsearch.Gate{Steps: cfg.Gate.Steps, MinCV: cfg.Gate.MinCV, MinRange: cfg.Gate.MinRange}
	}
	engine := gridsearch.New(gridsearch.WithLogger(log), gridsearch.WithGate(gate))

	sc := pipeline.SearchConfig{
		P:          gridsearch.Range{From: cfg.ARIMA.P.From, To: cfg.ARIMA.P.To},
		D:          gridsearch.Range{From: cfg.ARIMA.D.From, To: cfg.ARIMA.D.To},
		Q:          gridsearch.Range{From: cfg.ARIMA.Q.From, To: cfg.ARIMA.Q.To},
		MaxParams:  cfg.ARIMA.MaxParams,
		ParamRatio: cfg.ARIMA.ParamRatio,
	}

	return &App{
		cfg:      cfg,
		log:      log,
		out:      out,
		store:    store,
		searcher: pipeline.New(store, engine, sc, log),
	}
}

// Store exposes the cache for commands that inspect it directly.
func (a *App) Store() *cache.Store { return a.store }

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func rule(ch string) string {
	return strings.Repeat(ch, 50)
}

func (a *App) loadFlow() (*timeseries.FundFlow, error) {
	opts := &timeseries.BalanceOptions{
		DateColumn:     a.cfg.Data.DateColumn,
		PurchaseColumn: a.cfg.Data.PurchaseColumn,
		RedeemColumn:   a.cfg.Data.RedeemColumn,
		DateFormat:     a.cfg.Data.DateFormat,
		Start:          a.cfg.Data.StartTime(),
	}
	flow, err := timeseries.LoadBalanceTable(a.cfg.Data.File, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.cfg.Data.File, err)
	}
	a.log.Debug().Int("days", flow.Len()).Msg("balance table loaded")
	return flow, nil
}

func (a *App) training(flow *timeseries.FundFlow, disc cache.Discriminator) (*timeseries.Series, error) {
	s, err := flow.Series(string(disc))
	if err != nil {
		return nil, err
	}
	from, to := a.cfg.ARIMA.TrainWindow()
	train := s.Window(from, to)
	if train.Len() == 0 {
		return nil, fmt.Errorf("no %s data between %s and %s", disc, a.cfg.ARIMA.TrainStart, a.cfg.ARIMA.TrainEnd)
	}
	return train, nil
}

func (a *App) fallbackOrder() arima.Order {
	return arima.Order{P: a.cfg.ARIMA.FallbackP, D: a.cfg.ARIMA.FallbackD, Q: a.cfg.ARIMA.FallbackQ}
}

// Search finds the best order for one series, from the cache unless force
// is set.
func (a *App) Search(disc cache.Discriminator, force bool) (*pipeline.Resolution, error) {
	flow, err := a.loadFlow()
	if err != nil {
		return nil, err
	}
	train, err := a.training(flow, disc)
	if err != nil {
		return nil, err
	}

	a.printf("Training %s: %d days (%s to %s)\n", disc, train.Len(),
		train.First().Format("2006-01-02"), train.Last().Format("2006-01-02"))

	var r *pipeline.Resolution
	if force {
		r = a.searcher.Search(train.Values, a.cfg.Data.File, disc)
	} else {
		r = a.searcher.Resolve(train.Values, a.cfg.Data.File, disc)
	}

	switch {
	case r.FromCache:
		a.printf("Cached parameters: %s (AIC %.2f)\n", r.Order, r.Params.BestAIC)
	case r.Found:
		a.printf("Best parameters: %s (AIC %.2f, %d params, %.1f%% of data)\n",
			r.Order, r.Search.Criterion, r.Order.TotalParams(),
			float64(r.Order.TotalParams())/float64(train.Len())*100)
		if r.Saved.OK() {
			a.printf("Cached under %s\n", r.Saved.Key)
		} else {
			a.printf("! result not cached: %s\n", r.Saved)
		}
	default:
		a.printf("No valid ARIMA parameters found\n")
	}
	if r.Search != nil {
		a.printf("Candidates: %d fitted, %d failed, %d rejected, %d over budget\n",
			r.Search.Count(gridsearch.OutcomeFitted), r.Search.Count(gridsearch.OutcomeFailed),
			r.Search.Count(gridsearch.OutcomeRejected), r.Search.Count(gridsearch.OutcomeSkipped))
	}
	return r, nil
}

// Predict forecasts purchase and redeem over the configured window using the
// purchase order.
func (a *App) Predict() (*forecast.Flow, error) {
	flow, err := a.loadFlow()
	if err != nil {
		return nil, err
	}
	purchase, err := a.training(flow, cache.Purchase)
	if err != nil {
		return nil, err
	}
	redeem, err := a.training(flow, cache.Redeem)
	if err != nil {
		return nil, err
	}

	order, ok := a.searcher.GetOrSearch(purchase.Values, a.cfg.Data.File, cache.Purchase)
	if !ok {
		order = a.fallbackOrder()
		a.printf("No parameters found, using default %s\n", order)
	}

	from, to := a.cfg.ARIMA.PredictWindow()
	h, err := forecast.NewHorizon(purchase.Last(), from, to)
	if err != nil {
		return nil, err
	}

	result, err := forecast.PredictFlow(purchase, redeem, order, h, a.cfg.ARIMA.RedeemRatioFallback)
	if err != nil {
		return nil, err
	}

	a.printf("%s\nForecast %s, %d steps, %s to %s\n%s\n", rule("="), order, h.Steps,
		h.Dates[0].Format("2006-01-02"), h.Dates[len(h.Dates)-1].Format("2006-01-02"), rule("="))
	a.printf("Training mean:   %.2f\n", purchase.Mean())
	a.printf("Training std:    %.2f\n", purchase.Std())
	a.printf("Forecast mean:   %.2f\n", result.Purchase.Mean())
	a.printf("Forecast std:    %.2f\n", result.Purchase.Std())
	a.printf("Model AIC:       %.2f\n", result.Purchase.AIC)
	a.printf("Model BIC:       %.2f\n", result.Purchase.BIC)
	a.printDiagnostics(result.Purchase)
	if result.RedeemEstimated {
		a.printf("! redeem fit failed (%v), estimated at %.2f%% of purchase\n", result.RedeemErr, result.Ratio*100)
	} else {
		a.printDiagnostics(result.Redeem)
	}
	return result, nil
}

// printDiagnostics reports the in-sample fit and the Ljung-Box test on the
// residuals of one fitted series.
func (a *App) printDiagnostics(f *forecast.Forecast) {
	d := f.Diagnostics
	if d == nil {
		return
	}
	a.printf("%s residuals: R2=%.3f", f.Name, d.RSquared)
	lb := d.LjungBox
	if lb == nil {
		a.printf(", Ljung-Box not available\n")
		return
	}
	verdict := "autocorrelated"
	if lb.WhiteNoise() {
		verdict = "white noise"
	}
	a.printf(", Ljung-Box Q(%d)=%.2f p=%.4f (%s)\n", lb.Lags, lb.Statistic, lb.PValue, verdict)
	a.log.Debug().Str("series", f.Name).Float64("ljung_box_p", lb.PValue).Int("dof", lb.DOF).Msg("residual diagnostics")
}

// Export predicts and writes the prediction CSV, registering it in the cache.
func (a *App) Export() (string, error) {
	result, err := a.Predict()
	if err != nil {
		return "", err
	}

	path := filepath.Join(a.cfg.Output.CSVDir, predictionFile)
	if err := forecast.ExportFlow(path, result, a.cfg.Output.Decimals); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	a.printf("Saved %s (%d rows)\n", path, len(result.Purchase.Dates))
	a.printf("Purchase: mean=%.2f std=%.2f\n", result.Purchase.Mean(), result.Purchase.Std())
	a.printf("Redeem:   mean=%.2f std=%.2f\n", result.Redeem.Mean(), result.Redeem.Std())

	desc := fmt.Sprintf("%s purchase/redeem forecast", result.Purchase.Order)
	if res := a.store.SaveArtifact(a.cfg.Data.File, cache.KindCSV, "prediction", path, desc); !res.OK() {
		a.log.Warn().Str("status", string(res.Status)).Msg("prediction export not cached")
	}
	return path, nil
}

// Trend prints summary statistics and writes a 7-day moving average CSV.
func (a *App) Trend() (string, error) {
	flow, err := a.loadFlow()
	if err != nil {
		return "", err
	}

	a.printf("%-9s %6s %18s %18s %18s %18s\n", "series", "days", "mean", "std", "min", "max")
	var averages []*timeseries.Series
	for _, disc := range []cache.Discriminator{cache.Purchase, cache.Redeem} {
		s, err := flow.Series(string(disc))
		if err != nil {
			return "", err
		}
		a.printf("%-9s %6d %18.2f %18.2f %18.2f %18.2f\n", disc, s.Len(), s.Mean(), s.Std(), s.Min(), s.Max())
		averages = append(averages, s.MovingAverage(trendWindow))
	}
	if averages[0].Len() == 0 {
		return "", errors.New("not enough days for a 7-day moving average")
	}

	path := filepath.Join(a.cfg.Output.Dir, trendFile)
	if err := ensureDir(path); err != nil {
		return "", err
	}
	if err := timeseries.SaveCSV(path, averages...); err != nil {
		return "", fmt.Errorf("write trend: %w", err)
	}
	a.printf("Saved %s\n", path)

	if res := a.store.SaveArtifact(a.cfg.Data.File, cache.KindCSV, "trend", path, "7-day moving average of purchase and redeem"); !res.OK() {
		a.log.Warn().Str("status", string(res.Status)).Msg("trend export not cached")
	}
	return path, nil
}

// Stationarity runs the test battery on the training window of one series
// and validates differencing up to maxD.
func (a *App) Stationarity(disc cache.Discriminator, maxD int) (*stats.DiffValidation, error) {
	flow, err := a.loadFlow()
	if err != nil {
		return nil, err
	}
	train, err := a.training(flow, disc)
	if err != nil {
		return nil, err
	}

	v := stats.ValidateDifferencing(train, maxD)
	for _, step := range v.Steps {
		a.printf("%s\nd=%d (%d observations)\n%s\n", rule("-"), step.D, step.Length, rule("-"))
		for _, t := range step.Report.Tests {
			mark := "non-stationary"
			if t.Stationary {
				mark = "stationary"
			}
			a.printf("  %-6s stat=%10.4f  p=%.4f  lags=%d  %s\n", t.Name, t.Statistic, t.PValue, t.Lags, mark)
		}
		a.printf("  verdict: %s (%.0f%% of tests)\n", step.Report.Verdict, step.Report.StationaryRatio*100)
	}
	if v.Satisfied {
		a.printf("Recommended d = %d\n", v.OptimalD)
	} else {
		a.printf("No tested order is stationary; d = %d keeps the most data\n", v.OptimalD)
	}

	diffed := train.DiffN(v.OptimalD)
	bound := stats.ConfidenceBound(diffed.Len())
	a.printf("Significant ACF lags (q hint):  %v\n", stats.SignificantLags(stats.ACF(diffed, correlogramLags), bound))
	a.printf("Significant PACF lags (p hint): %v\n", stats.SignificantLags(stats.PACF(diffed, correlogramLags), bound))
	return v, nil
}

// CacheSummaries returns the cached summary line for each series.
func (a *App) CacheSummaries() map[cache.Discriminator]string {
	out := make(map[cache.Discriminator]string)
	for _, disc := range []cache.Discriminator{cache.Purchase, cache.Redeem} {
		if s, ok := a.searcher.SummaryFor(a.cfg.Data.File, disc); ok {
			out[disc] = s
		}
	}
	return out
}

// ShowRecord prints the record for the configured data file.
func (a *App) ShowRecord() error {
	rec, res := a.store.Get(a.cfg.Data.File)
	switch res.Status {
	case cache.StatusOK:
	case cache.StatusMiss:
		a.printf("No cache record for %s\n", a.cfg.Data.File)
		return nil
	default:
		return fmt.Errorf("cache: %s", res)
	}

	a.printf("Key: %s\n", res.Key)
	for _, disc := range []cache.Discriminator{cache.Purchase, cache.Redeem} {
		if p := rec.Params[disc]; p != nil {
			a.printf("%-9s %s AIC=%.2f params=%d (%g%%)\n", disc, p.BestParams, p.BestAIC, p.TotalParams, p.ParamRatio)
		}
	}
	for _, kind := range []cache.Kind{cache.KindImage, cache.KindCSV} {
		artifacts, res := a.store.AllArtifacts(a.cfg.Data.File, kind)
		if res.Status != cache.StatusOK {
			continue
		}
		for label, art := range artifacts {
			state := "present"
			if !art.Exists {
				state = "missing"
			}
			a.printf("%-5s %-12s %s (%s)\n", kind, label, art.Path, state)
		}
	}
	return nil
}

// ClearCache removes the record for the data file, or everything when all
// is set.
func (a *App) ClearCache(all bool) error {
	var res cache.Result
	if all {
		res = a.store.ClearAll()
	} else {
		res = a.store.Clear(a.cfg.Data.File)
	}
	switch res.Status {
	case cache.StatusOK:
		if all {
			a.printf("Cleared all cache records\n")
		} else {
			a.printf("Cleared cache record %s\n", res.Key)
		}
		return nil
	case cache.StatusMiss:
		a.printf("No cache record for %s\n", a.cfg.Data.File)
		return nil
	default:
		return fmt.Errorf("cache: %s", res)
	}
}

// Package pipeline connects the parameter cache to the grid search engine.
package pipeline

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/cache"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/gridsearch"
)

// SearchConfig describes the candidate grid and how the budget is derived
// from the training length.
type SearchConfig struct {
	P, D, Q    gridsearch.Range
	MaxParams  int     // upper limit on p+q+1
	ParamRatio float64 // budget is at most this share of the observations
}

// DefaultSearchConfig returns p [0,10), d [0,2), q [0,10), a budget of at
// most 10 parameters and 5% of the data.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		P:          gridsearch.Range{From: 0, To: 10},
		D:          gridsearch.Range{From: 0, To: 2},
		Q:          gridsearch.Range{From: 0, To: 10},
		MaxParams:  10,
		ParamRatio: 0.05,
	}
}

// Space returns the search space for a series of length n.
func (c SearchConfig) Space(n int) gridsearch.Space {
	return gridsearch.Space{
		P:         c.P,
		D:         c.D,
		Q:         c.Q,
		MaxParams: gridsearch.Budget(n, c.MaxParams, c.ParamRatio),
	}
}

// Searcher returns cached orders when the data file is unchanged and runs a
// grid search otherwise.
type Searcher struct {
	Store  *cache.Store
	Engine *gridsearch.Engine
	Config SearchConfig
	Logger zerolog.Logger
}

// New creates a Searcher.
func New(store *cache.Store, engine *gridsearch.Engine, cfg SearchConfig, logger zerolog.Logger) *Searcher {
	return &Searcher{
		Store:  store,
		Engine: engine,
		Config: cfg,
		Logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// Resolution explains where an order came from.
type Resolution struct {
	Order     arima.Order
	Found     bool
	FromCache bool
	Params    *cache.ParamsSection // set on a cache hit
	Search    *gridsearch.Result   // set when a search ran
	Saved     cache.Result         // result of writing a new search result
}

// GetOrSearch returns the order for one series of filePath, searching and
// caching on a miss. The bool is false when no order could be found.
func (s *Searcher) GetOrSearch(series []float64, filePath string, disc cache.Discriminator) (arima.Order, bool) {
	r := s.Resolve(series, filePath, disc)
	return r.Order, r.Found
}

// Resolve is GetOrSearch with the full provenance.
func (s *Searcher) Resolve(series []float64, filePath string, disc cache.Discriminator) *Resolution {
	log := s.Logger.With().Str("series", string(disc)).Str("data_file", filePath).Logger()

	s.Store.Refresh()
	params, res := s.Store.GetParams(filePath, disc)
	switch res.Status {
	case cache.StatusOK:
		log.Info().Stringer("order", params.BestParams).Float64("aic", params.BestAIC).
			Msgf("using cached parameters %s", params.BestParams)
		return &Resolution{Order: params.BestParams, Found: true, FromCache: true, Params: params}
	case cache.StatusKeyUnavailable:
		log.Warn().Err(res.Err).Msg("cache unavailable for data file, searching without it")
	default:
		log.Info().Msg("no cached parameters, running grid search")
	}

	return s.Search(series, filePath, disc)
}

// Search always runs the grid search and caches a found order.
func (s *Searcher) Search(series []float64, filePath string, disc cache.Discriminator) *Resolution {
	log := s.Logger.With().Str("series", string(disc)).Logger()

	space := s.Config.Space(len(series))
	result, err := s.Engine.Search(series, space)
	if err != nil {
		if errors.Is(err, gridsearch.ErrInvalidBudget) {
			log.Warn().Int("observations", len(series)).Msg("series too short for any candidate")
		} else {
			log.Warn().Err(err).Msg("grid search not run")
		}
		return &Resolution{}
	}

	out := &Resolution{Search: result}
	if !result.Found() {
		log.Warn().Msg("no valid parameters found")
		return out
	}

	out.Order = *result.Best
	out.Found = true
	out.Saved = s.SaveResult(filePath, disc, out.Order, result.Criterion, out.Order.TotalParams(), len(series))
	return out
}

// SaveResult caches a search result. Failures are logged and returned, never
// fatal.
func (s *Searcher) SaveResult(filePath string, disc cache.Discriminator, order arima.Order, criterion float64, total, length int) cache.Result {
	res := s.Store.SaveParams(filePath, disc, order, criterion, total, length)
	if !res.OK() {
		s.Logger.Warn().Str("status", string(res.Status)).Err(res.Err).Msg("search result not cached")
	}
	return res
}

// Summary describes the cached purchase result for filePath.
func (s *Searcher) Summary(filePath string) (string, bool) {
	return s.SummaryFor(filePath, cache.Purchase)
}

// SummaryFor describes the cached result for one series.
func (s *Searcher) SummaryFor(filePath string, disc cache.Discriminator) (string, bool) {
	return s.Store.Summary(filePath, disc)
}

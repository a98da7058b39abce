// Package forecast turns a selected ARIMA order into dated predictions and
// exports them.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

// DefaultOrder is used when no search result is available.
var DefaultOrder = arima.Order{P: 2, D: 1, Q: 4}

// DefaultRedeemRatio estimates redemptions when there is no purchase history
// and no other fallback is configured.
const DefaultRedeemRatio = 0.1

const day = 24 * time.Hour

// Horizon is the forecast length needed to cover a prediction window.
type Horizon struct {
	Steps int
	Dates []time.Time
}

// NewHorizon covers the inclusive window [from, to] from a series whose last
// observation is lastTrain. Days between lastTrain and from are forecast and
// discarded.
func NewHorizon(lastTrain, from, to time.Time) (Horizon, error) {
	lastTrain, from, to = truncDay(lastTrain), truncDay(from), truncDay(to)
	if !from.After(lastTrain) {
		return Horizon{}, fmt.Errorf("prediction start %s is not after last training day %s",
			from.Format("2006-01-02"), lastTrain.Format("2006-01-02"))
	}
	if to.Before(from) {
		return Horizon{}, fmt.Errorf("prediction end %s is before start %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	gap := int(from.Sub(lastTrain)/day) - 1
	return Horizon{Steps: gap + len(dates), Dates: dates}, nil
}

func truncDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Forecast is a dated prediction for one series.
type Forecast struct {
	Name   string
	Order  arima.Order
	Dates  []time.Time
	Values []float64
	AIC    float64
	BIC    float64

	// Diagnostics describes the fitted model. Nil for derived forecasts.
	Diagnostics *arima.Summary
}

// Mean returns the mean predicted value.
func (f *Forecast) Mean() float64 {
	return timeseries.Mean(f.Values)
}

// Std returns the sample standard deviation of the predicted values.
func (f *Forecast) Std() float64 {
	return math.Sqrt(timeseries.Variance(f.Values))
}

// Series returns the forecast as a dated series.
func (f *Forecast) Series() *timeseries.Series {
	return &timeseries.Series{Timestamps: f.Dates, Values: f.Values, Name: f.Name}
}

// Predict fits order to train and returns the forecast for the horizon dates.
func Predict(train *timeseries.Series, order arima.Order, h Horizon) (*Forecast, error) {
	if len(h.Dates) == 0 || h.Steps < len(h.Dates) {
		return nil, errors.New("empty forecast horizon")
	}

	out := arima.FitOrder(train.Values, order)
	if !out.OK() {
		return nil, out.Failure
	}

	values, err := out.Model.Predict(h.Steps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", order, err)
	}
	values = values[len(values)-len(h.Dates):]

	return &Forecast{
		Name:   train.Name,
		Order:  order,
		Dates:  h.Dates,
		Values: values,
		AIC:    out.Model.AIC,
		BIC:    out.Model.BIC,

		Diagnostics: out.Model.Summary(),
	}, nil
}

// Scale returns a copy of f with every value multiplied by k.
func (f *Forecast) Scale(name string, k float64) *Forecast {
	values := make([]float64, len(f.Values))
	for i, v := range f.Values {
		values[i] = v * k
	}
	return &Forecast{Name: name, Order: f.Order, Dates: f.Dates, Values: values, AIC: math.NaN(), BIC: math.NaN()}
}

// Flow is a purchase forecast and a redeem forecast over the same dates.
type Flow struct {
	Purchase *Forecast
	Redeem   *Forecast

	// RedeemEstimated is set when Redeem was derived from Purchase by the
	// historical redeem/purchase ratio because the redeem fit failed.
	RedeemEstimated bool
	Ratio           float64
	RedeemErr       error
}

// PredictFlow forecasts both series with the same order. If the redeem fit
// fails, redemptions are estimated as purchase times the historical ratio,
// or fallbackRatio when there is no purchase history.
func PredictFlow(purchase, redeem *timeseries.Series, order arima.Order, h Horizon, fallbackRatio float64) (*Flow, error) {
	p, err := Predict(purchase, order, h)
	if err != nil {
		return nil, fmt.Errorf("purchase: %w", err)
	}

	flow := &Flow{Purchase: p}
	r, err := Predict(redeem, order, h)
	if err == nil {
		flow.Redeem = r
		return flow, nil
	}

	flow.RedeemErr = err
	flow.RedeemEstimated = true
	flow.Ratio = Ratio(purchase.Values, redeem.Values, fallbackRatio)
	flow.Redeem = p.Scale(timeseries.RedeemSeries, flow.Ratio)
	return flow, nil
}

// Ratio returns sum(redeem)/sum(purchase), or fallback when there is no
// purchase volume. A non-positive fallback means DefaultRedeemRatio.
func Ratio(purchase, redeem []float64, fallback float64) float64 {
	pt, rt := 0.0, 0.0
	for _, v := range purchase {
		pt += v
	}
	for _, v := range redeem {
		rt += v
	}
	if pt > 0 {
		return rt / pt
	}
	if fallback <= 0 {
		return DefaultRedeemRatio
	}
	return fallback
}

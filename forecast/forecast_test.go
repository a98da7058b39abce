package forecast

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func trainSeries(name string, n int, level float64, seed int64) *timeseries.Series {
	rng := rand.New(rand.NewSource(seed))
	dates := make([]time.Time, n)
	values := make([]float64, n)
	start := date("2014-03-01")
	for i := range values {
		dates[i] = start.AddDate(0, 0, i)
		values[i] = level + 0.1*level*math.Sin(float64(i)/7*2*math.Pi) + rng.NormFloat64()*0.02*level
	}
	s, err := timeseries.NewWithTimestamps(dates, values)
	if err != nil {
		panic(err)
	}
	s.Name = name
	return s
}

func TestHorizonCoversPredictionWindow(t *testing.T) {
	h, err := NewHorizon(date("2014-08-31"), date("2014-09-01"), date("2014-12-31"))
	require.NoError(t, err)
	assert.Equal(t, 122, h.Steps)
	require.Len(t, h.Dates, 122)
	assert.Equal(t, date("2014-09-01"), h.Dates[0])
	assert.Equal(t, date("2014-12-31"), h.Dates[121])
}

func TestHorizonWithGap(t *testing.T) {
	h, err := NewHorizon(date("2014-08-29"), date("2014-09-01"), date("2014-09-10"))
	require.NoError(t, err)
	assert.Equal(t, 12, h.Steps)
	assert.Len(t, h.Dates, 10)
}

func TestHorizonErrors(t *testing.T) {
	_, err := NewHorizon(date("2014-09-01"), date("2014-09-01"), date("2014-09-10"))
	assert.Error(t, err)

	_, err = NewHorizon(date("2014-08-31"), date("2014-09-10"), date("2014-09-01"))
	assert.Error(t, err)
}

func TestPredict(t *testing.T) {
	train := trainSeries("purchase", 184, 3e8, 1)
	h, err := NewHorizon(train.Last(), date("2014-09-01"), date("2014-12-31"))
	require.NoError(t, err)

	fc, err := Predict(train, arima.Order{P: 1, D: 0, Q: 1}, h)
	require.NoError(t, err)
	require.Len(t, fc.Values, 122)
	assert.Equal(t, h.Dates, fc.Dates)
	assert.Equal(t, "purchase", fc.Name)
	assert.False(t, math.IsNaN(fc.AIC))
	assert.InDelta(t, 3e8, fc.Mean(), 0.3*3e8)
	for _, v := range fc.Values {
		assert.False(t, math.IsNaN(v))
	}
	assert.Equal(t, 122, fc.Series().Len())
}

func TestPredictFailure(t *testing.T) {
	train := trainSeries("purchase", 12, 1e6, 1)
	h, err := NewHorizon(train.Last(), train.Last().AddDate(0, 0, 1), train.Last().AddDate(0, 0, 5))
	require.NoError(t, err)

	_, err = Predict(train, arima.Order{P: 5, D: 1, Q: 5}, h)
	var fe *arima.FitError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, arima.ReasonInsufficientData, fe.Reason)
}

func TestPredictFlowFallsBackToRatio(t *testing.T) {
	purchase := trainSeries("purchase", 184, 3e8, 1)
	redeem := purchase.Slice(0, 5) // too short to fit
	redeem.Name = "redeem"
	for i := range redeem.Values {
		redeem.Values[i] = purchase.Values[i] * 0.8
	}

	h, err := NewHorizon(purchase.Last(), date("2014-09-01"), date("2014-09-30"))
	require.NoError(t, err)

	flow, err := PredictFlow(purchase, redeem, arima.Order{P: 1, D: 0, Q: 0}, h, 0.3)
	require.NoError(t, err)
	assert.True(t, flow.RedeemEstimated)
	assert.Error(t, flow.RedeemErr)

	want := Ratio(purchase.Values, redeem.Values, 0.3)
	assert.InDelta(t, want, flow.Ratio, 1e-12)
	for i, v := range flow.Redeem.Values {
		assert.InDelta(t, flow.Purchase.Values[i]*want, v, 1e-6)
	}
}

func TestPredictFlowBothFit(t *testing.T) {
	purchase := trainSeries("purchase", 184, 3e8, 1)
	redeem := trainSeries("redeem", 184, 2.5e8, 2)
	h, err := NewHorizon(purchase.Last(), date("2014-09-01"), date("2014-09-30"))
	require.NoError(t, err)

	flow, err := PredictFlow(purchase, redeem, DefaultOrder, h, DefaultRedeemRatio)
	require.NoError(t, err)
	assert.False(t, flow.RedeemEstimated)
	assert.Len(t, flow.Redeem.Values, 30)
	assert.Equal(t, "redeem", flow.Redeem.Name)

	require.NotNil(t, flow.Purchase.Diagnostics)
	assert.Equal(t, DefaultOrder, flow.Purchase.Diagnostics.Order)
	assert.Equal(t, 184, flow.Purchase.Diagnostics.NObs)
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 0.5, Ratio([]float64{2, 2}, []float64{1, 1}, 0.3), 1e-12)

	// No purchase history: the configured fallback wins over the default.
	assert.Equal(t, 0.3, Ratio([]float64{0, 0}, []float64{1, 1}, 0.3))
	assert.Equal(t, 0.25, Ratio(nil, nil, 0.25))
	assert.Equal(t, DefaultRedeemRatio, Ratio([]float64{0, 0}, []float64{1, 1}, 0))
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "data", "prediction.csv")
	dates := []time.Time{date("2014-09-01"), date("2014-09-02")}

	err := ExportCSV(path, dates, []float64{1234.5678, 300000000}, []float64{0.005, 99.994}, 2)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "report_date,purchase,redeem", lines[0])
	assert.Equal(t, "20140901,1234.57,0.01", lines[1])
	assert.Equal(t, "20140902,300000000,99.99", lines[2])
}

func TestExportCSVLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.csv")
	err := ExportCSV(path, []time.Time{date("2014-09-01")}, []float64{1, 2}, []float64{1}, 2)
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.26, Round(3.2608, 2))
	assert.Equal(t, 1235.0, Round(1234.5, 0))
	assert.Equal(t, -1.3, Round(-1.25, 1))
}

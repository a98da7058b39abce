package cli

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/cache"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/config"
)

// writeBalanceTable writes two user rows per day from 2014-02-20 to
// 2014-08-31 with a weekly purchase cycle.
func writeBalanceTable(t *testing.T, dir string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(42))

	var b strings.Builder
	b.WriteString("user_id,report_date,tBalance,total_purchase_amt,total_redeem_amt\n")
	start := time.Date(2014, 2, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2014, 8, 31, 0, 0, 0, 0, time.UTC)
	for d, i := start, 0; !d.After(end); d, i = d.AddDate(0, 0, 1), i+1 {
		weekly := math.Sin(float64(i) / 7 * 2 * math.Pi)
		purchase := 3e8 + 4e7*weekly + rng.NormFloat64()*1e7
		redeem := 2.5e8 + 2e7*weekly + rng.NormFloat64()*1e7
		for user := 1; user <= 2; user++ {
			fmt.Fprintf(&b, "%d,%s,0,%.0f,%.0f\n", user, d.Format("20060102"), purchase/2, redeem/2)
		}
	}

	path := filepath.Join(dir, "user_balance_table.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Data.File = writeBalanceTable(t, dir)
	cfg.Cache.File = filepath.Join(dir, "cache", "arima_cache.json")
	cfg.Output.Dir = filepath.Join(dir, "output")
	cfg.Output.CSVDir = filepath.Join(dir, "output", "data")
	cfg.ARIMA.P.To = 3
	cfg.ARIMA.Q.To = 3
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	return NewApp(cfg, zerolog.Nop(), &out), &out
}

func TestSearchThenCached(t *testing.T) {
	app, out := testApp(t)

	r, err := app.Search(cache.Purchase, false)
	require.NoError(t, err)
	require.True(t, r.Found)
	assert.False(t, r.FromCache)
	assert.Contains(t, out.String(), "Training purchase: 184 days (2014-03-01 to 2014-08-31)")
	assert.Contains(t, out.String(), "Best parameters: "+r.Order.String())

	r2, err := app.Search(cache.Purchase, false)
	require.NoError(t, err)
	assert.True(t, r2.FromCache)
	assert.Equal(t, r.Order, r2.Order)

	r3, err := app.Search(cache.Purchase, true)
	require.NoError(t, err)
	assert.False(t, r3.FromCache)
	assert.Equal(t, r.Order, r3.Order)

	summaries := app.CacheSummaries()
	assert.Contains(t, summaries[cache.Purchase], r.Order.String())
	assert.NotContains(t, summaries, cache.Redeem)
}

func TestExportWritesPredictionAndRegistersArtifact(t *testing.T) {
	app, out := testApp(t)

	path, err := app.Export()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 123)
	assert.Equal(t, "report_date,purchase,redeem", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "20140901,"))
	assert.True(t, strings.HasPrefix(lines[122], "20141231,"))
	assert.Contains(t, out.String(), "122 steps")
	assert.Contains(t, out.String(), "purchase residuals: R2=")
	assert.Contains(t, out.String(), "Ljung-Box Q(10)=")

	a, res := app.Store().GetArtifact(app.cfg.Data.File, cache.KindCSV, "prediction")
	require.True(t, res.OK())
	assert.Equal(t, path, a.Path)
	assert.True(t, a.Exists)

	rec, res := app.Store().Get(app.cfg.Data.File)
	require.True(t, res.OK())
	assert.True(t, rec.HasParams())
}

func TestTrend(t *testing.T) {
	app, out := testApp(t)

	path, err := app.Trend()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(app.cfg.Output.Dir, "trend_ma7.csv"), path)
	assert.Contains(t, out.String(), "purchase")
	assert.Contains(t, out.String(), "redeem")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "ds,purchase_ma,redeem_ma", lines[0])
	// 184 days from 2014-03-01, less the first 6 of the window.
	assert.Len(t, lines, 1+184-6)
	assert.True(t, strings.HasPrefix(lines[1], "2014-03-07,"))

	a, res := app.Store().GetArtifact(app.cfg.Data.File, cache.KindCSV, "trend")
	require.True(t, res.OK())
	assert.Equal(t, path, a.Path)
}

func TestStationarity(t *testing.T) {
	app, out := testApp(t)

	v, err := app.Stationarity(cache.Redeem, 1)
	require.NoError(t, err)
	require.NotEmpty(t, v.Steps)
	assert.Equal(t, 0, v.Steps[0].D)
	assert.Equal(t, 184, v.Steps[0].Length)
	assert.Contains(t, out.String(), "ADF")
	assert.Contains(t, out.String(), "KPSS")
	assert.Contains(t, out.String(), "Significant PACF lags")
}

func TestShowAndClear(t *testing.T) {
	app, out := testApp(t)

	require.NoError(t, app.ShowRecord())
	assert.Contains(t, out.String(), "No cache record")

	res := app.Store().SaveArtifact(app.cfg.Data.File, cache.KindImage, "trend", "/nonexistent/trend.png", "")
	require.True(t, res.OK())

	out.Reset()
	require.NoError(t, app.ShowRecord())
	assert.Contains(t, out.String(), "/nonexistent/trend.png (missing)")

	require.NoError(t, app.ClearCache(false))
	assert.False(t, app.Store().IsValid(app.cfg.Data.File))

	out.Reset()
	require.NoError(t, app.ClearCache(false))
	assert.Contains(t, out.String(), "No cache record")
}

func TestMissingDataFile(t *testing.T) {
	app, _ := testApp(t)
	app.cfg.Data.File = filepath.Join(t.TempDir(), "missing.csv")

	_, err := app.Search(cache.Purchase, false)
	assert.Error(t, err)
}

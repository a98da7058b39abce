package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
)

var fixedNow = time.Date(2014, 9, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "arima_cache.json")
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	store, res := Open(path, opts...)
	require.True(t, res.OK(), res.String())
	return store, path
}

func dataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_balance_table.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSaveParamsRoundTrip(t *testing.T) {
	store, path := newStore(t)
	f := dataFile(t, "report_date,total_purchase_amt\n20140301,1\n")

	res := store.SaveParams(f, Purchase, arima.Order{P: 2, D: 1, Q: 3}, 1234.56, 6, 184)
	require.True(t, res.OK(), res.String())
	assert.True(t, strings.HasPrefix(res.Key, "user_balance_table.csv_"))

	p, res := store.GetParams(f, Purchase)
	require.True(t, res.OK())
	assert.Equal(t, arima.Order{P: 2, D: 1, Q: 3}, p.BestParams)
	assert.InDelta(t, 1234.56, p.BestAIC, 1e-9)
	assert.Equal(t, 6, p.TotalParams)
	assert.Equal(t, 184, p.DataLength)
	assert.Equal(t, 3.26, p.ParamRatio)
	assert.Equal(t, f, p.DataFile)

	reopened, res := Open(path)
	require.True(t, res.OK())
	p2, res := reopened.GetParams(f, Purchase)
	require.True(t, res.OK())
	assert.Equal(t, p.BestParams, p2.BestParams)
	assert.Equal(t, 3.26, p2.ParamRatio)
	assert.True(t, p2.Timestamp.Equal(fixedNow))

	_, res = reopened.GetParams(f, Redeem)
	assert.Equal(t, StatusMiss, res.Status)
}

func TestFileIsIndentedJSON(t *testing.T) {
	store, path := newStore(t)
	f := dataFile(t, "x")
	require.True(t, store.SaveParams(f, Redeem, arima.Order{P: 1, D: 1, Q: 1}, 10, 3, 100).OK())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), "\n  \"user_balance_table.csv_")
	assert.Contains(t, string(data), `"redeem"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestParamsKeepOtherSeriesAndArtifacts(t *testing.T) {
	store, _ := newStore(t)
	f := dataFile(t, "x")

	require.True(t, store.SaveArtifact(f, KindImage, "trend", "/tmp/trend.png", "trend chart").OK())
	require.True(t, store.SaveParams(f, Purchase, arima.Order{P: 1}, 1, 2, 100).OK())
	require.True(t, store.SaveParams(f, Redeem, arima.Order{Q: 1}, 2, 2, 100).OK())
	require.True(t, store.SaveParams(f, Purchase, arima.Order{P: 3, D: 1}, 0.5, 4, 100).OK())

	rec, res := store.Get(f)
	require.True(t, res.OK())
	assert.True(t, rec.HasParams())
	assert.Equal(t, arima.Order{P: 3, D: 1}, rec.Params[Purchase].BestParams)
	assert.Equal(t, arima.Order{Q: 1}, rec.Params[Redeem].BestParams)
	assert.Contains(t, rec.Images, "trend")
}

func TestArtifactOnlyRecord(t *testing.T) {
	store, _ := newStore(t)
	f := dataFile(t, "x")

	require.True(t, store.SaveArtifact(f, KindCSV, "prediction", "/nowhere.csv", "").OK())

	rec, res := store.Get(f)
	require.True(t, res.OK())
	assert.False(t, rec.HasParams())

	_, res = store.GetParams(f, Purchase)
	assert.Equal(t, StatusMiss, res.Status)
	_, ok := store.Summary(f, Purchase)
	assert.False(t, ok)
}

func TestInvalidDiscriminator(t *testing.T) {
	store, _ := newStore(t)
	f := dataFile(t, "x")

	res := store.SaveParams(f, "", arima.Order{}, 1, 1, 10)
	assert.Equal(t, StatusInvalid, res.Status)
	assert.ErrorIs(t, res.Err, ErrInvalidDiscriminator)

	_, res = store.GetParams(f, "total")
	assert.Equal(t, StatusInvalid, res.Status)
	assert.Zero(t, store.Len())
}

func TestFingerprintChangeInvalidates(t *testing.T) {
	store, _ := newStore(t)
	f := dataFile(t, "20140301,100\n")

	require.True(t, store.SaveParams(f, Purchase, arima.Order{P: 1, D: 1}, 5, 3, 100).OK())
	assert.True(t, store.IsValid(f))

	require.NoError(t, os.WriteFile(f, []byte("20140301,101\n"), 0o644))
	assert.False(t, store.IsValid(f))

	_, res := store.GetParams(f, Purchase)
	assert.Equal(t, StatusMiss, res.Status)
	assert.Equal(t, 1, store.Len(), "the stale record persists until cleared")
}

func TestKeyUnavailable(t *testing.T) {
	store, _ := newStore(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	_, res := store.GetParams(missing, Purchase)
	assert.Equal(t, StatusKeyUnavailable, res.Status)
	assert.ErrorIs(t, res.Err, ErrKeyUnavailable)

	res = store.SaveParams(missing, Purchase, arima.Order{P: 1}, 1, 2, 10)
	assert.Equal(t, StatusKeyUnavailable, res.Status)

	res = store.SaveArtifact(missing, KindImage, "trend", "x.png", "")
	assert.Equal(t, StatusKeyUnavailable, res.Status)

	assert.False(t, store.IsValid(missing))
	assert.Zero(t, store.Len())
}

func TestCorruptionRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arima_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("\x00\xffnot json{{"), 0o644))

	store, res := Open(path)
	assert.Equal(t, StatusCorrupt, res.Status)
	assert.ErrorIs(t, res.Err, ErrCorrupt)
	assert.Zero(t, store.Len())

	f := dataFile(t, "x")
	require.True(t, store.SaveParams(f, Purchase, arima.Order{P: 1}, 1, 2, 10).OK())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestMalformedEntriesPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arima_cache.json")
	body := `{
  "legacy.csv_0000aaaa": "not a record",
  "nulled.csv_0000bbbb": null,
  "undiscriminated.csv_0000cccc": {"params": {"": {"best_aic": 1}}}
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	store, res := Open(path)
	require.True(t, res.OK())
	assert.Zero(t, store.Len())

	listings := store.List()
	require.Len(t, listings, 3)
	for _, l := range listings {
		assert.True(t, l.Malformed, l.Key)
	}

	f := dataFile(t, "x")
	require.True(t, store.SaveParams(f, Purchase, arima.Order{P: 1}, 1, 2, 10).OK())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "legacy.csv_0000aaaa")
	assert.Contains(t, string(data), "not a record")

	var buf bytes.Buffer
	require.NoError(t, store.Render(&buf))
	assert.Contains(t, buf.String(), "malformed cache record: legacy.csv_0000aaaa")
	assert.Contains(t, buf.String(), "ARIMA(1,0,0)")
}

func TestArtifactUpsert(t *testing.T) {
	store, path := newStore(t)
	f := dataFile(t, "x")
	dir := t.TempDir()
	first := filepath.Join(dir, "trend_v1.png")
	second := filepath.Join(dir, "trend_v2.png")

	require.True(t, store.SaveArtifact(f, KindImage, "trend", first, "v1").OK())
	require.True(t, store.SaveArtifact(f, KindImage, "trend", second, "v2").OK())

	a, res := store.GetArtifact(f, KindImage, "trend")
	require.True(t, res.OK())
	assert.Equal(t, second, a.Path)
	assert.Equal(t, "v2", a.Description)
	assert.Equal(t, KindImage, a.Type)
	assert.False(t, a.Exists)

	all, res := store.AllArtifacts(f, KindImage)
	require.True(t, res.OK())
	assert.Len(t, all, 1)

	// The existence flag follows the file and is persisted.
	require.NoError(t, os.WriteFile(second, []byte("png"), 0o644))
	a, res = store.GetArtifact(f, KindImage, "trend")
	require.True(t, res.OK())
	assert.True(t, a.Exists)

	reopened, _ := Open(path)
	a, res = reopened.GetArtifact(f, KindImage, "trend")
	require.True(t, res.OK())
	assert.True(t, a.Exists)

	_, res = store.GetArtifact(f, KindCSV, "trend")
	assert.Equal(t, StatusMiss, res.Status)
	_, res = store.GetArtifact(f, "chart", "trend")
	assert.Equal(t, StatusInvalid, res.Status)
}

func TestClear(t *testing.T) {
	store, _ := newStore(t)
	a := dataFile(t, "a")
	b := dataFile(t, "b")

	require.True(t, store.SaveParams(a, Purchase, arima.Order{P: 1}, 1, 2, 10).OK())
	require.True(t, store.SaveParams(b, Purchase, arima.Order{P: 2}, 1, 3, 10).OK())
	require.Equal(t, 2, store.Len())

	require.True(t, store.Clear(a).OK())
	assert.False(t, store.IsValid(a))
	assert.True(t, store.IsValid(b))

	assert.Equal(t, StatusMiss, store.Clear(a).Status)

	require.True(t, store.ClearAll().OK())
	assert.Zero(t, store.Len())
	assert.Empty(t, store.Keys())
}

func TestSummary(t *testing.T) {
	store, _ := newStore(t)
	f := dataFile(t, "x")
	require.True(t, store.SaveParams(f, Purchase, arima.Order{P: 2, D: 1, Q: 3}, 1234.56, 6, 184).OK())

	s, ok := store.Summary(f, Purchase)
	require.True(t, ok)
	assert.Equal(t, "ARIMA(2,1,3) (AIC:1234.6, params:6, 3.26%)", s)
}

func TestSummaryKeepsUnpersistedParams(t *testing.T) {
	store, path := newStore(t)
	f := dataFile(t, "x")

	// A directory at the cache path makes the final rename fail.
	require.NoError(t, os.MkdirAll(path, 0o755))

	res := store.SaveParams(f, Purchase, arima.Order{P: 2, D: 1, Q: 3}, 1234.56, 6, 184)
	require.Equal(t, StatusWriteFailed, res.Status, res.String())

	s, ok := store.Summary(f, Purchase)
	require.True(t, ok)
	assert.Equal(t, "ARIMA(2,1,3) (AIC:1234.6, params:6, 3.26%)", s)

	p, res := store.GetParams(f, Purchase)
	require.True(t, res.OK())
	assert.Equal(t, arima.Order{P: 2, D: 1, Q: 3}, p.BestParams)
}

func TestRefreshSeesOtherWriters(t *testing.T) {
	store, path := newStore(t)
	other, _ := Open(path)
	f := dataFile(t, "x")

	require.True(t, other.SaveParams(f, Purchase, arima.Order{P: 1}, 1, 2, 10).OK())
	assert.False(t, store.IsValid(f))

	require.True(t, store.Refresh().OK())
	assert.True(t, store.IsValid(f))
}

func TestDisabledStore(t *testing.T) {
	store, path := newStore(t, WithEnabled(false))
	f := dataFile(t, "x")

	assert.True(t, store.SaveParams(f, Purchase, arima.Order{P: 1}, 1, 2, 10).OK())
	_, res := store.GetParams(f, Purchase)
	assert.Equal(t, StatusMiss, res.Status)
	assert.False(t, store.IsValid(f))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestConcurrentWrites(t *testing.T) {
	store, _ := newStore(t)
	f := dataFile(t, "x")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.SaveArtifact(f, KindCSV, fmt.Sprintf("export-%d", i), fmt.Sprintf("/tmp/%d.csv", i), "")
			store.GetParams(f, Purchase)
		}(i)
	}
	wg.Wait()

	all, res := store.AllArtifacts(f, KindCSV)
	require.True(t, res.OK())
	assert.Len(t, all, 8)
}

func TestParamRatio(t *testing.T) {
	assert.Equal(t, 3.26, ParamRatio(6, 184))
	assert.Equal(t, 0.0, ParamRatio(6, 0))
	assert.Equal(t, 5.0, ParamRatio(10, 200))
}

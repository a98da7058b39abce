package forecast

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DateFormat is the report_date layout used in exports.
const DateFormat = "20060102"

// ExportCSV writes report_date,purchase,redeem rows with values rounded to
// decimals places. The directory is created if needed.
func ExportCSV(path string, dates []time.Time, purchase, redeem []float64, decimals int) error {
	if len(purchase) != len(dates) || len(redeem) != len(dates) {
		return fmt.Errorf("length mismatch: %d dates, %d purchase, %d redeem", len(dates), len(purchase), len(redeem))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"report_date", "purchase", "redeem"}); err != nil {
		return err
	}
	for i, d := range dates {
		row := []string{
			d.Format(DateFormat),
			formatAmount(purchase[i], decimals),
			formatAmount(redeem[i], decimals),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// ExportFlow writes a Flow with ExportCSV.
func ExportFlow(path string, flow *Flow, decimals int) error {
	return ExportCSV(path, flow.Purchase.Dates, flow.Purchase.Values, flow.Redeem.Values, decimals)
}

// Round rounds v to decimals places, halves away from zero.
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

func formatAmount(v float64, decimals int) string {
	return strconv.FormatFloat(Round(v, decimals), 'f', -1, 64)
}

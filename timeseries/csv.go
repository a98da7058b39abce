package timeseries

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Series names produced by the balance table loader.
const (
	PurchaseSeries = "purchase"
	RedeemSeries   = "redeem"
)

// BalanceOptions describes the layout of a user balance table.
type BalanceOptions struct {
	DateColumn     string    // Column holding the report date (default: "report_date")
	PurchaseColumn string    // Column holding purchase amounts (default: "total_purchase_amt")
	RedeemColumn   string    // Column holding redeem amounts (default: "total_redeem_amt")
	DateFormat     string    // Date layout (default: "20060102")
	Start          time.Time // Rows dated before Start are dropped (zero keeps all)
	Delimiter      rune      // Field delimiter (default: ',')
}

// DefaultBalanceOptions returns options matching the user_balance_table export.
func DefaultBalanceOptions() *BalanceOptions {
	return &BalanceOptions{
		DateColumn:     "report_date",
		PurchaseColumn: "total_purchase_amt",
		RedeemColumn:   "total_redeem_amt",
		DateFormat:     "20060102",
		Delimiter:      ',',
	}
}

// FundFlow holds per-day purchase and redeem totals sorted by date.
type FundFlow struct {
	Dates    []time.Time
	Purchase []float64
	Redeem   []float64
}

// Len returns the number of distinct days.
func (f *FundFlow) Len() int {
	return len(f.Dates)
}

// Series returns the named daily series ("purchase" or "redeem").
func (f *FundFlow) Series(name string) (*Series, error) {
	var values []float64
	switch name {
	case PurchaseSeries:
		values = f.Purchase
	case RedeemSeries:
		values = f.Redeem
	default:
		return nil, fmt.Errorf("unknown series %q", name)
	}
	dates := make([]time.Time, len(f.Dates))
	copy(dates, f.Dates)
	vals := make([]float64, len(values))
	copy(vals, values)
	return &Series{Timestamps: dates, Values: vals, Name: name}, nil
}

// LoadBalanceTable loads a user balance CSV and aggregates it by report date.
func LoadBalanceTable(filename string, opts *BalanceOptions) (*FundFlow, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadBalanceTableFromReader(file, opts)
}

// LoadBalanceTableFromReader aggregates balance rows from r. Rows sharing a
// date are summed; empty amount cells count as zero.
func LoadBalanceTableFromReader(r io.Reader, opts *BalanceOptions) (*FundFlow, error) {
	if opts == nil {
		opts = DefaultBalanceOptions()
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx, purchaseIdx, redeemIdx := -1, -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.Trim(h, "\"\ufeff"))
		switch h {
		case opts.DateColumn:
			dateIdx = i
		case opts.PurchaseColumn:
			purchaseIdx = i
		case opts.RedeemColumn:
			redeemIdx = i
		}
	}
	if dateIdx == -1 || purchaseIdx == -1 || redeemIdx == -1 {
		return nil, fmt.Errorf("missing columns: need %s, %s, %s",
			opts.DateColumn, opts.PurchaseColumn, opts.RedeemColumn)
	}

	type totals struct{ purchase, redeem float64 }
	byDay := make(map[time.Time]*totals)

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateIdx >= len(record) {
			continue
		}

		day, err := time.Parse(opts.DateFormat, strings.TrimSpace(strings.Trim(record[dateIdx], "\"")))
		if err != nil {
			continue
		}
		if !opts.Start.IsZero() && day.Before(opts.Start) {
			continue
		}

		t, ok := byDay[day]
		if !ok {
			t = &totals{}
			byDay[day] = t
		}
		t.purchase += parseAmount(record, purchaseIdx)
		t.redeem += parseAmount(record, redeemIdx)
	}

	if len(byDay) == 0 {
		return nil, errors.New("no valid data found in CSV")
	}

	flow := &FundFlow{
		Dates:    make([]time.Time, 0, len(byDay)),
		Purchase: make([]float64, 0, len(byDay)),
		Redeem:   make([]float64, 0, len(byDay)),
	}
	for day := range byDay {
		flow.Dates = append(flow.Dates, day)
	}
	sort.Slice(flow.Dates, func(i, j int) bool { return flow.Dates[i].Before(flow.Dates[j]) })
	for _, day := range flow.Dates {
		flow.Purchase = append(flow.Purchase, byDay[day].purchase)
		flow.Redeem = append(flow.Redeem, byDay[day].redeem)
	}

	return flow, nil
}

func parseAmount(record []string, idx int) float64 {
	if idx >= len(record) {
		return 0
	}
	raw := strings.TrimSpace(strings.Trim(record[idx], "\""))
	if raw == "" || raw == "NA" || raw == "NaN" || raw == "null" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// SaveCSV writes one or more aligned dated series as columns under a ds
// header. All series must share the first series' timestamps.
func SaveCSV(filename string, series ...*Series) error {
	if len(series) == 0 {
		return errors.New("no series to save")
	}
	base := series[0]
	for _, s := range series[1:] {
		if s.Len() != base.Len() {
			return fmt.Errorf("series %q has %d values, want %d", s.Name, s.Len(), base.Len())
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	writer.WriteString("ds")
	for i, s := range series {
		name := s.Name
		if name == "" {
			name = "y" + strconv.Itoa(i)
		}
		writer.WriteString("," + name)
	}
	writer.WriteString("\n")

	for i := 0; i < base.Len(); i++ {
		if base.Dated() {
			writer.WriteString(base.Timestamps[i].Format("2006-01-02"))
		} else {
			writer.WriteString(strconv.Itoa(i + 1))
		}
		for _, s := range series {
			writer.WriteString(",")
			writer.WriteString(strconv.FormatFloat(s.Values[i], 'f', -1, 64))
		}
		writer.WriteString("\n")
	}

	return writer.Flush()
}

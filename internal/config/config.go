// Package config loads fundflow settings from defaults, an optional YAML
// file and FUNDFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// Config is the complete fundflow configuration.
type Config struct {
	Data    DataConfig    `koanf:"data" json:"data" validate:"required"`
	ARIMA   ARIMAConfig   `koanf:"arima" json:"arima" validate:"required"`
	Gate    GateConfig    `koanf:"gate" json:"gate"`
	Cache   CacheConfig   `koanf:"cache" json:"cache"`
	Output  OutputConfig  `koanf:"output" json:"output"`
	Logging LoggingConfig `koanf:"logging" json:"logging"`
}

// DataConfig locates and describes the user balance table.
type DataConfig struct {
	File           string `koanf:"file" json:"file" validate:"required"`
	DateColumn     string `koanf:"date_column" json:"date_column" validate:"required"`
	PurchaseColumn string `koanf:"purchase_column" json:"purchase_column" validate:"required"`
	RedeemColumn   string `koanf:"redeem_column" json:"redeem_column" validate:"required"`
	DateFormat     string `koanf:"date_format" json:"date_format" validate:"required"`
	StartDate      string `koanf:"start_date" json:"start_date"`
}

// OrderRange is a half-open [From, To) range of one ARIMA order component.
type OrderRange struct {
	From int `koanf:"from" json:"from" validate:"gte=0"`
	To   int `koanf:"to" json:"to" validate:"gtfield=From"`
}

// ARIMAConfig controls the grid search and the prediction windows.
type ARIMAConfig struct {
	P          OrderRange `koanf:"p" json:"p"`
	D          OrderRange `koanf:"d" json:"d"`
	Q          OrderRange `koanf:"q" json:"q"`
	MaxParams  int        `koanf:"max_params" json:"max_params" validate:"gt=0"`
	ParamRatio float64    `koanf:"param_ratio" json:"param_ratio" validate:"gt=0,lte=1"`

	TrainStart   string `koanf:"train_start" json:"train_start" validate:"required,datetime=2006-01-02"`
	TrainEnd     string `koanf:"train_end" json:"train_end" validate:"required,datetime=2006-01-02"`
	PredictStart string `koanf:"predict_start" json:"predict_start" validate:"required,datetime=2006-01-02"`
	PredictEnd   string `koanf:"predict_end" json:"predict_end" validate:"required,datetime=2006-01-02"`

	FallbackP int `koanf:"fallback_p" json:"fallback_p" validate:"gte=0"`
	FallbackD int `koanf:"fallback_d" json:"fallback_d" validate:"gte=0"`
	FallbackQ int `koanf:"fallback_q" json:"fallback_q" validate:"gte=0"`

	RedeemRatioFallback float64 `koanf:"redeem_ratio_fallback" json:"redeem_ratio_fallback" validate:"gte=0"`
}

// GateConfig tunes the degenerate-forecast filter.
type GateConfig struct {
	Enabled  bool    `koanf:"enabled" json:"enabled"`
	Steps    int     `koanf:"steps" json:"steps" validate:"gt=0"`
	MinCV    float64 `koanf:"min_cv" json:"min_cv" validate:"gte=0"`
	MinRange float64 `koanf:"min_range" json:"min_range" validate:"gte=0"`
}

// CacheConfig locates the parameter cache.
type CacheConfig struct {
	File    string `koanf:"file" json:"file" validate:"required"`
	Enabled bool   `koanf:"enabled" json:"enabled"`
}

// OutputConfig controls where exports are written.
type OutputConfig struct {
	Dir      string `koanf:"dir" json:"dir" validate:"required"`
	CSVDir   string `koanf:"csv_dir" json:"csv_dir" validate:"required"`
	Decimals int    `koanf:"decimals" json:"decimals" validate:"gte=0,lte=8"`
}

// LoggingConfig mirrors logging.Config in loadable form.
type LoggingConfig struct {
	Level      string `koanf:"level" json:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format     string `koanf:"format" json:"format" validate:"oneof=auto console json"`
	Caller     bool   `koanf:"caller" json:"caller"`
	File       string `koanf:"file" json:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" json:"max_age_days" validate:"gte=0"`
}

func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			File:           "data/user_balance_table.csv",
			DateColumn:     "report_date",
			PurchaseColumn: "total_purchase_amt",
			RedeemColumn:   "total_redeem_amt",
			DateFormat:     "20060102",
			StartDate:      "2014-03-01",
		},
		ARIMA: ARIMAConfig{
			P:                   OrderRange{From: 0, To: 10},
			D:                   OrderRange{From: 0, To: 2},
			Q:                   OrderRange{From: 0, To: 10},
			MaxParams:           10,
			ParamRatio:          0.05,
			TrainStart:          "2014-03-01",
			TrainEnd:            "2014-08-31",
			PredictStart:        "2014-09-01",
			PredictEnd:          "2014-12-31",
			FallbackP:           2,
			FallbackD:           1,
			FallbackQ:           4,
			RedeemRatioFallback: 0.1,
		},
		Gate: GateConfig{
			Enabled:  true,
			Steps:    10,
			MinCV:    0.001,
			MinRange: 1000,
		},
		Cache: CacheConfig{
			File:    "cache/arima_cache.json",
			Enabled: true,
		},
		Output: OutputConfig{
			Dir:      "output",
			CSVDir:   "output/data",
			Decimals: 2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "auto",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and the ordering of the date windows.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.Data.StartDate != "" {
		if _, err := time.Parse(dateLayout, c.Data.StartDate); err != nil {
			return fmt.Errorf("data.start_date: %w", err)
		}
	}

	trainStart, trainEnd := c.ARIMA.TrainWindow()
	if trainEnd.Before(trainStart) {
		return fmt.Errorf("arima.train_end %s is before train_start %s", c.ARIMA.TrainEnd, c.ARIMA.TrainStart)
	}
	predictStart, predictEnd := c.ARIMA.PredictWindow()
	if predictEnd.Before(predictStart) {
		return fmt.Errorf("arima.predict_end %s is before predict_start %s", c.ARIMA.PredictEnd, c.ARIMA.PredictStart)
	}
	if !predictStart.After(trainEnd) {
		return fmt.Errorf("arima.predict_start %s must be after train_end %s", c.ARIMA.PredictStart, c.ARIMA.TrainEnd)
	}
	return nil
}

// StartTime returns the parsed data start date, or the zero time when unset.
func (d DataConfig) StartTime() time.Time {
	t, _ := time.Parse(dateLayout, d.StartDate)
	return t
}

// TrainWindow returns the inclusive training window. Call after Validate.
func (a ARIMAConfig) TrainWindow() (time.Time, time.Time) {
	from, _ := time.Parse(dateLayout, a.TrainStart)
	to, _ := time.Parse(dateLayout, a.TrainEnd)
	return from, to
}

// PredictWindow returns the inclusive prediction window. Call after Validate.
func (a ARIMAConfig) PredictWindow() (time.Time, time.Time) {
	from, _ := time.Parse(dateLayout, a.PredictStart)
	to, _ := time.Parse(dateLayout, a.PredictEnd)
	return from, to
}

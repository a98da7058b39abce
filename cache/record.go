package cache

import (
	"math"
	"time"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
)

// Discriminator names the series a parameter section was trained on.
type Discriminator string

const (
	Purchase Discriminator = "purchase"
	Redeem   Discriminator = "redeem"
)

// Valid reports whether d is a known series.
func (d Discriminator) Valid() bool {
	return d == Purchase || d == Redeem
}

// Kind is an artifact category.
type Kind string

const (
	KindImage Kind = "image"
	KindCSV   Kind = "csv"
)

// Valid reports whether k is a known artifact kind.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindCSV
}

// Record is everything cached for one data file fingerprint. Params, Images
// and CSVFiles are independently optional.
type Record struct {
	DataFile  string                           `json:"data_file"`
	Timestamp time.Time                        `json:"timestamp"`
	Params    map[Discriminator]*ParamsSection `json:"params,omitempty"`
	Images    map[string]*Artifact             `json:"images,omitempty"`
	CSVFiles  map[string]*Artifact             `json:"csv_files,omitempty"`
}

// ParamsSection is the best grid search result for one series.
type ParamsSection struct {
	BestParams  arima.Order `json:"best_params"`
	BestAIC     float64     `json:"best_aic"`
	TotalParams int         `json:"total_params"`
	DataLength  int         `json:"data_length"`
	ParamRatio  float64     `json:"param_ratio"`
	Timestamp   time.Time   `json:"timestamp"`
	DataFile    string      `json:"data_file"`
}

// Artifact describes a generated file tied to a data fingerprint.
type Artifact struct {
	Path        string    `json:"path"`
	Type        Kind      `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Exists      bool      `json:"exists"`
}

// HasParams reports whether the record holds at least one ARIMA result.
func (r *Record) HasParams() bool {
	return r != nil && len(r.Params) > 0
}

// Artifacts returns the artifact map for kind, or nil.
func (r *Record) Artifacts(kind Kind) map[string]*Artifact {
	switch kind {
	case KindImage:
		return r.Images
	case KindCSV:
		return r.CSVFiles
	}
	return nil
}

func (r *Record) ensureArtifacts(kind Kind) map[string]*Artifact {
	switch kind {
	case KindImage:
		if r.Images == nil {
			r.Images = make(map[string]*Artifact)
		}
		return r.Images
	default:
		if r.CSVFiles == nil {
			r.CSVFiles = make(map[string]*Artifact)
		}
		return r.CSVFiles
	}
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{DataFile: r.DataFile, Timestamp: r.Timestamp}
	if r.Params != nil {
		out.Params = make(map[Discriminator]*ParamsSection, len(r.Params))
		for d, p := range r.Params {
			cp := *p
			out.Params[d] = &cp
		}
	}
	out.Images = cloneArtifacts(r.Images)
	out.CSVFiles = cloneArtifacts(r.CSVFiles)
	return out
}

func cloneArtifacts(in map[string]*Artifact) map[string]*Artifact {
	if in == nil {
		return nil
	}
	out := make(map[string]*Artifact, len(in))
	for label, a := range in {
		cp := *a
		out[label] = &cp
	}
	return out
}

// ParamRatio returns total/length as a percentage rounded to two places.
func ParamRatio(total, length int) float64 {
	if length <= 0 {
		return 0
	}
	return math.Round(float64(total)/float64(length)*100*100) / 100
}

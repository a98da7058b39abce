package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/fingerprint"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/metrics"
)

var (
	ErrCorrupt              = errors.New("cache file is corrupt")
	ErrKeyUnavailable       = errors.New("data file cannot be fingerprinted")
	ErrInvalidDiscriminator = errors.New("invalid series discriminator")
	ErrInvalidKind          = errors.New("invalid artifact kind")
)

// Status classifies the outcome of a store operation.
type Status string

const (
	StatusOK             Status = "ok"
	StatusMiss           Status = "miss"
	StatusKeyUnavailable Status = "key_unavailable"
	StatusWriteFailed    Status = "write_failed"
	StatusCorrupt        Status = "corrupt"
	StatusInvalid        Status = "invalid"
)

// Result reports the outcome of a store operation. Key is the resolved
// cache key when one was computed.
type Result struct {
	Status Status
	Key    string
	Err    error
}

// OK reports whether the operation fully succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Status, r.Err)
	}
	return string(r.Status)
}

// Store holds all cache records in memory and writes every mutation through
// to a single JSON file.
type Store struct {
	path    string
	enabled bool
	logger  zerolog.Logger
	now     func() time.Time
	keyFunc func(string) (string, bool)

	mu        sync.RWMutex
	records   map[string]*Record
	malformed map[string]json.RawMessage
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithEnabled turns the store on or off. A disabled store misses on every
// lookup and ignores every mutation.
func WithEnabled(enabled bool) Option {
	return func(s *Store) { s.enabled = enabled }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates a store for path and loads it. The returned Result is the
// load result; the store is usable whatever it says.
func Open(path string, opts ...Option) (*Store, Result) {
	s := &Store{
		path:      path,
		enabled:   true,
		logger:    zerolog.Nop(),
		now:       time.Now,
		keyFunc:   fingerprint.Key,
		records:   make(map[string]*Record),
		malformed: make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "cache").Str("path", path).Logger()
	return s, s.Load()
}

// Path returns the cache file location.
func (s *Store) Path() string { return s.path }

// Enabled reports whether the store serves lookups.
func (s *Store) Enabled() bool { return s.enabled }

// Load replaces the in-memory state with the file contents. A missing file
// yields an empty store and creates the directory. Unparseable content
// yields an empty store with StatusCorrupt.
func (s *Store) Load() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Refresh re-reads the cache file, picking up writes made by other stores.
func (s *Store) Refresh() Result {
	return s.Load()
}

func (s *Store) loadLocked() Result {
	s.records = make(map[string]*Record)
	s.malformed = make(map[string]json.RawMessage)
	defer func() { metrics.CacheRecords.Set(float64(len(s.records))) }()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Warn().Err(err).Msg("failed to create cache directory")
		}
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Result{Status: StatusOK}
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache file unreadable, starting empty")
		metrics.CacheCorruptions.Inc()
		return Result{Status: StatusCorrupt, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	if len(data) == 0 {
		return Result{Status: StatusOK}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn().Err(err).Msg("cache file corrupt, starting empty")
		metrics.CacheCorruptions.Inc()
		return Result{Status: StatusCorrupt, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}

	for key, msg := range raw {
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil || string(msg) == "null" || !wellFormed(&rec) {
			s.malformed[key] = msg
			s.logger.Warn().Str("key", key).Msg("keeping malformed cache entry as-is")
			continue
		}
		s.records[key] = &rec
	}

	s.logger.Debug().Int("records", len(s.records)).Int("malformed", len(s.malformed)).Msg("cache loaded")
	return Result{Status: StatusOK}
}

func wellFormed(r *Record) bool {
	for d, p := range r.Params {
		if !d.Valid() || p == nil {
			return false
		}
	}
	for _, m := range []map[string]*Artifact{r.Images, r.CSVFiles} {
		for _, a := range m {
			if a == nil {
				return false
			}
		}
	}
	return true
}

// Save writes the whole store to disk through a temporary file.
func (s *Store) Save() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked("save", "")
}

func (s *Store) saveLocked(op, key string) Result {
	metrics.CacheRecords.Set(float64(len(s.records)))

	err := s.writeFile()
	metrics.RecordCacheWrite(op, err)
	if err != nil {
		s.logger.Warn().Err(err).Str("op", op).Msg("failed to write cache file")
		return Result{Status: StatusWriteFailed, Key: key, Err: err}
	}
	return Result{Status: StatusOK, Key: key}
}

func (s *Store) writeFile() error {
	doc := make(map[string]any, len(s.records)+len(s.malformed))
	for key, msg := range s.malformed {
		doc[key] = msg
	}
	for key, rec := range s.records {
		doc[key] = rec
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// resolve computes the cache key for a data file.
func (s *Store) resolve(dataPath string) (string, Result) {
	key, ok := s.keyFunc(dataPath)
	if !ok {
		s.logger.Debug().Str("data_file", dataPath).Msg("no cache key for data file")
		return "", Result{Status: StatusKeyUnavailable, Err: fmt.Errorf("%w: %s", ErrKeyUnavailable, dataPath)}
	}
	return key, Result{Status: StatusOK, Key: key}
}

func (s *Store) lookup(dataPath string) (string, Result) {
	if !s.enabled {
		metrics.RecordCacheLookup("disabled")
		return "", Result{Status: StatusMiss}
	}
	key, res := s.resolve(dataPath)
	if !res.OK() {
		metrics.RecordCacheLookup("key_unavailable")
	}
	return key, res
}

// Get returns a copy of the whole record for a data file.
func (s *Store) Get(dataPath string) (*Record, Result) {
	key, res := s.lookup(dataPath)
	if !res.OK() {
		return nil, res
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		metrics.RecordCacheLookup("miss")
		return nil, Result{Status: StatusMiss, Key: key}
	}
	metrics.RecordCacheLookup("hit")
	return rec.clone(), Result{Status: StatusOK, Key: key}
}

// GetParams returns the cached best parameters for one series of a file.
func (s *Store) GetParams(dataPath string, disc Discriminator) (*ParamsSection, Result) {
	if !disc.Valid() {
		return nil, Result{Status: StatusInvalid, Err: fmt.Errorf("%w: %q", ErrInvalidDiscriminator, disc)}
	}
	key, res := s.lookup(dataPath)
	if !res.OK() {
		return nil, res
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok || rec.Params[disc] == nil {
		metrics.RecordCacheLookup("miss")
		return nil, Result{Status: StatusMiss, Key: key}
	}
	metrics.RecordCacheLookup("hit")
	p := *rec.Params[disc]
	return &p, Result{Status: StatusOK, Key: key}
}

// SaveParams replaces the parameter section for one series and persists.
// Artifacts and other series already in the record are kept.
func (s *Store) SaveParams(dataPath string, disc Discriminator, order arima.Order, aic float64, total, length int) Result {
	if !disc.Valid() {
		return Result{Status: StatusInvalid, Err: fmt.Errorf("%w: %q", ErrInvalidDiscriminator, disc)}
	}
	if !s.enabled {
		return Result{Status: StatusOK}
	}
	key, res := s.resolve(dataPath)
	if !res.OK() {
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := s.ensureRecord(key, dataPath, now)
	if rec.Params == nil {
		rec.Params = make(map[Discriminator]*ParamsSection)
	}
	rec.Params[disc] = &ParamsSection{
		BestParams:  order,
		BestAIC:     aic,
		TotalParams: total,
		DataLength:  length,
		ParamRatio:  ParamRatio(total, length),
		Timestamp:   now,
		DataFile:    dataPath,
	}
	rec.Timestamp = now

	res = s.saveLocked("save_params", key)
	if res.OK() {
		s.logger.Info().Str("key", key).Str("series", string(disc)).Stringer("order", order).Msg("parameters cached")
	}
	return res
}

func (s *Store) ensureRecord(key, dataPath string, now time.Time) *Record {
	rec, ok := s.records[key]
	if !ok {
		rec = &Record{DataFile: dataPath, Timestamp: now}
		s.records[key] = rec
		delete(s.malformed, key)
	}
	return rec
}

// Clear removes the record for a data file. It returns StatusMiss when
// there was nothing to remove.
func (s *Store) Clear(dataPath string) Result {
	if !s.enabled {
		return Result{Status: StatusOK}
	}
	key, res := s.resolve(dataPath)
	if !res.OK() {
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	_, bad := s.malformed[key]
	if !ok && !bad {
		return Result{Status: StatusMiss, Key: key}
	}
	delete(s.records, key)
	delete(s.malformed, key)
	s.logger.Info().Str("key", key).Msg("cache record cleared")
	return s.saveLocked("clear", key)
}

// ClearAll removes every record, malformed ones included.
func (s *Store) ClearAll() Result {
	if !s.enabled {
		return Result{Status: StatusOK}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*Record)
	s.malformed = make(map[string]json.RawMessage)
	s.logger.Info().Msg("all cache records cleared")
	return s.saveLocked("clear_all", "")
}

// IsValid reports whether a record exists for the file's current content.
func (s *Store) IsValid(dataPath string) bool {
	if !s.enabled {
		return false
	}
	key, res := s.resolve(dataPath)
	if !res.OK() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok
}

// Summary returns a one-line description of the cached result for a series,
// such as "ARIMA(2,1,3) (AIC:1234.6, params:6, 3.26%)". It reads the
// in-memory state; call Refresh first to pick up other writers.
func (s *Store) Summary(dataPath string, disc Discriminator) (string, bool) {
	p, res := s.GetParams(dataPath, disc)
	if !res.OK() {
		return "", false
	}
	return fmt.Sprintf("%s (AIC:%.1f, params:%d, %g%%)", p.BestParams, p.BestAIC, p.TotalParams, p.ParamRatio), true
}

// Keys returns the keys of well-formed records in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of well-formed records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

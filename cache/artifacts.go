package cache

import (
	"fmt"
	"os"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveArtifact records a generated file under label, replacing any earlier
// entry with the same label. The record is created if needed.
func (s *Store) SaveArtifact(dataPath string, kind Kind, label, artifactPath, description string) Result {
	if !kind.Valid() {
		return Result{Status: StatusInvalid, Err: fmt.Errorf("%w: %q", ErrInvalidKind, kind)}
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
	rec.ensureArtifacts(kind)[label] = &Artifact{
		Path:        artifactPath,
		Type:        kind,
		Description: description,
		Timestamp:   now,
		Exists:      fileExists(artifactPath),
	}

	res = s.saveLocked("save_artifact", key)
	if res.OK() {
		s.logger.Info().Str("key", key).Str("kind", string(kind)).Str("label", label).Str("artifact", artifactPath).Msg("artifact cached")
	}
	return res
}

// GetArtifact returns one artifact entry. The existence flag is re-checked
// and persisted if it changed.
func (s *Store) GetArtifact(dataPath string, kind Kind, label string) (*Artifact, Result) {
	if !kind.Valid() {
		return nil, Result{Status: StatusInvalid, Err: fmt.Errorf("%w: %q", ErrInvalidKind, kind)}
	}
	key, res := s.lookup(dataPath)
	if !res.OK() {
		return nil, res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Artifacts(kind)[label] == nil {
		return nil, Result{Status: StatusMiss, Key: key}
	}
	a := rec.Artifacts(kind)[label]
	if s.refreshExists(a) {
		if wres := s.saveLocked("refresh_exists", key); !wres.OK() {
			cp := *a
			return &cp, wres
		}
	}
	cp := *a
	return &cp, Result{Status: StatusOK, Key: key}
}

// AllArtifacts returns every artifact of kind for a data file, refreshing
// existence flags like GetArtifact.
func (s *Store) AllArtifacts(dataPath string, kind Kind) (map[string]*Artifact, Result) {
	if !kind.Valid() {
		return nil, Result{Status: StatusInvalid, Err: fmt.Errorf("%w: %q", ErrInvalidKind, kind)}
	}
	key, res := s.lookup(dataPath)
	if !res.OK() {
		return nil, res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || len(rec.Artifacts(kind)) == 0 {
		return nil, Result{Status: StatusMiss, Key: key}
	}

	changed := false
	for _, a := range rec.Artifacts(kind) {
		if s.refreshExists(a) {
			changed = true
		}
	}
	out := cloneArtifacts(rec.Artifacts(kind))
	if changed {
		if wres := s.saveLocked("refresh_exists", key); !wres.OK() {
			return out, wres
		}
	}
	return out, Result{Status: StatusOK, Key: key}
}

func (s *Store) refreshExists(a *Artifact) bool {
	exists := fileExists(a.Path)
	if exists == a.Exists {
		return false
	}
	a.Exists = exists
	return true
}

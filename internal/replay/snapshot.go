package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
)

// Normalizer rewrites volatile substrings before snapshot comparison.
type Normalizer func(string) string

// SnapshotStore persists expected outputs and compares later runs
// against them after normalization.
type SnapshotStore struct {
	dir         string
	update      bool
	normalizers []Normalizer
}

// NewSnapshotStore roots snapshots under dir. With update set,
// mismatching snapshots are rewritten instead of failing.
func NewSnapshotStore(dir string, update bool) *SnapshotStore {
	return &SnapshotStore{dir: dir, update: update}
}

// Register appends a normalizer; normalizers run in registration
// order on both the stored and the observed value.
func (s *SnapshotStore) Register(n Normalizer) {
	s.normalizers = append(s.normalizers, n)
}

// RegisterDefaults installs the standard volatile-value normalizers:
// RFC 3339 timestamps, UUIDs, long numeric ids, and float precision.
func (s *SnapshotStore) RegisterDefaults() {
	s.Register(NormalizeTimestamps)
	s.Register(NormalizeUUIDs)
	s.Register(NormalizeNumericIDs)
	s.Register(NormalizeFloats(4))
}

// Check compares got against the stored snapshot named name. A missing
// snapshot is written and accepted on first run.
func (s *SnapshotStore) Check(name, got string) error {
	normalized := s.normalize(got)
	path := filepath.Join(s.dir, name+".snap")

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s.write(path, normalized)
	}
	if err != nil {
		return eris.Wrap(err, "replay: read snapshot")
	}

	if s.normalize(string(want)) == normalized {
		return nil
	}
	if s.update {
		return s.write(path, normalized)
	}
	return eris.New(fmt.Sprintf("replay: snapshot %q differs from stored value", name))
}

func (s *SnapshotStore) write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "replay: create snapshot dir")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return eris.Wrap(err, "replay: write snapshot")
	}
	return nil
}

func (s *SnapshotStore) normalize(v string) string {
	for _, n := range s.normalizers {
		v = n(v)
	}
	return v
}

var (
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`)
	uuidPattern      = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	numericIDPattern = regexp.MustCompile(`\b\d{10,}\b`)
	floatPattern     = regexp.MustCompile(`-?\d+\.\d{3,}`)
)

// NormalizeTimestamps replaces RFC 3339-ish timestamps.
func NormalizeTimestamps(v string) string {
	return timestampPattern.ReplaceAllString(v, "<TIMESTAMP>")
}

// NormalizeUUIDs replaces UUID literals.
func NormalizeUUIDs(v string) string {
	return uuidPattern.ReplaceAllString(v, "<UUID>")
}

// NormalizeNumericIDs replaces long digit runs such as database ids.
func NormalizeNumericIDs(v string) string {
	return numericIDPattern.ReplaceAllString(v, "<ID>")
}

// NormalizeFloats rounds float literals to the given precision so
// last-digit jitter does not break comparisons.
func NormalizeFloats(precision int) Normalizer {
	return func(v string) string {
		return floatPattern.ReplaceAllStringFunc(v, func(m string) string {
			f, err := strconv.ParseFloat(m, 64)
			if err != nil {
				return m
			}
			return strconv.FormatFloat(f, 'f', precision, 64)
		})
	}
}

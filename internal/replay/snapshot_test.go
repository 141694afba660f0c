package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStore_FirstRunWrites(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(dir, false)

	require.NoError(t, s.Check("report", "score 72.50"))
	assert.FileExists(t, filepath.Join(dir, "report.snap"))

	// Identical content passes on the second run.
	require.NoError(t, s.Check("report", "score 72.50"))
}

func TestSnapshotStore_MismatchFails(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(dir, false)

	require.NoError(t, s.Check("report", "score 72.50"))
	assert.Error(t, s.Check("report", "score 13.00"))
}

func TestSnapshotStore_UpdateRewrites(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(dir, true)

	require.NoError(t, s.Check("report", "old"))
	require.NoError(t, s.Check("report", "new"))

	data, err := os.ReadFile(filepath.Join(dir, "report.snap"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestSnapshotStore_NormalizersApply(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(dir, false)
	s.RegisterDefaults()

	first := "run 550e8400-e29b-41d4-a716-446655440000 at 2026-03-01T09:30:00Z scored 72.503211"
	second := "run 123e4567-e89b-42d3-a456-426614174000 at 2026-03-02T11:00:00Z scored 72.503244"

	require.NoError(t, s.Check("run", first))
	// Volatile ids, timestamps, and float jitter normalize away.
	require.NoError(t, s.Check("run", second))
}

func TestNormalizeTimestamps(t *testing.T) {
	assert.Equal(t, "at <TIMESTAMP> done",
		NormalizeTimestamps("at 2026-03-01 09:30:00 done"))
	assert.Equal(t, "at <TIMESTAMP> done",
		NormalizeTimestamps("at 2026-03-01T09:30:00.123+02:00 done"))
}

func TestNormalizeNumericIDs(t *testing.T) {
	assert.Equal(t, "row <ID> ok", NormalizeNumericIDs("row 12345678901 ok"))
	// Short numbers are left alone.
	assert.Equal(t, "page 42 ok", NormalizeNumericIDs("page 42 ok"))
}

func TestNormalizeFloats(t *testing.T) {
	n := NormalizeFloats(2)
	assert.Equal(t, "score 72.50", n("score 72.503211"))
	// Two decimal places are below the precision cutoff already.
	assert.Equal(t, "score 72.50", n("score 72.50"))
}

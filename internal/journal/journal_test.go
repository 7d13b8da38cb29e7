package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestNewRunIDIsUUIDv7(t *testing.T) {
	id := NewRunID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j2.Close())
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	run := Run{
		ID:          NewRunID(),
		ArchivePath: "/prints/model.3mf",
		Resource:    "Metadata/plate_1.gcode",
		Profile:     "default",
		Outcome:     OutcomeModified,
		Matches:     3,
	}
	changes := []Change{
		{Line: 3, Text: "G1 X10 Y10 E0"},
		{Line: 4, Text: "G1 X20 Y20 E.01"},
		{Line: 5, Text: "G1 X30 Y30 E0"},
	}
	require.NoError(t, j.Record(ctx, run, changes))

	runs, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "/prints/model.3mf", runs[0].ArchivePath)
	assert.Equal(t, OutcomeModified, runs[0].Outcome)
	assert.Equal(t, 3, runs[0].Matches)
	assert.False(t, runs[0].CreatedAt.IsZero())

	got, err := j.Changes(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, changes, got)
}

func TestRecordIsIdempotentPerRunID(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	run := Run{
		ID:          NewRunID(),
		ArchivePath: "/prints/model.3mf",
		Resource:    "Metadata/plate_1.gcode",
		Profile:     "default",
		Outcome:     OutcomeNoMatches,
	}
	require.NoError(t, j.Record(ctx, run, nil))
	require.NoError(t, j.Record(ctx, run, nil))

	runs, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecentLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := Run{
			ID:          NewRunID(),
			ArchivePath: "/prints/model.3mf",
			Resource:    "Metadata/plate_1.gcode",
			Profile:     "default",
			Outcome:     OutcomeModified,
		}
		require.NoError(t, j.Record(ctx, run, nil))
	}

	runs, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRecentRejectsMalformedTimestamp(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, archive_path, resource, profile, outcome, matches, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, NewRunID(), "/prints/model.3mf", "Metadata/plate_1.gcode",
		"default", OutcomeModified, 0, "yesterday")
	require.NoError(t, err)

	_, err = j.Recent(ctx, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse run timestamp")
}

func TestRecordFailureOutcomeWithDetail(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	run := Run{
		ID:          NewRunID(),
		ArchivePath: "/prints/broken.3mf",
		Resource:    "Metadata/plate_1.gcode",
		Profile:     "default",
		Outcome:     OutcomeFailed,
		Detail:      "BLOCK_NOT_FOUND: could not find start/end markers",
	}
	require.NoError(t, j.Record(ctx, run, nil))

	runs, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeFailed, runs[0].Outcome)
	assert.Contains(t, runs[0].Detail, "BLOCK_NOT_FOUND")
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deprime/internal/journal"
	"deprime/internal/testutil"
)

const testGcode = `; header
; MACHINE_START_GCODE_END
G1 X10 Y10 E5
G1 X20 Y20 E6
G1 X30 Y30 E7
; MACHINE_END_GCODE_START
M104 S0`

func makeArchive(t *testing.T, gcodeText string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.3mf")
	testutil.WriteArchive(t, path, []testutil.Member{
		{Name: "3D/3dmodel.model", Data: []byte("<model/>")},
		{Name: "Metadata/plate_1.gcode", Data: []byte(gcodeText)},
	})
	return path
}

func execProcess(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewProcessCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestProcessRewritesArchive(t *testing.T) {
	path := makeArchive(t, testGcode)

	buf, err := execProcess(t, path)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Found 3 line(s) to modify")
	assert.Contains(t, buf.String(), "[line 3] G1 X10 Y10 E0")
	assert.Contains(t, buf.String(), "[line 4] G1 X20 Y20 E.01")
	assert.Contains(t, buf.String(), "Updated "+path)

	got := string(testutil.ReadMember(t, path, "Metadata/plate_1.gcode"))
	assert.Contains(t, got, "G1 X20 Y20 E.01")
	assert.NotContains(t, got, "E6")
}

func TestProcessNoMatchesIsBenign(t *testing.T) {
	path := makeArchive(t, "; MACHINE_START_GCODE_END\nG28\n; MACHINE_END_GCODE_START")
	before, readErr := os.ReadFile(path)
	require.NoError(t, readErr)

	buf, err := execProcess(t, path)
	require.NoError(t, err, "NO_MATCHES is a no-op, not a failure")
	assert.Contains(t, buf.String(), "No matching G-code lines found to modify")

	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, before, after)
}

func TestProcessBlockNotFoundFails(t *testing.T) {
	path := makeArchive(t, "G1 X10 Y10 E5\nM400")

	buf, err := execProcess(t, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "BLOCK_NOT_FOUND")
}

func TestProcessDryRunLeavesArchive(t *testing.T) {
	path := makeArchive(t, testGcode)
	before, readErr := os.ReadFile(path)
	require.NoError(t, readErr)

	buf, err := execProcess(t, "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Found 3 line(s) to modify")
	assert.Contains(t, buf.String(), "Dry run: "+path+" not modified")

	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, before, after)
}

func TestProcessRecordsJournal(t *testing.T) {
	path := makeArchive(t, testGcode)
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	_, err := execProcess(t, "--journal", dbPath, path)
	require.NoError(t, err)

	jnl, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer jnl.Close()

	runs, err := jnl.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.OutcomeModified, runs[0].Outcome)
	assert.Equal(t, path, runs[0].ArchivePath)
	assert.Equal(t, 3, runs[0].Matches)

	changes, err := jnl.Changes(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestProcessRecordsFailureOutcome(t *testing.T) {
	path := makeArchive(t, "G1 X10 Y10 E5")
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	_, err := execProcess(t, "--journal", dbPath, path)
	require.Error(t, err)

	jnl, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer jnl.Close()

	runs, err := jnl.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.OutcomeFailed, runs[0].Outcome)
	assert.Contains(t, runs[0].Detail, "BLOCK_NOT_FOUND")
}

func TestProcessJSONOutput(t *testing.T) {
	path := makeArchive(t, testGcode)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewProcessCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), data["matches"])
	assert.Equal(t, true, data["modified"])
}

func TestProcessMultipleFilesPartialFailure(t *testing.T) {
	good := makeArchive(t, testGcode)
	bad := makeArchive(t, "no markers here")

	buf, err := execProcess(t, good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 file(s) failed")

	// The good file was still processed.
	assert.Contains(t, buf.String(), "Updated "+good)
	got := string(testutil.ReadMember(t, good, "Metadata/plate_1.gcode"))
	assert.Contains(t, got, "G1 X20 Y20 E.01")
}

func TestProcessUnknownProfile(t *testing.T) {
	path := makeArchive(t, testGcode)

	buf, err := execProcess(t, "--profile", "nope", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "CONFIG_ERROR")
}

func TestProcessCustomProfile(t *testing.T) {
	gcodeText := "; PRINT_START_END\nG1 X1 Y1 E9\n; PRINT_END_START"
	dir := t.TempDir()
	path := filepath.Join(dir, "model.3mf")
	testutil.WriteArchive(t, path, []testutil.Member{
		{Name: "Metadata/plate_2.gcode", Data: []byte(gcodeText)},
	})

	configPath := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
profiles:
  voron:
    resource: Metadata/plate_2.gcode
    start-marker: "; PRINT_START_END"
    end-marker: "; PRINT_END_START"
`), 0644))

	buf, err := execProcess(t, "--config", configPath, "--profile", "voron", path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Found 1 line(s) to modify")

	got := string(testutil.ReadMember(t, path, "Metadata/plate_2.gcode"))
	assert.Contains(t, got, "G1 X1 Y1 E0")
}

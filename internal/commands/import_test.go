package commands_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/runlog"
)

func initLedger(t *testing.T, git bool) string {
	t.Helper()
	dir := t.TempDir()
	args := []string{"init", dir, "--name", "Test Corp", "--chart", "syscohada_minimal"}
	if !git {
		args = append(args, "--no-git")
	}
	out, err := runWisebook(t, args...)
	require.NoError(t, err, out)
	return dir
}

func queueSample(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "journal_sample.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", name), data, 0o644))
}

func readReports(t *testing.T, dir string) []model.Report {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "reports", "*.json"))
	require.NoError(t, err)
	var out []model.Report
	for _, m := range matches {
		data, err := os.ReadFile(m)
		require.NoError(t, err)
		var r model.Report
		require.NoError(t, json.Unmarshal(data, &r))
		out = append(out, r)
	}
	return out
}

func TestImport_QueuedFile(t *testing.T) {
	dir := initLedger(t, false)
	queueSample(t, dir, "janvier.csv")

	out, err := runWisebook(t, "import", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "janvier.csv: completed, 4 accepted")
	assert.Contains(t, out, "unknown-account")

	journal, err := os.ReadFile(filepath.Join(dir, "2025", "01", "journal.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(journal)), "\n")
	assert.Len(t, lines, 5, "expected header + 4 lines")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "janvier.csv"))
	require.NoError(t, err, "file should move to processed/")
	_, err = os.Stat(filepath.Join(dir, "import", "janvier.csv"))
	assert.True(t, os.IsNotExist(err))

	reports := readReports(t, dir)
	require.Len(t, reports, 1)
	assert.Equal(t, "janvier.csv", reports[0].Source)
	assert.Len(t, reports[0].Committed, 2)

	entries, err := runlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Accepted)
}

func TestImport_ReimportFlagsDuplicates(t *testing.T) {
	dir := initLedger(t, false)
	sample := filepath.Join("..", "..", "testdata", "journal_sample.csv")

	_, err := runWisebook(t, "import", "--repo", dir, sample)
	require.NoError(t, err)

	out, err := runWisebook(t, "import", "--repo", dir, "-v", sample)
	require.NoError(t, err, out)
	assert.Contains(t, out, "duplicate")

	out, err = runWisebook(t, "import", "--repo", dir, "--strict", sample)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 accepted")
}

func TestImport_NothingQueued(t *testing.T) {
	dir := initLedger(t, false)
	out, err := runWisebook(t, "import", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to import.")
}

func TestImport_CorruptFileFails(t *testing.T) {
	dir := initLedger(t, false)
	bad := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a workbook"), 0o644))

	out, err := runWisebook(t, "import", "--repo", dir, bad)
	require.Error(t, err)
	assert.Contains(t, out, "broken.xlsx: failed")

	entries, err := runlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusFailed, entries[0].Status)

	reports, err := filepath.Glob(filepath.Join(dir, "reports", "*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestImport_GitCommit(t *testing.T) {
	requireGit(t)
	dir := initLedger(t, true)
	queueSample(t, dir, "janvier.csv")

	out, err := runWisebook(t, "import", "--repo", dir)
	require.NoError(t, err, out)

	log := exec.Command("git", "log", "--format=%s", "-5")
	log.Dir = dir
	logOut, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(logOut), "import: janvier.csv")

	entries, err := runlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].CommitHash)
}

func TestImport_RequiresConfig(t *testing.T) {
	_, err := runWisebook(t, "import", "--repo", t.TempDir())
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	out, err := runWisebook(t, "schema")
	require.NoError(t, err)
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Contains(t, schema["properties"], "committed")
}

func TestVersion(t *testing.T) {
	out, err := runWisebook(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "wisebook version dev")
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
)

func writeManifest(t *testing.T, rows []manifest.Row) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, manifest.WriteCSV(&buf, rows))
	path := filepath.Join(t.TempDir(), "manifest.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func runRoot(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck_ValidManifest(t *testing.T) {
	path := writeManifest(t, []manifest.Row{
		{Dataset: "datasets/gov/example"},
		{Model: "City"},
		{Property: "name", Type: "string"},
	})

	out, err := runRoot("check", path)
	require.NoError(t, err)

	var report checkReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.True(t, report.OK)
	require.Equal(t, manifest.FormatCSV, report.Format)
	require.Equal(t, 3, report.Result.Created)
}

func TestCheck_InvalidManifest(t *testing.T) {
	path := writeManifest(t, []manifest.Row{
		{Dataset: "datasets/gov/example"},
		{Model: "city"},
	})

	out, err := runRoot("check", path)
	require.Error(t, err)
	require.Equal(t, exitValidation, exitCode(err))

	var report checkReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.False(t, report.OK)
	require.NotEmpty(t, report.Result.Errors)
}

func TestCheck_UnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("id;dataset\n"), 0o600))

	_, err := runRoot("check", path)
	require.Equal(t, exitValidation, exitCode(err))
}

func TestCheck_MissingFile(t *testing.T) {
	_, err := runRoot("check", filepath.Join(t.TempDir(), "missing.csv"))
	require.Equal(t, exitUsage, exitCode(err))
	require.Contains(t, err.Error(), "does not exist")
}

func TestCheck_Tree(t *testing.T) {
	path := writeManifest(t, []manifest.Row{
		{Dataset: "datasets/gov/example"},
		{Model: "City"},
		{Property: "name", Type: "string"},
	})

	var out bytes.Buffer
	require.NoError(t, runCheck(context.Background(), &out, checkOptions{path: path, tree: true}))
	require.Contains(t, out.String(), "datasets/gov/example")
	require.Contains(t, out.String(), "City")
}

func TestUsageErrors(t *testing.T) {
	_, err := runRoot("import", "--dataset", "0", "x.csv")
	require.Equal(t, exitUsage, exitCode(err))

	_, err = runRoot("export", "--dataset", "1", "--format", "ods")
	require.Equal(t, exitUsage, exitCode(err))

	_, err = runRoot("export", "--dataset", "1", "--format", "xlsx")
	require.Equal(t, exitUsage, exitCode(err))

	_, err = runRoot("version", "--dataset", "1")
	require.Equal(t, exitUsage, exitCode(err))

	_, err = runRoot("migrate", "sideways")
	require.Error(t, err)
	require.Equal(t, 1, exitCode(err))
}

func TestServiceError(t *testing.T) {
	require.NoError(t, serviceError(nil, true))
	require.Equal(t, exitUsage, exitCode(serviceError(errors.Wrap(structure.ErrNotFound, "get"), true)))
	require.Equal(t, exitValidation, exitCode(serviceError(structure.ErrNoDrafts, true)))
	require.Equal(t, exitDBWrite, exitCode(serviceError(errors.New("boom"), true)))
	require.Equal(t, exitDB, exitCode(serviceError(errors.New("boom"), false)))
}

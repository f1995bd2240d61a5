package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogelbrod/kirby-staticbuilder/internal/builder"
	"github.com/mogelbrod/kirby-staticbuilder/internal/history"
	"github.com/mogelbrod/kirby-staticbuilder/internal/linkcheck"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

// fixtureInstallation lays out a minimal installation: a home page, one
// visible page and the site info file.
func fixtureInstallation(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "site.txt"), "Title: Example\n")
	writeFile(t, filepath.Join(root, "content", "home", "home.txt"),
		"Title: Home\n\n----\n\nText: Welcome to **the site**.\n")
	writeFile(t, filepath.Join(root, "content", "1_about", "about.txt"), "Title: About\n")
	return root
}

func resetCLI(root string) {
	CLI.Kirby = root
	CLI.Site = ""
	CLI.JSON = false
	CLI.Quiet = true
	CLI.Verbose = false
	CLI.Build.Pages = nil
	CLI.List.Pages = nil
	CLI.Watch.Every = 0
	CLI.Watch.MetricsAddr = ""
	CLI.History.Limit = 10
	CLI.History.Run = ""
	CLI.Init.Force = false
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	old := stdout
	stdout = buf
	t.Cleanup(func() { stdout = old })
	return buf
}

func TestBuildWritesSite(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)

	assert.Equal(t, 0, run("build"))

	index, err := os.ReadFile(filepath.Join(root, "static", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h1>Home</h1>")
	assert.Contains(t, string(index), "<strong>the site</strong>")
	assert.Contains(t, string(index), `href="/"`, "placeholder URLs are rewritten to the base URL")
	assert.NotContains(t, string(index), "staticbuilder.invalid")

	assert.FileExists(t, filepath.Join(root, "static", "about", "index.html"))
}

func TestListReportsWithoutWriting(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)
	CLI.JSON = true
	buf := captureOutput(t)

	assert.Equal(t, 2, run("list"), "unbuilt items are missing")

	var items []builder.Item
	require.NoError(t, json.Unmarshal(buf.Bytes(), &items))
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.Equal(t, builder.StatusMissing, it.Status)
	}
	assert.NoFileExists(t, filepath.Join(root, "static", "index.html"))
}

func TestListAfterBuildIsUpToDate(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)

	require.Equal(t, 0, run("build"))
	assert.Equal(t, 0, run("list"))
}

func TestBuildRestrictedToPages(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)
	CLI.Build.Pages = []string{"about"}

	assert.Equal(t, 0, run("build <pages>"))

	assert.FileExists(t, filepath.Join(root, "static", "about", "index.html"))
	assert.NoFileExists(t, filepath.Join(root, "static", "index.html"))
}

func TestBuildFailsWithoutContent(t *testing.T) {
	root := t.TempDir()
	resetCLI(root)

	assert.Equal(t, 1, run("build"))
}

func TestVerifyExportedTree(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)

	require.Equal(t, 0, run("build"))
	assert.Equal(t, 0, run("verify"))

	writeFile(t, filepath.Join(root, "static", "broken.html"),
		`<html><body><a href="/nowhere">gone</a></body></html>`)
	CLI.JSON = true
	buf := captureOutput(t)
	assert.Equal(t, 2, run("verify"))

	var broken []linkcheck.Broken
	require.NoError(t, json.Unmarshal(buf.Bytes(), &broken))
	require.Len(t, broken, 1)
	assert.Equal(t, "/nowhere", broken[0].URL)
}

func TestHistoryListsRecordedRuns(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)
	writeFile(t, filepath.Join(root, "site", "staticbuilder.yml"),
		fmt.Sprintf("history:\n  path: %s\n", filepath.Join(root, "history.db")))

	require.Equal(t, 0, run("build"))

	CLI.JSON = true
	buf := captureOutput(t)
	require.Equal(t, 0, run("history"))

	var runs []history.Run
	require.NoError(t, json.Unmarshal(buf.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "write", runs[0].Mode)
	assert.Positive(t, runs[0].Items)
	assert.Positive(t, runs[0].Counts["generated"])

	// The recorded items round-trip through the store.
	buf.Reset()
	CLI.History.Run = runs[0].ID
	require.Equal(t, 0, run("history"))
	var items []builder.Item
	require.NoError(t, json.Unmarshal(buf.Bytes(), &items))
	assert.Len(t, items, runs[0].Items)
}

func TestHistoryWithoutConfiguration(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)

	assert.Equal(t, 1, run("history"))
}

func TestInitWritesExampleConfig(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)

	assert.Equal(t, 0, run("init"))
	assert.FileExists(t, filepath.Join(root, "site", "staticbuilder.yml"))

	assert.Equal(t, 1, run("init"), "existing file is not overwritten")
	CLI.Init.Force = true
	assert.Equal(t, 0, run("init"))
}

func TestSiteFlagDisabled(t *testing.T) {
	root := fixtureInstallation(t)
	writeFile(t, filepath.Join(root, "site", "staticbuilder.yml"), "output:\n  folder: exported\n")
	resetCLI(root)
	CLI.Site = "false"

	require.Equal(t, 0, run("build"))

	// Configuration is skipped entirely, so the default output folder wins.
	assert.FileExists(t, filepath.Join(root, "static", "index.html"))
	assert.NoFileExists(t, filepath.Join(root, "exported", "index.html"))
}

func TestSiteFlagExplicitPath(t *testing.T) {
	root := fixtureInstallation(t)
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "staticbuilder.yml"), "output:\n  folder: exported\n")
	resetCLI(root)
	CLI.Site = other

	require.Equal(t, 0, run("build"))
	assert.FileExists(t, filepath.Join(root, "exported", "index.html"))

	CLI.Site = filepath.Join(root, "does-not-exist")
	assert.Equal(t, 1, run("build"))
}

func TestQuietSuppressesItemLines(t *testing.T) {
	root := fixtureInstallation(t)
	resetCLI(root)
	buf := captureOutput(t)

	CLI.Quiet = true
	require.Equal(t, 0, run("build"))
	assert.Empty(t, buf.String())

	CLI.Quiet = false
	buf.Reset()
	require.Equal(t, 0, run("list"))
	assert.Contains(t, buf.String(), "uptodate")
	assert.Contains(t, buf.String(), "/about")
}
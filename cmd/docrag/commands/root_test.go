package commands

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "docrag", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"sniff", "extract", "embed", "ingest", "retrieve", "ask"}, names)

	for flag, def := range map[string]string{"format": "text", "store": "", "filters": "", "verbose": "false"} {
		f := cmd.PersistentFlags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
}

func TestAskCmd_Flags(t *testing.T) {
	cmd := NewAskCmd(&globals{})

	assert.Equal(t, "both", cmd.Flags().Lookup("mode").DefValue)
	assert.Equal(t, "7", cmd.Flags().Lookup("temperature").DefValue)
}

func TestAskCmd_RejectsBadFlags(t *testing.T) {
	_, err := run(t, "ask", "--mode", "poem", "what does atlas store")
	assert.ErrorContains(t, err, "mode must be")

	_, err = run(t, "ask", "--temperature", "12", "what does atlas store")
	assert.ErrorContains(t, err, "temperature must be")
}

func TestRootCmd_RejectsBadFormat(t *testing.T) {
	_, err := run(t, "--format", "xml", "sniff", "x")
	assert.ErrorContains(t, err, "format must be")
}

func TestSniffCmd(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan")
	bin := filepath.Join(dir, "blob")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 body"), 0o644))
	require.NoError(t, os.WriteFile(bin, []byte{0xff, 0xfe, 0x00, 0x81}, 0o644))

	out, err := run(t, "--format", "json", "sniff", pdf, bin)
	require.NoError(t, err)

	var results []sniffResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "pdf", results[0].Type)
	assert.Empty(t, results[1].Type)
	assert.Contains(t, results[1].Error, "unknown file format")
}

func TestExtractCmd_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,,Atlas\n"), 0o644))

	out, err := run(t, "extract", path)
	require.NoError(t, err)
	assert.Equal(t, "Name Atlas", strings.TrimSpace(out))
}

func TestExtractCmd_Dir(t *testing.T) {
	root := t.TempDir()
	t.Setenv("INPUT_DIR", filepath.Join(root, "in"))
	t.Setenv("PROCESSED_DIR", filepath.Join(root, "done"))
	t.Setenv("TEXT_DIR", filepath.Join(root, "text"))
	t.Setenv("TEXT_PROCESSED_DIR", filepath.Join(root, "text_done"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "in"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "in", "notes.txt"), []byte("Atlas tracks lineage.\n"), 0o644))

	out, err := run(t, "extract")
	require.NoError(t, err)

	assert.Contains(t, out, "extracted  notes_txt.txt")
	assert.FileExists(t, filepath.Join(root, "text", "notes_txt.txt"))
	assert.FileExists(t, filepath.Join(root, "done", "notes.txt"))
}

func TestErrorLines(t *testing.T) {
	var buf bytes.Buffer
	w := errorLines{w: &buf}

	n, err := w.Write([]byte("✅ Document stored\n"))
	require.NoError(t, err)
	assert.Equal(t, len("✅ Document stored\n"), n)

	_, err = w.Write([]byte("❌ Store statement \"insert chunks\" failed\n"))
	require.NoError(t, err)

	assert.Equal(t, "❌ Store statement \"insert chunks\" failed\n", buf.String())
}

func TestRootCmd_QuietKeepsErrorLogs(t *testing.T) {
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	path := filepath.Join(t.TempDir(), "scan")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644))

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"sniff", path})
	require.NoError(t, root.Execute())

	log.Printf("📄 progress")
	log.Printf("❌ Store transaction failed: boom")

	assert.NotContains(t, errOut.String(), "progress")
	assert.Contains(t, errOut.String(), "❌ Store transaction failed: boom")
}

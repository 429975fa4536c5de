package rustfmt

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/textbuf"
)

// fakeFormatter writes a shell script standing in for rustfmt and returns a
// config pointing at it.
func fakeFormatter(t *testing.T, script string) *config.Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake formatter scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-rustfmt")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	cfg := config.Default()
	cfg.RustfmtPath = path
	cfg.RustfmtArgs = nil
	return cfg
}

func TestFormatSuccess(t *testing.T) {
	cfg := fakeFormatter(t, "tr -d ' '\n")
	buf := textbuf.New("main.rs", "fn  main( ) { }\n")

	res, err := Format(context.Background(), buf, cfg)
	require.NoError(t, err)
	assert.Equal(t, "fnmain(){}\n", res.Output)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Diagnostics)
}

func TestFormatUnchanged(t *testing.T) {
	cfg := fakeFormatter(t, "cat\n")
	buf := textbuf.New("main.rs", "fn main() {}\n")

	res, err := Format(context.Background(), buf, cfg)
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestFormatPartialFailureAppliesOutput(t *testing.T) {
	cfg := fakeFormatter(t, "cat\necho '<stdin>:3:1: expected item' >&2\nexit 3\n")
	buf := textbuf.New("src/broken.rs", "fn main() {}\n")

	res, err := Format(context.Background(), buf, cfg)
	require.NoError(t, err)
	assert.Equal(t, buf.Text(), res.Output)
	assert.Contains(t, res.Diagnostics, "src/broken.rs:3:1")
	assert.NotContains(t, res.Diagnostics, "<stdin>")
}

func TestFormatHardFailureAppliesNothing(t *testing.T) {
	cfg := fakeFormatter(t, "echo mangled\necho 'broken beyond repair' >&2\nexit 1\n")
	buf := textbuf.New("main.rs", "fn main() {}\n")

	res, err := Format(context.Background(), buf, cfg)
	require.Error(t, err)
	assert.Nil(t, res)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Error(), "broken beyond repair")
	assert.Contains(t, exitErr.Error(), "exited with code 1")
}

func TestFormatMissingTool(t *testing.T) {
	cfg := config.Default()
	cfg.RustfmtPath = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := Format(context.Background(), textbuf.New("main.rs", "fn main() {}\n"), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestFormatFileRewritesInPlace(t *testing.T) {
	cfg := fakeFormatter(t, "tr -d ' '\n")
	path := filepath.Join(t.TempDir(), "main.rs")
	require.NoError(t, os.WriteFile(path, []byte("fn  main( ) { }\n"), 0o644))

	res, err := FormatFile(context.Background(), path, cfg)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fnmain(){}\n", string(got))
}

func TestFormatFileKeepsOriginalOnFailure(t *testing.T) {
	cfg := fakeFormatter(t, "echo half-written\nexit 2\n")
	path := filepath.Join(t.TempDir(), "main.rs")
	original := "fn main() {}\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	_, err := FormatFile(context.Background(), path, cfg)
	require.Error(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(got))
}

func TestRemapPosition(t *testing.T) {
	oldText := "fn main(){let x=1;}\n"
	newText := "fn main() {\n    let x = 1;\n}\n"

	// The cursor on "let" follows it across the rewrite.
	oldPos := textbuf.Pos(10)
	newPos := RemapPosition(oldText, newText, oldPos)
	assert.Equal(t, "let", newText[newPos:newPos+3])

	// Positions in deleted content land where the deletion happened.
	assert.Equal(t, textbuf.Pos(5), RemapPosition("keep DELETED tail", "keep tail", 7))

	// Past-the-end input clamps to the new end.
	assert.Equal(t, textbuf.Pos(len(newText)), RemapPosition(oldText, newText, textbuf.Pos(len(oldText))))
}

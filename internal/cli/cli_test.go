package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestIndentCommandPrintsReindentedSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.rs")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {\nlet x = 1;\n}\n"), 0o644))

	out, err := runCommand(t, "", "indent", path)
	require.NoError(t, err)
	assert.Equal(t, "fn main() {\n    let x = 1;\n}\n", out)
}

func TestIndentCommandWritesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.rs")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {\nlet x = 1;\n}\n"), 0o644))

	_, err := runCommand(t, "", "indent", "--write", path)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fn main() {\n    let x = 1;\n}\n", string(got))
}

func TestIndentCommandRejectsNonRustFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.py")
	require.NoError(t, os.WriteFile(path, []byte("def f():\n    pass\n"), 0o644))

	_, err := runCommand(t, "", "indent", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not Rust")
}

func TestCheckCommandReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.rs")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {\n    let s = \"open\n}\n"), 0o644))

	out, err := runCommand(t, "", "check", path)
	require.Error(t, err)
	assert.Contains(t, out, "unterminated string")
	assert.Contains(t, out, "broken.rs:2:13")
}

func TestLocateCommandReadsStdin(t *testing.T) {
	input := "error[E0308]: mismatched types\n  --> src/main.rs:2:18\n"
	out, err := runCommand(t, input, "locate")
	require.NoError(t, err)
	assert.Equal(t, "src/main.rs:2:18\n", out)
}

func TestLocateCommandIncludesPanicMessage(t *testing.T) {
	input := "thread 'main' panicked at 'boom', src/job.rs:77\n"
	out, err := runCommand(t, input, "locate")
	require.NoError(t, err)
	assert.Equal(t, "src/job.rs:77\tboom\n", out)
}
